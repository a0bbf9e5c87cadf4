package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes form a closed taxonomy: validation failures are rejected before
// any state change, state conflicts leave no side effect and may be retried
// with fresh state.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeWrongState              = "WRONG_STATE"
	CodeVehicleUnavailable      = "VEHICLE_UNAVAILABLE"
	CodeDuplicatePendingRequest = "DUPLICATE_PENDING_REQUEST"
	CodeFleetStateConflict      = "FLEET_STATE_CONFLICT"
	CodeBargainLocked           = "BARGAIN_LOCKED"
	CodeInvalidBargainAction    = "INVALID_BARGAIN_ACTION"
	CodeAlreadyInspected        = "ALREADY_INSPECTED"
	CodeAlreadyLocked           = "ALREADY_LOCKED"
	CodeReturnInspectionMissing = "RETURN_INSPECTION_MISSING"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeInternal                = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func WrongState(message string) *AppError {
	return New(CodeWrongState, message, http.StatusConflict)
}

func VehicleUnavailable(vehicleID int32) *AppError {
	e := New(CodeVehicleUnavailable, "vehicle is not available for the requested period", http.StatusConflict)
	return e.WithDetails(map[string]any{"vehicle_id": vehicleID})
}

func DuplicatePendingRequest(vehicleID int32) *AppError {
	e := New(CodeDuplicatePendingRequest, "a pending request for this vehicle already exists", http.StatusConflict)
	return e.WithDetails(map[string]any{"vehicle_id": vehicleID})
}

func FleetStateConflict(message string) *AppError {
	return New(CodeFleetStateConflict, message, http.StatusConflict)
}

func BargainLocked() *AppError {
	return New(CodeBargainLocked, "bargain is locked and can no longer be modified", http.StatusConflict)
}

func InvalidBargainAction(message string) *AppError {
	return New(CodeInvalidBargainAction, message, http.StatusConflict)
}

func AlreadyInspected() *AppError {
	return New(CodeAlreadyInspected, "pickup inspection has already been recorded", http.StatusConflict)
}

func AlreadyLocked() *AppError {
	return New(CodeAlreadyLocked, "return inspection is already locked", http.StatusConflict)
}

func ReturnInspectionMissing() *AppError {
	return New(CodeReturnInspectionMissing, "booking has no locked return inspection", http.StatusConflict)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, "internal error", http.StatusInternalServerError)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
