package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/service"
)

var validate = validator.New()

// RentalHandler exposes the reservation lifecycle over REST.
type RentalHandler struct {
	rentals service.RentalService
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals}
}

type createRequestDTO struct {
	VehicleID        int32     `json:"vehicle_id" validate:"required,gt=0"`
	PickupAt         time.Time `json:"pickup_at" validate:"required"`
	DropAt           time.Time `json:"drop_at" validate:"required"`
	GracePeriodHours int       `json:"grace_period_hours" validate:"gte=0,lte=72"`
	BargainPrice     float64   `json:"bargain_price" validate:"gte=0"`
	Message          string    `json:"message" validate:"max=1000"`
}

func (h *RentalHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var dto createRequestDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	claims := claimsFrom(r)
	req, err := h.rentals.CreateRequest(r.Context(), &service.CreateRequestInput{
		RequesterID:      claims.UserID,
		VehicleID:        dto.VehicleID,
		PickupAt:         dto.PickupAt,
		DropAt:           dto.DropAt,
		GracePeriodHours: dto.GracePeriodHours,
		BargainPrice:     dto.BargainPrice,
		Message:          dto.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *RentalHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := h.rentals.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !isAdmin(r) && req.RequesterID != claimsFrom(r).UserID {
		writeError(w, apperr.Forbidden("request belongs to another user"))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RentalHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := r.URL.Query().Get("status")

	requests, total, err := h.rentals.ListRequests(r.Context(), claimsFrom(r).UserID, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items: requests,
		Meta:  listMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

func (h *RentalHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.rentals.CancelRequest(r.Context(), id, claimsFrom(r).UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type rejectRequestDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *RentalHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto rejectRequestDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.rentals.RejectRequest(r.Context(), id, dto.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type bargainActionDTO struct {
	Action string  `json:"action" validate:"required,oneof=offer counter accept reject"`
	Price  float64 `json:"price" validate:"gte=0"`
}

func (h *RentalHandler) ApplyBargainAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto bargainActionDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	claims := claimsFrom(r)
	role := domain.UserRoleCustomer
	if isAdmin(r) {
		role = domain.UserRoleAdmin
	}
	req, err := h.rentals.ApplyBargainAction(r.Context(), &service.BargainActionInput{
		RequestID:    id,
		ActorID:      claims.UserID,
		ActorRole:    role,
		Action:       domain.BargainAction(dto.Action),
		CounterPrice: dto.Price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type approveRequestDTO struct {
	AdvancePaid   bool   `json:"advance_paid"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
	AdminNotes    string `json:"admin_notes" validate:"max=1000"`
}

func (h *RentalHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto approveRequestDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.PayAdvanceOrApprove(r.Context(), &service.ApprovalInput{
		RequestID:     id,
		AdvancePaid:   dto.AdvancePaid,
		PaymentMethod: dto.PaymentMethod,
		AdminNotes:    dto.AdminNotes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type payAdvanceDTO struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
}

func (h *RentalHandler) PayAdvance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto payAdvanceDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.ConfirmAdvance(r.Context(), id, dto.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type pickupDTO struct {
	InspectionNotes string    `json:"inspection_notes" validate:"max=2000"`
	Images          []string  `json:"images" validate:"max=10,dive,url"`
	ActualPickupAt  time.Time `json:"actual_pickup_at"`
}

func (h *RentalHandler) StartPickup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto pickupDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.StartPickup(r.Context(), &service.PickupInput{
		BookingID:       id,
		InspectionNotes: dto.InspectionNotes,
		Images:          dto.Images,
		ActualPickupAt:  dto.ActualPickupAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type returnInspectionDTO struct {
	InspectionNotes string   `json:"inspection_notes" validate:"max=2000"`
	Images          []string `json:"images" validate:"max=10,dive,url"`
	DamageDetected  bool     `json:"damage_detected"`
	DamageCost      float64  `json:"damage_cost" validate:"gte=0"`
	DiscountPct     float64  `json:"discount_pct" validate:"gte=0,lte=100"`
}

func (h *RentalHandler) SubmitReturnInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto returnInspectionDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.SubmitReturnInspection(r.Context(), &service.ReturnInspectionInput{
		BookingID:       id,
		InspectionNotes: dto.InspectionNotes,
		Images:          dto.Images,
		DamageDetected:  dto.DamageDetected,
		DamageCost:      dto.DamageCost,
		DiscountPct:     dto.DiscountPct,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type completeBookingDTO struct {
	PaymentMethod string    `json:"payment_method" validate:"required,max=50"`
	ActualDropAt  time.Time `json:"actual_drop_at"`
}

func (h *RentalHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto completeBookingDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.CompleteBooking(r.Context(), &service.CompletionInput{
		BookingID:     id,
		PaymentMethod: dto.PaymentMethod,
		ActualDropAt:  dto.ActualDropAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *RentalHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.rentals.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !isAdmin(r) && booking.RequesterID != claimsFrom(r).UserID {
		writeError(w, apperr.Forbidden("booking belongs to another user"))
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *RentalHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := r.URL.Query().Get("status")

	bookings, total, err := h.rentals.ListBookings(r.Context(), claimsFrom(r).UserID, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items: bookings,
		Meta:  listMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

// decodeBody parses and validates a JSON request body.
func decodeBody(r *http.Request, dto any) error {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(dto); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id in path")
	}
	return int32(id), nil
}

func pagination(r *http.Request) (page, pageSize int32) {
	page, pageSize = 1, 20
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 32); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("page_size"), 10, 32); err == nil && v > 0 && v <= 100 {
		pageSize = int32(v)
	}
	return page, pageSize
}
