package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MrAk1876/carRent-sub002/internal/security"
	"github.com/MrAk1876/carRent-sub002/internal/service"
)

// NewRouter assembles the REST surface. All routes under /api/v1 require a
// valid bearer token; admin-only routes are gated per handler.
func NewRouter(
	rentals service.RentalService,
	fleet service.FleetService,
	notes service.NotificationService,
	tokens security.TokenManager,
) *mux.Router {
	rentalHandler := NewRentalHandler(rentals)
	fleetHandler := NewFleetHandler(fleet)
	noteHandler := NewNotificationHandler(notes)

	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(tokens))

	// Rental requests
	api.HandleFunc("/requests", rentalHandler.CreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests", rentalHandler.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", rentalHandler.GetRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", rentalHandler.CancelRequest).Methods(http.MethodDelete)
	api.HandleFunc("/requests/{id}/bargain", rentalHandler.ApplyBargainAction).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/reject", requireAdmin(rentalHandler.RejectRequest)).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/approve", requireAdmin(rentalHandler.ApproveRequest)).Methods(http.MethodPost)

	// Bookings
	api.HandleFunc("/bookings", rentalHandler.ListBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", rentalHandler.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/pay-advance", rentalHandler.PayAdvance).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/pickup", requireAdmin(rentalHandler.StartPickup)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/return-inspection", requireAdmin(rentalHandler.SubmitReturnInspection)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/complete", requireAdmin(rentalHandler.CompleteBooking)).Methods(http.MethodPost)

	// Fleet
	api.HandleFunc("/vehicles", fleetHandler.ListVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", requireAdmin(fleetHandler.CreateVehicle)).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{id}", fleetHandler.GetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", requireAdmin(fleetHandler.UpdateVehicle)).Methods(http.MethodPut)
	api.HandleFunc("/vehicles/{id}/status", requireAdmin(fleetHandler.UpdateFleetStatus)).Methods(http.MethodPatch)

	// Notifications
	api.HandleFunc("/notifications", noteHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", noteHandler.MarkAsRead).Methods(http.MethodPost)

	return router
}
