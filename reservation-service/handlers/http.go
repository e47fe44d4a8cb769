package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/driveflow/reservation-system/reservation-service/application"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// ReservationHandlers contains reservation HTTP handlers
type ReservationHandlers struct {
	startReservation *application.StartReservation
	getStatus        *application.GetReservationStatus
}

// NewReservationHandlers creates new reservation handlers
func NewReservationHandlers(
	startReservation *application.StartReservation,
	getStatus *application.GetReservationStatus,
) *ReservationHandlers {
	return &ReservationHandlers{
		startReservation: startReservation,
		getStatus:        getStatus,
	}
}

// Reserve handles reservation requests. Parameters come as query values; a
// missing reservationId gets a generated one.
func (h *ReservationHandlers) Reserve(w http.ResponseWriter, r *http.Request) {
	cmd := &application.StartReservationCommand{
		ReservationID: r.URL.Query().Get("reservationId"),
		CustomerName:  r.URL.Query().Get("customerName"),
		CarClass:      r.URL.Query().Get("carClass"),
	}

	response, err := h.startReservation.Execute(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, application.ErrReservationExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// GetStatus handles reservation status requests
func (h *ReservationHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "id")
	if reservationID == "" {
		http.Error(w, "Reservation ID is required", http.StatusBadRequest)
		return
	}

	query := &application.GetReservationStatusQuery{
		ReservationID: reservationID,
	}

	response, err := h.getStatus.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrReservationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers reservation routes
func (h *ReservationHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/reserve", h.Reserve)
	r.Route("/reservations", func(r chi.Router) {
		r.Get("/{id}/status", h.GetStatus)
	})
}
