package application

import (
	"context"
	"time"

	"github.com/driveflow/reservation-system/shared/models"
	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/pkg/errors"
)

// ErrReservationNotFound is returned when no saga exists for the ID.
var ErrReservationNotFound = errors.New("reservation not found")

// GetReservationStatusQuery represents the query for a reservation's progress
type GetReservationStatusQuery struct {
	ReservationID string
}

// ReservationStatusResponse is the observable progress of one reservation
// saga: its status trail head and, once terminated, the boolean outcome.
type ReservationStatusResponse struct {
	ReservationID string    `json:"reservation_id"`
	Runtime       string    `json:"runtime"`
	Status        string    `json:"status"`
	Result        *bool     `json:"result,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetReservationStatus use case
type GetReservationStatus struct {
	client workflow.Client
}

// NewGetReservationStatus creates a new GetReservationStatus use case
func NewGetReservationStatus(client workflow.Client) *GetReservationStatus {
	return &GetReservationStatus{client: client}
}

// Execute returns the current status of the reservation saga.
func (uc *GetReservationStatus) Execute(ctx context.Context, query *GetReservationStatusQuery) (*ReservationStatusResponse, error) {
	reservationID, err := models.NewID(query.ReservationID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid reservation ID")
	}

	status, err := uc.client.Status(ctx, reservationID.String())
	if err != nil {
		if errors.Is(err, workflow.ErrInstanceNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errors.Wrap(err, "failed to query reservation status")
	}

	return &ReservationStatusResponse{
		ReservationID: status.InstanceID,
		Runtime:       string(status.Runtime),
		Status:        status.StatusText,
		Result:        status.Result,
		UpdatedAt:     status.UpdatedAt,
	}, nil
}
