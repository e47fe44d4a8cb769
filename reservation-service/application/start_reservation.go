package application

import (
	"context"
	"log/slog"

	"github.com/driveflow/reservation-system/reservation-service/saga"
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/pkg/errors"
)

// ErrReservationExists is returned when a saga for the reservation ID is
// already scheduled.
var ErrReservationExists = errors.New("reservation already exists")

// StartReservationCommand represents the command to start a reservation saga
type StartReservationCommand struct {
	ReservationID string `json:"reservation_id,omitempty"`
	CustomerName  string `json:"customer_name"`
	CarClass      string `json:"car_class"`
}

// StartReservationResponse represents the response after scheduling the saga
type StartReservationResponse struct {
	ReservationID string `json:"reservation_id"`
	CustomerName  string `json:"customer_name"`
	CarClass      string `json:"car_class"`
}

// StartReservation schedules a new car reservation saga instance keyed by
// the reservation ID.
type StartReservation struct {
	client workflow.Client
	logger *slog.Logger
}

// NewStartReservation creates a new StartReservation use case
func NewStartReservation(client workflow.Client, logger *slog.Logger) *StartReservation {
	if logger == nil {
		logger = slog.Default()
	}
	return &StartReservation{
		client: client,
		logger: logger,
	}
}

// Execute validates the command, generates a reservation ID when absent, and
// schedules the saga instance.
func (uc *StartReservation) Execute(ctx context.Context, cmd *StartReservationCommand) (*StartReservationResponse, error) {
	if cmd.CustomerName == "" {
		return nil, errors.New("customer name is required")
	}
	if cmd.CarClass == "" {
		return nil, errors.New("car class is required")
	}

	reservationID := models.ID(cmd.ReservationID)
	if cmd.ReservationID == "" {
		reservationID = models.GenerateUUID()
	} else {
		parsed, err := models.NewID(cmd.ReservationID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid reservation ID")
		}
		reservationID = parsed
	}

	info := saga.ReservationInfo{
		ReservationID: reservationID,
		CustomerName:  cmd.CustomerName,
		CarClass:      cmd.CarClass,
	}

	if err := uc.client.Schedule(ctx, reservationID.String(), info); err != nil {
		if errors.Is(err, workflow.ErrAlreadyScheduled) {
			return nil, ErrReservationExists
		}
		return nil, errors.Wrap(err, "failed to schedule reservation saga")
	}

	uc.logger.Info("reservation saga scheduled",
		"reservation_id", reservationID.String(),
		"car_class", cmd.CarClass,
	)

	return &StartReservationResponse{
		ReservationID: reservationID.String(),
		CustomerName:  cmd.CustomerName,
		CarClass:      cmd.CarClass,
	}, nil
}
