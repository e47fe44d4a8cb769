package saga

import (
	"context"
	"log/slog"
	"time"

	"github.com/driveflow/reservation-system/shared/models"
	"github.com/driveflow/reservation-system/shared/workflow"
)

// StatusConfirmed is the single billing status recognized as a posted charge.
const StatusConfirmed = "confirmed"

// BillingStatusClient is a read-only lookup of the billing manager's view of
// a reservation's charge.
type BillingStatusClient interface {
	ReservationStatus(ctx context.Context, reservationID models.ID) (string, error)
}

// ConfirmationPoller asks the billing manager whether a charge actually
// posted. The charge dispatch only proves a request was sent; this closes
// the gap with a bounded number of lookups.
type ConfirmationPoller struct {
	client    BillingStatusClient
	attempts  int
	delayUnit time.Duration
	logger    *slog.Logger
}

// NewConfirmationPoller creates a poller performing up to attempts lookups.
// Attempt i is followed by a pause of i delay units; there is no pause
// before the first attempt or after the last.
func NewConfirmationPoller(client BillingStatusClient, attempts int, delayUnit time.Duration, logger *slog.Logger) *ConfirmationPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationPoller{
		client:    client,
		attempts:  attempts,
		delayUnit: delayUnit,
		logger:    logger,
	}
}

// Confirm returns true on the first lookup reporting a confirmed charge and
// false once every attempt is exhausted. Lookup errors count as
// non-confirmation, not as a distinct failure path. Inter-attempt pauses go
// through the workflow context so the engine owns the suspension.
func (p *ConfirmationPoller) Confirm(ctx workflow.Context, reservationID models.ID) bool {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		status, err := p.client.ReservationStatus(ctx.Context(), reservationID)
		if err != nil {
			p.logger.Warn("billing status lookup failed",
				"reservation_id", reservationID.String(),
				"attempt", attempt,
				"error", err,
			)
		} else if status == StatusConfirmed {
			p.logger.Info("billing confirmed",
				"reservation_id", reservationID.String(),
				"attempt", attempt,
			)
			return true
		}

		if attempt < p.attempts {
			if err := ctx.Sleep(time.Duration(attempt) * p.delayUnit); err != nil {
				return false
			}
		}
	}

	p.logger.Warn("billing unconfirmed after all attempts",
		"reservation_id", reservationID.String(),
		"attempts", p.attempts,
	)
	return false
}
