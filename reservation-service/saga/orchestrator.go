package saga

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/driveflow/reservation-system/shared/models"
	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultWaitTimeout bounds each wait for a booking or inventory callback.
const DefaultWaitTimeout = 2 * time.Minute

// Config tunes the orchestrator's timing.
type Config struct {
	// WaitTimeout bounds each callback wait. Zero means DefaultWaitTimeout.
	WaitTimeout time.Duration
}

// Orchestrator runs the car reservation saga: dispatch booking and inventory
// requests, join on their correlated callbacks, charge the customer, confirm
// the charge posted, and unwind whatever succeeded when anything fails.
//
// Faults are explicit values carrying a progress snapshot; the compensation
// pass consumes that snapshot and nothing else. The saga always terminates
// with a definite boolean, never an unhandled error to the caller.
type Orchestrator struct {
	dispatcher  *Dispatcher
	poller      *ConfirmationPoller
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewOrchestrator wires the saga from its two collaborators.
func NewOrchestrator(dispatcher *Dispatcher, poller *ConfirmationPoller, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Orchestrator{
		dispatcher:  dispatcher,
		poller:      poller,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// Workflow exposes the saga as a workflow definition for the engine.
func (o *Orchestrator) Workflow() workflow.Workflow {
	return o.Run
}

// Run executes one saga instance. Input is a JSON-encoded ReservationInfo
// whose reservation ID equals the instance ID.
func (o *Orchestrator) Run(ctx workflow.Context, input json.RawMessage) (bool, error) {
	var info ReservationInfo
	if err := json.Unmarshal(input, &info); err != nil {
		ctx.SetStatus("Invalid reservation request")
		return false, errors.Wrap(err, "failed to decode reservation info")
	}
	if err := info.Validate(); err != nil {
		ctx.SetStatus("Invalid reservation request")
		return false, errors.Wrap(err, "invalid reservation info")
	}

	progress := Progress{}
	fault := o.reserve(ctx, info, &progress)
	if fault == nil {
		ctx.SetStatus("Reservation completed successfully")
		o.logger.Info("reservation succeeded", "reservation_id", info.ReservationID.String())
		return true, nil
	}

	o.logger.Warn("reservation failed, compensating",
		"reservation_id", info.ReservationID.String(),
		"reason", fault.reason,
		"booking", fault.progress.Booking,
		"inventory", fault.progress.Inventory,
		"charge", fault.progress.Charge,
	)
	o.compensate(ctx, info, fault.progress)
	ctx.SetStatus("Reservation failed: " + fault.reason)
	return false, nil
}

// reserve walks the forward path. It returns nil on full success, or a fault
// freezing the progress flags at the moment the failure was detected.
//
// Flags are raised on dispatch success and never lowered: a step whose
// callback times out or reports failure still gets compensated, even though
// its remote outcome is unknown. That mirrors how partial progress is
// resolved here on purpose; the alternative risks leaking a live booking.
func (o *Orchestrator) reserve(ctx workflow.Context, info ReservationInfo, progress *Progress) *stepFault {
	if !o.dispatchStep(ctx, StepBooking, ActionReserve, BookingRequest{
		Action:        ActionReserve,
		CarClass:      info.CarClass,
		CustomerName:  info.CustomerName,
		ReservationID: info.ReservationID,
	}) {
		return newFault("error booking a car", *progress)
	}
	progress.Booking = true

	if !o.dispatchStep(ctx, StepInventory, ActionReserve, InventoryRequest{
		Action:   ActionReserve,
		CarClass: info.CarClass,
		OrderID:  info.ReservationID,
	}) {
		return newFault("error reserving inventory", *progress)
	}
	progress.Inventory = true

	booked, reserved, err := o.awaitStepConfirmations(ctx)
	if err != nil {
		ctx.SetStatus("Timed out waiting for booking or inventory confirmation")
		return newFault("booking or inventory confirmation timed out", *progress)
	}
	if !booked || !reserved {
		ctx.SetStatus("Error booking a car or reserving inventory")
		return newFault("booking or inventory failed", *progress)
	}

	if !o.dispatchStep(ctx, StepBilling, ActionCharge, BillingRequest{
		Action:        ActionCharge,
		CarClass:      info.CarClass,
		CustomerName:  info.CustomerName,
		ReservationID: info.ReservationID,
	}) {
		return newFault("error charging the customer", *progress)
	}
	progress.Charge = true

	ctx.SetStatus("Validating billing for reservation")
	if !o.poller.Confirm(ctx, info.ReservationID) {
		ctx.SetStatus("Error charging the customer")
		return newFault("billing confirmation exhausted", *progress)
	}

	return nil
}

// awaitStepConfirmations joins on the booking and inventory callbacks
// concurrently, each bounded by the wait timeout.
func (o *Orchestrator) awaitStepConfirmations(ctx workflow.Context) (booked, reserved bool, err error) {
	var bookingOutcome, inventoryOutcome StepOutcome

	gr, _ := errgroup.WithContext(ctx.Context())
	gr.Go(func() error {
		return o.awaitOutcome(ctx, StepBooking, &bookingOutcome)
	})
	gr.Go(func() error {
		return o.awaitOutcome(ctx, StepInventory, &inventoryOutcome)
	})

	if err := gr.Wait(); err != nil {
		return false, false, err
	}
	return bookingOutcome.IsSuccess, inventoryOutcome.IsSuccess, nil
}

func (o *Orchestrator) awaitOutcome(ctx workflow.Context, kind StepKind, outcome *StepOutcome) error {
	payload, err := ctx.WaitForEvent(Descriptor(kind).EventName, o.waitTimeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, outcome); err != nil {
		return errors.Wrapf(err, "malformed %s outcome", kind)
	}
	return nil
}

// compensate dispatches the undo request for every step whose progress flag
// is raised. Compensations target independent resources, so order does not
// matter; each is best-effort and a failed dispatch never stops the rest.
func (o *Orchestrator) compensate(ctx workflow.Context, info ReservationInfo, progress Progress) {
	if !progress.Any() {
		return
	}

	if progress.Booking {
		o.dispatchStep(ctx, StepBooking, ActionCancel, BookingRequest{
			Action:        ActionCancel,
			CarClass:      info.CarClass,
			CustomerName:  info.CustomerName,
			ReservationID: info.ReservationID,
		})
	}

	if progress.Inventory {
		o.dispatchStep(ctx, StepInventory, ActionCancel, InventoryRequest{
			Action:   ActionCancel,
			CarClass: info.CarClass,
			OrderID:  info.ReservationID,
		})
	}

	if progress.Charge {
		o.dispatchStep(ctx, StepBilling, ActionRefund, BillingRequest{
			Action:        ActionRefund,
			CarClass:      info.CarClass,
			CustomerName:  info.CustomerName,
			ReservationID: info.ReservationID,
		})
	}
}

// dispatchStep dispatches one request and records the matching status-trail
// message for the result.
func (o *Orchestrator) dispatchStep(ctx workflow.Context, kind StepKind, action Action, request interface{}) bool {
	ok := o.dispatcher.Dispatch(ctx.Context(), models.ID(ctx.InstanceID()), kind, action, request)
	if text := statusForDispatch(kind, action, ok); text != "" {
		ctx.SetStatus(text)
	}
	return ok
}
