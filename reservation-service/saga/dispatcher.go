package saga

import (
	"context"
	"log/slog"

	"github.com/driveflow/reservation-system/shared/events"
	"github.com/driveflow/reservation-system/shared/models"
)

// Dispatcher sends step requests to their worker channels. It reports
// dispatch success only: true means the transport accepted the message, not
// that the remote operation completed. Failures never propagate as errors;
// they are logged and returned as false. Exactly one message per call, no
// retries.
type Dispatcher struct {
	publisher       events.Publisher
	callbackAddress string
	logger          *slog.Logger
}

// NewDispatcher creates a dispatcher publishing through the given publisher.
// callbackAddress is the process-wide response channel workers answer to.
func NewDispatcher(publisher events.Publisher, callbackAddress string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		publisher:       publisher,
		callbackAddress: callbackAddress,
		logger:          logger,
	}
}

// Dispatch publishes a step request wrapped in a correlation envelope
// addressing the response back to instanceID and the step's event name.
func (d *Dispatcher) Dispatch(ctx context.Context, instanceID models.ID, kind StepKind, action Action, request interface{}) bool {
	descriptor := Descriptor(kind)

	envelope := events.NewCorrelationEnvelope(
		d.callbackAddress,
		instanceID.String(),
		descriptor.EventName,
	)

	event := events.NewEvent(instanceID, descriptor.Channel, request).
		WithCorrelationID(instanceID)
	event.Metadata = event.Metadata.Merge(envelope.ToMetadata())

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Error("failed to dispatch step request",
			"step", string(kind),
			"action", string(action),
			"reservation_id", instanceID.String(),
			"channel", descriptor.Channel.String(),
			"error", err,
		)
		return false
	}

	d.logger.Info("dispatched step request",
		"step", string(kind),
		"action", string(action),
		"reservation_id", instanceID.String(),
		"channel", descriptor.Channel.String(),
		"event_name", descriptor.EventName,
	)
	return true
}
