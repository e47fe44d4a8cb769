package handlers

import (
	"context"
	"log/slog"

	"github.com/driveflow/reservation-system/reservation-service/application"
	"github.com/driveflow/reservation-system/shared/events"
)

// ResponseQueueHandler consumes worker responses arriving on the reservation
// response queue and feeds them to the same correlator as the HTTP sink.
// Workers answer with the correlation metadata copied from the request
// envelope; anything without routing is dropped.
type ResponseQueueHandler struct {
	raiseStepResult *application.RaiseStepResult
	logger          *slog.Logger
}

// NewResponseQueueHandler creates a new response queue handler
func NewResponseQueueHandler(raiseStepResult *application.RaiseStepResult, logger *slog.Logger) *ResponseQueueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseQueueHandler{
		raiseStepResult: raiseStepResult,
		logger:          logger,
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *ResponseQueueHandler) HandlerID() string {
	return "reservation-response-handler"
}

// Handle implements the events.EventHandler interface. It always returns nil
// so the message is acknowledged; a response that cannot be correlated will
// never become correlatable by redelivery.
func (h *ResponseQueueHandler) Handle(ctx context.Context, event *events.Event) error {
	envelope, err := events.EnvelopeFromMetadata(event.Metadata)
	if err != nil {
		h.logger.Warn("dropping response without correlation metadata",
			"event_id", event.ID.String(),
			"topic", event.Topic.String(),
		)
		return nil
	}

	payload, err := event.MarshalPayload()
	if err != nil {
		h.logger.Warn("dropping response with unreadable payload",
			"event_id", event.ID.String(),
			"error", err,
		)
		return nil
	}

	return h.raiseStepResult.Execute(ctx, &application.RaiseStepResultCommand{
		InstanceID: envelope.InstanceID,
		EventName:  envelope.EventName,
		Payload:    payload,
	})
}
