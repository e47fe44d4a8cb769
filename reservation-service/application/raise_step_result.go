package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/driveflow/reservation-system/shared/workflow"
)

// RaiseStepResultCommand carries an inbound worker callback: the routing
// pulled from headers or message metadata plus the raw outcome payload.
type RaiseStepResultCommand struct {
	InstanceID string
	EventName  string
	Payload    json.RawMessage
}

// RaiseStepResult correlates a worker callback to its waiting saga instance
// by re-injecting the payload as a named event. Callbacks are fire-and-forget
// from the worker's perspective: malformed routing and delivery failures are
// logged and acknowledged, never surfaced to the caller.
type RaiseStepResult struct {
	client workflow.Client
	logger *slog.Logger
}

// NewRaiseStepResult creates a new RaiseStepResult use case
func NewRaiseStepResult(client workflow.Client, logger *slog.Logger) *RaiseStepResult {
	if logger == nil {
		logger = slog.Default()
	}
	return &RaiseStepResult{
		client: client,
		logger: logger,
	}
}

// Execute delivers the callback. It always returns nil.
func (uc *RaiseStepResult) Execute(ctx context.Context, cmd *RaiseStepResultCommand) error {
	if cmd.InstanceID == "" || cmd.EventName == "" {
		uc.logger.Warn("dropping callback with missing routing",
			"instance_id", cmd.InstanceID,
			"event_name", cmd.EventName,
		)
		return nil
	}

	if err := uc.client.RaiseEvent(ctx, cmd.InstanceID, cmd.EventName, cmd.Payload); err != nil {
		uc.logger.Warn("failed to raise callback event",
			"instance_id", cmd.InstanceID,
			"event_name", cmd.EventName,
			"error", err,
		)
		return nil
	}

	uc.logger.Info("raised callback event",
		"instance_id", cmd.InstanceID,
		"event_name", cmd.EventName,
	)
	return nil
}
