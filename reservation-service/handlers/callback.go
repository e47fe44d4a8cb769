package handlers

import (
	"io"
	"net/http"

	"github.com/driveflow/reservation-system/reservation-service/application"
	"github.com/driveflow/reservation-system/shared/events"
	"github.com/go-chi/chi/v5"
)

// CallbackHandlers receives worker callbacks over HTTP and correlates them
// to their saga instance. The route name is the callback address advertised
// in every outbound correlation envelope.
type CallbackHandlers struct {
	raiseStepResult *application.RaiseStepResult
}

// NewCallbackHandlers creates new callback handlers
func NewCallbackHandlers(raiseStepResult *application.RaiseStepResult) *CallbackHandlers {
	return &CallbackHandlers{raiseStepResult: raiseStepResult}
}

// HandleCallback accepts a step outcome addressed by the correlation headers.
// The response is always 200: callbacks are fire-and-forget for the worker,
// so missing headers or delivery failures are logged server-side only.
func (h *CallbackHandlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	cmd := &application.RaiseStepResultCommand{
		InstanceID: r.Header.Get(events.CallbackInstanceKey),
		EventName:  r.Header.Get(events.CallbackEventKey),
		Payload:    payload,
	}

	// Execute never fails; routing problems are logged and dropped.
	_ = h.raiseStepResult.Execute(r.Context(), cmd)

	w.WriteHeader(http.StatusOK)
}

// RegisterRoutes registers the callback sink
func (h *CallbackHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/reservation-response-queue", h.HandleCallback)
}
