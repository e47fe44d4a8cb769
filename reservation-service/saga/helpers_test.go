package saga

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/driveflow/reservation-system/shared/events"
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher captures every published event and can be told to fail
// selected dispatches.
type recordingPublisher struct {
	mu        sync.Mutex
	published []*events.Event
	failOn    func(event *events.Event) bool
}

func (p *recordingPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, event := range evts {
		if p.failOn != nil && p.failOn(event) {
			return errors.Errorf("publish failed for topic %s", event.Topic)
		}
		p.published = append(p.published, event)
	}
	return nil
}

func (p *recordingPublisher) events() []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*events.Event, len(p.published))
	copy(out, p.published)
	return out
}

// countDispatches counts published requests matching a step channel and action.
func (p *recordingPublisher) countDispatches(channel events.Topic, action Action) int {
	count := 0
	for _, event := range p.events() {
		if event.Topic != channel {
			continue
		}
		if requestAction(event.Data) == action {
			count++
		}
	}
	return count
}

func requestAction(data interface{}) Action {
	switch request := data.(type) {
	case BookingRequest:
		return request.Action
	case InventoryRequest:
		return request.Action
	case BillingRequest:
		return request.Action
	default:
		return Action("")
	}
}

// failDispatch builds a failOn predicate matching one step channel and action.
func failDispatch(channel events.Topic, action Action) func(*events.Event) bool {
	return func(event *events.Event) bool {
		return event.Topic == channel && requestAction(event.Data) == action
	}
}

// stubBillingClient answers queued statuses in order, repeating the last one.
type stubBillingClient struct {
	mu       sync.Mutex
	statuses []string
	err      error
	calls    int
}

func (s *stubBillingClient) ReservationStatus(ctx context.Context, reservationID models.ID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.statuses) == 0 {
		return "", errors.New("no statuses queued")
	}
	idx := s.calls - 1
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	return s.statuses[idx], nil
}

func (s *stubBillingClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeWorkflowContext is a minimal workflow.Context for unit tests that do
// not need the real runtime. Events are served from queues keyed by name.
type fakeWorkflowContext struct {
	id       string
	mu       sync.Mutex
	statuses []string
	sleeps   []time.Duration
	queues   map[string][]json.RawMessage
}

func newFakeWorkflowContext(id string) *fakeWorkflowContext {
	return &fakeWorkflowContext{
		id:     id,
		queues: make(map[string][]json.RawMessage),
	}
}

func (f *fakeWorkflowContext) InstanceID() string {
	return f.id
}

func (f *fakeWorkflowContext) Context() context.Context {
	return context.Background()
}

func (f *fakeWorkflowContext) WaitForEvent(name string, timeout time.Duration) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.queues[name]
	if len(queue) == 0 {
		return nil, errors.Errorf("timed out waiting for event %q", name)
	}
	payload := queue[0]
	f.queues[name] = queue[1:]
	return payload, nil
}

func (f *fakeWorkflowContext) Sleep(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	return nil
}

func (f *fakeWorkflowContext) SetStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeWorkflowContext) recordedSleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}
