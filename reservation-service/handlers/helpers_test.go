package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/driveflow/reservation-system/shared/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type raisedEvent struct {
	instanceID string
	eventName  string
	payload    interface{}
}

// fakeWorkflowClient backs the application use cases in handler tests.
type fakeWorkflowClient struct {
	mu        sync.Mutex
	scheduled map[string]interface{}
	raised    []raisedEvent
	statusFn  func(instanceID string) (*workflow.InstanceStatus, error)
}

func newFakeWorkflowClient() *fakeWorkflowClient {
	return &fakeWorkflowClient{scheduled: make(map[string]interface{})}
}

var _ workflow.Client = (*fakeWorkflowClient)(nil)

func (f *fakeWorkflowClient) Schedule(ctx context.Context, instanceID string, input interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.scheduled[instanceID]; exists {
		return workflow.ErrAlreadyScheduled
	}
	f.scheduled[instanceID] = input
	return nil
}

func (f *fakeWorkflowClient) RaiseEvent(ctx context.Context, instanceID, eventName string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised = append(f.raised, raisedEvent{
		instanceID: instanceID,
		eventName:  eventName,
		payload:    payload,
	})
	return nil
}

func (f *fakeWorkflowClient) Status(ctx context.Context, instanceID string) (*workflow.InstanceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusFn != nil {
		return f.statusFn(instanceID)
	}
	return nil, workflow.ErrInstanceNotFound
}

func (f *fakeWorkflowClient) raisedEvents() []raisedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]raisedEvent(nil), f.raised...)
}
