package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultEventBuffer = 4

// Runtime is an in-process implementation of the Client contract. Each
// scheduled instance runs as a single goroutine; waits park on buffered
// per-event channels so the instance consumes no CPU while suspended.
type Runtime struct {
	mux       sync.RWMutex
	workflow  Workflow
	instances map[string]*instance
	options   *runtimeOptions
}

type runtimeOptions struct {
	store       SnapshotStore
	logger      *slog.Logger
	eventBuffer int
}

type RuntimeOption func(*runtimeOptions)

// WithSnapshotStore checkpoints every status transition and terminal result
// to the given store.
func WithSnapshotStore(store SnapshotStore) RuntimeOption {
	return func(o *runtimeOptions) {
		o.store = store
	}
}

func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

func WithEventBuffer(size int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.eventBuffer = size
	}
}

// NewRuntime creates a runtime executing the given workflow definition.
func NewRuntime(wf Workflow, opts ...RuntimeOption) *Runtime {
	options := &runtimeOptions{
		logger:      slog.Default(),
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Runtime{
		workflow:  wf,
		instances: make(map[string]*instance),
		options:   options,
	}
}

var _ Client = (*Runtime)(nil)

type instance struct {
	id      string
	runtime *Runtime

	mux       sync.Mutex
	state     RuntimeState
	status    string
	result    *bool
	updatedAt time.Time
	events    map[string]chan json.RawMessage

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Schedule starts a new instance. The identity contract holds: a second
// Schedule with the same instanceID fails with ErrAlreadyScheduled while any
// instance for that identity exists, live or terminated.
func (r *Runtime) Schedule(ctx context.Context, instanceID string, input interface{}) error {
	if instanceID == "" {
		return errors.New("instance ID is required")
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return errors.Wrap(err, "failed to marshal workflow input")
	}

	r.mux.Lock()
	if _, exists := r.instances[instanceID]; exists {
		r.mux.Unlock()
		return ErrAlreadyScheduled
	}

	instanceCtx, cancel := context.WithCancel(context.Background())
	inst := &instance{
		id:        instanceID,
		runtime:   r,
		state:     StateRunning,
		updatedAt: time.Now(),
		events:    make(map[string]chan json.RawMessage),
		ctx:       instanceCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.instances[instanceID] = inst
	r.mux.Unlock()

	go inst.run(r.workflow, raw)

	return nil
}

// RaiseEvent delivers a named event to a live instance. Events raised after
// the instance terminated are dropped; events nobody is waiting for sit in
// the buffer until a wait consumes them or the instance ends.
func (r *Runtime) RaiseEvent(ctx context.Context, instanceID, eventName string, payload interface{}) error {
	if eventName == "" {
		return errors.New("event name is required")
	}

	r.mux.RLock()
	inst, exists := r.instances[instanceID]
	r.mux.RUnlock()
	if !exists {
		return ErrInstanceNotFound
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event payload")
	}

	inst.mux.Lock()
	if inst.state == StateCompleted {
		inst.mux.Unlock()
		r.options.logger.Debug("dropping event for completed instance",
			"instance_id", instanceID, "event_name", eventName)
		return nil
	}
	ch := inst.eventChanLocked(eventName)
	inst.mux.Unlock()

	select {
	case ch <- raw:
		return nil
	default:
		r.options.logger.Warn("event buffer full, dropping event",
			"instance_id", instanceID, "event_name", eventName)
		return nil
	}
}

// Status reports a live instance, falling back to the snapshot store for
// instances that only exist as checkpoints from a previous process.
func (r *Runtime) Status(ctx context.Context, instanceID string) (*InstanceStatus, error) {
	r.mux.RLock()
	inst, exists := r.instances[instanceID]
	r.mux.RUnlock()

	if exists {
		inst.mux.Lock()
		defer inst.mux.Unlock()
		return &InstanceStatus{
			InstanceID: inst.id,
			Runtime:    inst.state,
			StatusText: inst.status,
			Result:     inst.result,
			UpdatedAt:  inst.updatedAt,
		}, nil
	}

	if r.options.store == nil {
		return nil, ErrInstanceNotFound
	}

	snapshot, err := r.options.store.Load(ctx, instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load instance snapshot")
	}
	if snapshot == nil {
		return nil, ErrInstanceNotFound
	}

	return &InstanceStatus{
		InstanceID: snapshot.InstanceID,
		Runtime:    snapshot.Runtime,
		StatusText: snapshot.StatusText,
		Result:     snapshot.Result,
		UpdatedAt:  snapshot.UpdatedAt,
	}, nil
}

// WaitDone blocks until the instance terminates or ctx is cancelled. Test
// and shutdown helper, not part of the Client contract.
func (r *Runtime) WaitDone(ctx context.Context, instanceID string) error {
	r.mux.RLock()
	inst, exists := r.instances[instanceID]
	r.mux.RUnlock()
	if !exists {
		return ErrInstanceNotFound
	}

	select {
	case <-inst.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every live instance.
func (r *Runtime) Shutdown() {
	r.mux.RLock()
	defer r.mux.RUnlock()
	for _, inst := range r.instances {
		inst.cancel()
	}
}

func (inst *instance) run(wf Workflow, input json.RawMessage) {
	defer close(inst.done)
	defer inst.cancel()

	result, err := wf(inst, input)
	if err != nil {
		inst.runtime.options.logger.Error("workflow terminated with error",
			"instance_id", inst.id, "error", err)
		result = false
	}

	inst.mux.Lock()
	inst.state = StateCompleted
	inst.result = &result
	inst.updatedAt = time.Now()
	inst.mux.Unlock()

	inst.checkpoint()
}

var _ Context = (*instance)(nil)

func (inst *instance) InstanceID() string {
	return inst.id
}

func (inst *instance) Context() context.Context {
	return inst.ctx
}

func (inst *instance) WaitForEvent(name string, timeout time.Duration) (json.RawMessage, error) {
	inst.mux.Lock()
	ch := inst.eventChanLocked(name)
	inst.mux.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-ch:
		return payload, nil
	case <-timer.C:
		return nil, errors.Wrapf(ErrEventTimeout, "event %q", name)
	case <-inst.ctx.Done():
		return nil, inst.ctx.Err()
	}
}

func (inst *instance) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-inst.ctx.Done():
		return inst.ctx.Err()
	}
}

func (inst *instance) SetStatus(status string) {
	inst.mux.Lock()
	inst.status = status
	inst.updatedAt = time.Now()
	inst.mux.Unlock()

	inst.checkpoint()
}

func (inst *instance) eventChanLocked(name string) chan json.RawMessage {
	ch, ok := inst.events[name]
	if !ok {
		ch = make(chan json.RawMessage, inst.runtime.options.eventBuffer)
		inst.events[name] = ch
	}
	return ch
}

// checkpoint persists the current snapshot, best-effort. A store failure
// never interrupts the instance.
func (inst *instance) checkpoint() {
	store := inst.runtime.options.store
	if store == nil {
		return
	}

	inst.mux.Lock()
	snapshot := Snapshot{
		InstanceID: inst.id,
		Runtime:    inst.state,
		StatusText: inst.status,
		Result:     inst.result,
		UpdatedAt:  inst.updatedAt,
	}
	inst.mux.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Save(ctx, snapshot); err != nil {
		inst.runtime.options.logger.Error("failed to checkpoint instance",
			"instance_id", inst.id, "error", err)
	}
}
