package saga

import (
	"context"
	"testing"
	"time"

	"github.com/driveflow/reservation-system/shared/events"
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSagaHarness(failOn func(*events.Event) bool, billingStatuses []string, waitTimeout time.Duration) (*workflow.Runtime, *recordingPublisher, *stubBillingClient) {
	logger := testLogger()
	publisher := &recordingPublisher{failOn: failOn}
	billing := &stubBillingClient{statuses: billingStatuses}

	dispatcher := NewDispatcher(publisher, "/reservation-response-queue", logger)
	poller := NewConfirmationPoller(billing, 3, time.Millisecond, logger)
	orchestrator := NewOrchestrator(dispatcher, poller, Config{WaitTimeout: waitTimeout}, logger)

	runtime := workflow.NewRuntime(orchestrator.Workflow(), workflow.WithLogger(logger))
	return runtime, publisher, billing
}

func runSaga(t *testing.T, runtime *workflow.Runtime, info ReservationInfo, outcomes map[StepKind]StepOutcome) *workflow.InstanceStatus {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, runtime.Schedule(ctx, info.ReservationID.String(), info))
	for kind, outcome := range outcomes {
		require.NoError(t, runtime.RaiseEvent(ctx, info.ReservationID.String(), Descriptor(kind).EventName, outcome))
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, runtime.WaitDone(waitCtx, info.ReservationID.String()))

	status, err := runtime.Status(ctx, info.ReservationID.String())
	require.NoError(t, err)
	return status
}

func TestOrchestratorRun(t *testing.T) {
	type dispatchCount struct {
		kind   StepKind
		action Action
		want   int
	}

	bothConfirmed := func(id models.ID) map[StepKind]StepOutcome {
		return map[StepKind]StepOutcome{
			StepBooking:   {ReservationID: id, IsSuccess: true},
			StepInventory: {ReservationID: id, IsSuccess: true},
		}
	}

	tests := []struct {
		name             string
		failOn           func(*events.Event) bool
		billingStatuses  []string
		outcomes         func(id models.ID) map[StepKind]StepOutcome
		waitTimeout      time.Duration
		wantResult       bool
		wantStatus       string
		wantBillingCalls int
		wantDispatches   []dispatchCount
	}{
		{
			name:             "completes without compensation when every step succeeds",
			billingStatuses:  []string{"confirmed"},
			outcomes:         bothConfirmed,
			wantResult:       true,
			wantStatus:       "Reservation completed successfully",
			wantBillingCalls: 1,
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepInventory, ActionReserve, 1},
				{StepBilling, ActionCharge, 1},
				{StepBooking, ActionCancel, 0},
				{StepInventory, ActionCancel, 0},
				{StepBilling, ActionRefund, 0},
			},
		},
		{
			name:       "booking dispatch failure ends the saga with nothing to undo",
			failOn:     failDispatch(events.BookingChannelTopic, ActionReserve),
			wantResult: false,
			wantStatus: "Reservation failed: error booking a car",
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 0},
				{StepInventory, ActionReserve, 0},
				{StepBooking, ActionCancel, 0},
				{StepInventory, ActionCancel, 0},
				{StepBilling, ActionRefund, 0},
			},
		},
		{
			name:       "inventory dispatch failure cancels the booking only",
			failOn:     failDispatch(events.InventoryChannelTopic, ActionReserve),
			wantResult: false,
			wantStatus: "Reservation failed: error reserving inventory",
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepBooking, ActionCancel, 1},
				{StepInventory, ActionCancel, 0},
				{StepBilling, ActionRefund, 0},
			},
		},
		{
			name:       "charge dispatch failure cancels booking and inventory without a refund",
			failOn:     failDispatch(events.BillingChannelTopic, ActionCharge),
			outcomes:   bothConfirmed,
			wantResult: false,
			wantStatus: "Reservation failed: error charging the customer",
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepInventory, ActionReserve, 1},
				{StepBilling, ActionCharge, 0},
				{StepBooking, ActionCancel, 1},
				{StepInventory, ActionCancel, 1},
				{StepBilling, ActionRefund, 0},
			},
		},
		{
			name:             "unconfirmed billing exhausts the lookups and unwinds every step",
			billingStatuses:  []string{"pending"},
			outcomes:         bothConfirmed,
			wantResult:       false,
			wantStatus:       "Reservation failed: billing confirmation exhausted",
			wantBillingCalls: 3,
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepInventory, ActionReserve, 1},
				{StepBilling, ActionCharge, 1},
				{StepBooking, ActionCancel, 1},
				{StepInventory, ActionCancel, 1},
				{StepBilling, ActionRefund, 1},
			},
		},
		{
			name:        "callback timeout cancels the steps whose requests went out",
			waitTimeout: 50 * time.Millisecond,
			wantResult:  false,
			wantStatus:  "Reservation failed: booking or inventory confirmation timed out",
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepInventory, ActionReserve, 1},
				{StepBilling, ActionCharge, 0},
				{StepBooking, ActionCancel, 1},
				{StepInventory, ActionCancel, 1},
				{StepBilling, ActionRefund, 0},
			},
		},
		{
			name: "negative booking outcome cancels both dispatched steps",
			outcomes: func(id models.ID) map[StepKind]StepOutcome {
				return map[StepKind]StepOutcome{
					StepBooking:   {ReservationID: id, IsSuccess: false},
					StepInventory: {ReservationID: id, IsSuccess: true},
				}
			},
			wantResult: false,
			wantStatus: "Reservation failed: booking or inventory failed",
			wantDispatches: []dispatchCount{
				{StepBooking, ActionReserve, 1},
				{StepInventory, ActionReserve, 1},
				{StepBilling, ActionCharge, 0},
				{StepBooking, ActionCancel, 1},
				{StepInventory, ActionCancel, 1},
				{StepBilling, ActionRefund, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waitTimeout := tt.waitTimeout
			if waitTimeout == 0 {
				waitTimeout = 5 * time.Second
			}
			runtime, publisher, billing := newSagaHarness(tt.failOn, tt.billingStatuses, waitTimeout)
			defer runtime.Shutdown()

			info := ReservationInfo{
				ReservationID: models.GenerateUUID(),
				CustomerName:  "Ada Lovelace",
				CarClass:      "compact",
			}

			outcomes := map[StepKind]StepOutcome{}
			if tt.outcomes != nil {
				outcomes = tt.outcomes(info.ReservationID)
			}

			status := runSaga(t, runtime, info, outcomes)

			require.NotNil(t, status.Result)
			assert.Equal(t, tt.wantResult, *status.Result)
			assert.Equal(t, workflow.StateCompleted, status.Runtime)
			assert.Equal(t, tt.wantStatus, status.StatusText)
			assert.Equal(t, tt.wantBillingCalls, billing.callCount())

			for _, dc := range tt.wantDispatches {
				got := publisher.countDispatches(Descriptor(dc.kind).Channel, dc.action)
				assert.Equalf(t, dc.want, got, "dispatch count for %s/%s", dc.kind, dc.action)
			}
		})
	}
}

func TestOrchestratorRunConsumesEachCallbackOnce(t *testing.T) {
	runtime, publisher, _ := newSagaHarness(nil, []string{"confirmed"}, 5*time.Second)
	defer runtime.Shutdown()

	ctx := context.Background()
	info := ReservationInfo{
		ReservationID: models.GenerateUUID(),
		CustomerName:  "Grace Hopper",
		CarClass:      "fullsize",
	}
	id := info.ReservationID.String()
	outcome := StepOutcome{ReservationID: info.ReservationID, IsSuccess: true}

	require.NoError(t, runtime.Schedule(ctx, id, info))

	// Duplicate delivery of the booking callback must not advance anything
	// twice.
	require.NoError(t, runtime.RaiseEvent(ctx, id, Descriptor(StepBooking).EventName, outcome))
	require.NoError(t, runtime.RaiseEvent(ctx, id, Descriptor(StepBooking).EventName, outcome))
	require.NoError(t, runtime.RaiseEvent(ctx, id, Descriptor(StepInventory).EventName, outcome))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, runtime.WaitDone(waitCtx, id))

	status, err := runtime.Status(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, status.Result)
	assert.True(t, *status.Result)
	assert.Equal(t, "Reservation completed successfully", status.StatusText)

	// Late re-delivery after completion is dropped without error.
	require.NoError(t, runtime.RaiseEvent(ctx, id, Descriptor(StepBooking).EventName, outcome))

	after, err := runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, status.StatusText, after.StatusText)
	assert.Equal(t, 3, len(publisher.events()))
}

func TestOrchestratorRunRejectsInvalidInput(t *testing.T) {
	runtime, publisher, billing := newSagaHarness(nil, nil, 5*time.Second)
	defer runtime.Shutdown()

	info := ReservationInfo{
		ReservationID: models.GenerateUUID(),
		CarClass:      "compact",
		// customer name missing
	}

	status := runSaga(t, runtime, info, nil)

	require.NotNil(t, status.Result)
	assert.False(t, *status.Result)
	assert.Equal(t, "Invalid reservation request", status.StatusText)
	assert.Empty(t, publisher.events())
	assert.Zero(t, billing.callCount())
}
