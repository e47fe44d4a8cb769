package saga

import (
	"testing"
	"time"

	"github.com/driveflow/reservation-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfirmationPollerConfirm(t *testing.T) {
	reservationID := models.GenerateUUID()
	delayUnit := 100 * time.Millisecond

	tests := []struct {
		name       string
		statuses   []string
		err        error
		wantResult bool
		wantCalls  int
		wantSleeps []time.Duration
	}{
		{
			name:       "confirmed on first attempt without pausing",
			statuses:   []string{"confirmed"},
			wantResult: true,
			wantCalls:  1,
			wantSleeps: nil,
		},
		{
			name:       "confirmed on last attempt after growing pauses",
			statuses:   []string{"pending", "pending", "confirmed"},
			wantResult: true,
			wantCalls:  3,
			wantSleeps: []time.Duration{1 * delayUnit, 2 * delayUnit},
		},
		{
			name:       "never confirmed exhausts every attempt",
			statuses:   []string{"pending"},
			wantResult: false,
			wantCalls:  3,
			wantSleeps: []time.Duration{1 * delayUnit, 2 * delayUnit},
		},
		{
			name:       "lookup errors count as non-confirmation",
			err:        errors.New("billing manager unreachable"),
			wantResult: false,
			wantCalls:  3,
			wantSleeps: []time.Duration{1 * delayUnit, 2 * delayUnit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubBillingClient{statuses: tt.statuses, err: tt.err}
			poller := NewConfirmationPoller(client, 3, delayUnit, testLogger())
			ctx := newFakeWorkflowContext(reservationID.String())

			got := poller.Confirm(ctx, reservationID)

			assert.Equal(t, tt.wantResult, got)
			assert.Equal(t, tt.wantCalls, client.callCount())
			assert.Equal(t, tt.wantSleeps, ctx.recordedSleeps())
		})
	}
}
