package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaiseStepResultExecute(t *testing.T) {
	payload := json.RawMessage(`{"reservation_id":"r-1","is_success":true}`)

	tests := []struct {
		name       string
		cmd        *RaiseStepResultCommand
		raiseErr   error
		wantRaised int
	}{
		{
			name: "delivers the callback to the instance",
			cmd: &RaiseStepResultCommand{
				InstanceID: "instance-1",
				EventName:  "booking.step.v1",
				Payload:    payload,
			},
			wantRaised: 1,
		},
		{
			name: "drops callbacks without an instance ID",
			cmd: &RaiseStepResultCommand{
				EventName: "booking.step.v1",
				Payload:   payload,
			},
		},
		{
			name: "drops callbacks without an event name",
			cmd: &RaiseStepResultCommand{
				InstanceID: "instance-1",
				Payload:    payload,
			},
		},
		{
			name: "swallows delivery failures",
			cmd: &RaiseStepResultCommand{
				InstanceID: "instance-1",
				EventName:  "inventory.step.v1",
				Payload:    payload,
			},
			raiseErr: errors.New("instance not found"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeWorkflowClient()
			client.raiseErr = tt.raiseErr
			uc := NewRaiseStepResult(client, testLogger())

			err := uc.Execute(context.Background(), tt.cmd)

			require.NoError(t, err)
			raised := client.raisedEvents()
			assert.Len(t, raised, tt.wantRaised)
			if tt.wantRaised > 0 {
				assert.Equal(t, tt.cmd.InstanceID, raised[0].instanceID)
				assert.Equal(t, tt.cmd.EventName, raised[0].eventName)
				assert.Equal(t, tt.cmd.Payload, raised[0].payload)
			}
		})
	}
}
