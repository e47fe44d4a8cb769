package application

import (
	"context"
	"testing"

	"github.com/driveflow/reservation-system/reservation-service/saga"
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartReservationExecute(t *testing.T) {
	knownID := models.GenerateUUID().String()

	tests := []struct {
		name       string
		cmd        *StartReservationCommand
		setup      func(client *fakeWorkflowClient)
		wantErr    error
		wantAnyErr bool
	}{
		{
			name: "schedules saga with provided reservation ID",
			cmd: &StartReservationCommand{
				ReservationID: knownID,
				CustomerName:  "Ada Lovelace",
				CarClass:      "compact",
			},
		},
		{
			name: "generates a reservation ID when absent",
			cmd: &StartReservationCommand{
				CustomerName: "Grace Hopper",
				CarClass:     "fullsize",
			},
		},
		{
			name: "rejects missing customer name",
			cmd: &StartReservationCommand{
				CarClass: "compact",
			},
			wantAnyErr: true,
		},
		{
			name: "rejects missing car class",
			cmd: &StartReservationCommand{
				CustomerName: "Ada Lovelace",
			},
			wantAnyErr: true,
		},
		{
			name: "rejects malformed reservation ID",
			cmd: &StartReservationCommand{
				ReservationID: "not-a-uuid",
				CustomerName:  "Ada Lovelace",
				CarClass:      "compact",
			},
			wantAnyErr: true,
		},
		{
			name: "maps duplicate identity to ErrReservationExists",
			cmd: &StartReservationCommand{
				ReservationID: knownID,
				CustomerName:  "Ada Lovelace",
				CarClass:      "compact",
			},
			setup: func(client *fakeWorkflowClient) {
				client.scheduled[knownID] = struct{}{}
			},
			wantErr: ErrReservationExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeWorkflowClient()
			if tt.setup != nil {
				tt.setup(client)
			}
			uc := NewStartReservation(client, testLogger())

			response, err := uc.Execute(context.Background(), tt.cmd)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantAnyErr {
				assert.Error(t, err)
				assert.Empty(t, client.scheduled)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, response)
			assert.NotEmpty(t, response.ReservationID)
			assert.Equal(t, tt.cmd.CustomerName, response.CustomerName)
			assert.Equal(t, tt.cmd.CarClass, response.CarClass)
			if tt.cmd.ReservationID != "" {
				assert.Equal(t, tt.cmd.ReservationID, response.ReservationID)
			}

			input, ok := client.scheduled[response.ReservationID]
			require.True(t, ok, "saga instance not scheduled")
			info, ok := input.(saga.ReservationInfo)
			require.True(t, ok)
			assert.Equal(t, response.ReservationID, info.ReservationID.String())
			assert.Equal(t, tt.cmd.CustomerName, info.CustomerName)
		})
	}
}
