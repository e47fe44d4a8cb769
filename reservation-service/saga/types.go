package saga

import (
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/pkg/errors"
)

// ReservationInfo is the immutable input of one saga instance. The
// reservation ID doubles as the workflow instance identity, so at most one
// saga runs per reservation.
type ReservationInfo struct {
	ReservationID models.ID `json:"reservation_id"`
	CustomerName  string    `json:"customer_name"`
	CarClass      string    `json:"car_class"`
}

func (r ReservationInfo) Validate() error {
	if r.ReservationID.IsZero() {
		return errors.New("reservation ID is required")
	}
	if r.CustomerName == "" {
		return errors.New("customer name is required")
	}
	if r.CarClass == "" {
		return errors.New("car class is required")
	}
	return nil
}

// Action is the closed set of operations a step request can carry.
type Action string

const (
	ActionReserve Action = "reserve"
	ActionCancel  Action = "cancel"
	ActionCharge  Action = "charge"
	ActionRefund  Action = "refund"
)

// BookingRequest asks the booking manager to reserve or cancel a vehicle.
type BookingRequest struct {
	Action        Action    `json:"action"`
	CarClass      string    `json:"car_class"`
	CustomerName  string    `json:"customer_name"`
	ReservationID models.ID `json:"reservation_id"`
}

// InventoryRequest asks the inventory manager to reserve or release stock.
// The order ID is the reservation ID.
type InventoryRequest struct {
	Action   Action    `json:"action"`
	CarClass string    `json:"car_class"`
	OrderID  models.ID `json:"order_id"`
}

// BillingRequest asks the billing manager to charge or refund the customer.
type BillingRequest struct {
	Action        Action    `json:"action"`
	CarClass      string    `json:"car_class"`
	CustomerName  string    `json:"customer_name"`
	ReservationID models.ID `json:"reservation_id"`
}

// StepOutcome is the payload of an inbound callback event. It must carry the
// same reservation ID as the request it answers.
type StepOutcome struct {
	ReservationID models.ID `json:"reservation_id"`
	IsSuccess     bool      `json:"is_success"`
}

// Progress tracks which steps have succeeded so far. The flags are the sole
// input to the compensation decision and are never reset once true.
type Progress struct {
	Booking   bool `json:"booking"`
	Inventory bool `json:"inventory"`
	Charge    bool `json:"charge"`
}

// Any reports whether at least one step has succeeded, i.e. whether a
// failure now requires compensation.
func (p Progress) Any() bool {
	return p.Booking || p.Inventory || p.Charge
}

// stepFault is the explicit fault value that replaces exception-based control
// flow: it names what went wrong and freezes the progress snapshot taken at
// the moment the failure was detected. The compensation pass consumes the
// snapshot, nothing else.
type stepFault struct {
	reason   string
	progress Progress
}

func newFault(reason string, progress Progress) *stepFault {
	return &stepFault{reason: reason, progress: progress}
}
