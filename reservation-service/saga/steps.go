package saga

import (
	"github.com/driveflow/reservation-system/shared/events"
)

// StepKind identifies one of the three remote steps of the saga.
type StepKind string

const (
	StepBooking   StepKind = "booking"
	StepInventory StepKind = "inventory"
	StepBilling   StepKind = "billing"
)

// StepDescriptor binds a step to its worker channel and the versioned
// callback event name used to correlate the worker's asynchronous answer.
// The correlation key of a dispatch is {instance ID, EventName}.
type StepDescriptor struct {
	Kind      StepKind
	Channel   events.Topic
	EventName string
}

// stepTable is the single definition of every step's routing. Event names
// are explicit and versioned rather than derived from type names.
var stepTable = map[StepKind]StepDescriptor{
	StepBooking: {
		Kind:      StepBooking,
		Channel:   events.BookingChannelTopic,
		EventName: "booking.step.v1",
	},
	StepInventory: {
		Kind:      StepInventory,
		Channel:   events.InventoryChannelTopic,
		EventName: "inventory.step.v1",
	},
	StepBilling: {
		Kind:      StepBilling,
		Channel:   events.BillingChannelTopic,
		EventName: "billing.step.v1",
	},
}

// Descriptor returns the routing descriptor for a step. Unknown kinds are a
// programming error and panic.
func Descriptor(kind StepKind) StepDescriptor {
	descriptor, ok := stepTable[kind]
	if !ok {
		panic("saga: unknown step kind " + string(kind))
	}
	return descriptor
}

// dispatchStatusText maps a step and action to the status-trail message
// recorded after a successful dispatch.
var dispatchStatusText = map[StepKind]map[Action]string{
	StepBooking: {
		ActionReserve: "Car booked request has sent successfully",
		ActionCancel:  "Car booking cancellation request has sent",
	},
	StepInventory: {
		ActionReserve: "Inventory reserved request has sent successfully",
		ActionCancel:  "Inventory cancellation request has sent",
	},
	StepBilling: {
		ActionCharge: "Customer charged request has sent successfully",
		ActionRefund: "Customer refunded request has sent",
	},
}

// dispatchErrorText maps a step and action to the status-trail message
// recorded when the dispatch itself fails.
var dispatchErrorText = map[StepKind]map[Action]string{
	StepBooking: {
		ActionReserve: "Error booking a car",
		ActionCancel:  "Error sending car booking cancellation",
	},
	StepInventory: {
		ActionReserve: "Error reserving inventory",
		ActionCancel:  "Error sending inventory cancellation",
	},
	StepBilling: {
		ActionCharge: "Error charging the customer",
		ActionRefund: "Error sending customer refund",
	},
}

func statusForDispatch(kind StepKind, action Action, ok bool) string {
	table := dispatchStatusText
	if !ok {
		table = dispatchErrorText
	}
	if text, found := table[kind][action]; found {
		return text
	}
	return ""
}
