package events

import (
	"time"

	"github.com/pkg/errors"
)

// Metadata keys carrying correlation routing on every outbound step request.
// Workers copy them verbatim onto their response so the callback sink can
// address the waiting saga instance.
const (
	CallbackAddressKey  = "x-callback-address"
	DispatchTimeKey     = "x-message-dispatch-time"
	CallbackInstanceKey = "x-callback-instance-id"
	CallbackEventKey    = "x-callback-event-name"
)

var ErrIncompleteEnvelope = errors.New("correlation envelope is incomplete")

// CorrelationEnvelope wraps an outbound request with the metadata needed to
// route its eventual asynchronous response back to the originating saga
// instance and step.
type CorrelationEnvelope struct {
	CallbackAddress string    `json:"callback_address"`
	DispatchTimeUTC time.Time `json:"dispatch_time_utc"`
	InstanceID      string    `json:"instance_id"`
	EventName       string    `json:"event_name"`
}

// NewCorrelationEnvelope builds an envelope stamped with the current UTC time.
func NewCorrelationEnvelope(callbackAddress, instanceID, eventName string) CorrelationEnvelope {
	return CorrelationEnvelope{
		CallbackAddress: callbackAddress,
		DispatchTimeUTC: time.Now().UTC(),
		InstanceID:      instanceID,
		EventName:       eventName,
	}
}

// Validate checks that the envelope carries everything a worker needs to
// answer the request.
func (c CorrelationEnvelope) Validate() error {
	if c.CallbackAddress == "" || c.InstanceID == "" || c.EventName == "" {
		return ErrIncompleteEnvelope
	}
	return nil
}

// ToMetadata renders the envelope as message metadata. The dispatch time is
// encoded as ISO-8601 UTC.
func (c CorrelationEnvelope) ToMetadata() Metadata {
	return Metadata{
		CallbackAddressKey:  c.CallbackAddress,
		DispatchTimeKey:     c.DispatchTimeUTC.Format(time.RFC3339Nano),
		CallbackInstanceKey: c.InstanceID,
		CallbackEventKey:    c.EventName,
	}
}

// EnvelopeFromMetadata reconstructs an envelope from inbound message metadata.
// A missing or unparsable dispatch time is tolerated; missing routing fields
// are not.
func EnvelopeFromMetadata(m Metadata) (CorrelationEnvelope, error) {
	envelope := CorrelationEnvelope{
		CallbackAddress: m[CallbackAddressKey],
		InstanceID:      m[CallbackInstanceKey],
		EventName:       m[CallbackEventKey],
	}

	if raw, ok := m.Get(DispatchTimeKey); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			envelope.DispatchTimeUTC = ts
		}
	}

	if envelope.InstanceID == "" || envelope.EventName == "" {
		return CorrelationEnvelope{}, ErrIncompleteEnvelope
	}

	return envelope, nil
}
