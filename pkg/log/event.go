package log

import (
	"time"
)

// MaxBodyCapture is the maximum number of body bytes kept in an ExchangeEvent.
const MaxBodyCapture = 4096

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ExchangeID correlates the request and response of one HTTP exchange (UUID).
	ExchangeID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// DeviceUDN is the unique device name, when known.
	DeviceUDN string `cbor:"7,keyasint,omitempty"`

	// SID is the GENA subscription identifier, when known.
	SID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"` // HTTP layer
	Notify      *NotifyEvent      `cbor:"11,keyasint,omitempty"` // GENA layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Subscription/listener state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerHTTP is the raw HTTP exchange layer.
	LayerHTTP Layer = 0
	// LayerGENA is the eventing layer (decoded property sets).
	LayerGENA Layer = 1
	// LayerService is the application/service layer.
	LayerService Layer = 2
	// LayerSOAP is the control layer (SOAP actions).
	LayerSOAP Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerHTTP:
		return "HTTP"
	case LayerGENA:
		return "GENA"
	case LayerService:
		return "SERVICE"
	case LayerSOAP:
		return "SOAP"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExchange indicates an HTTP request or response.
	CategoryExchange Category = 0
	// CategoryNotify indicates a decoded event notification.
	CategoryNotify Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryNotify:
		return "NOTIFY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one side of an HTTP exchange (SUBSCRIBE, UNSUBSCRIBE,
// NOTIFY, SOAP POST, description GET).
type ExchangeEvent struct {
	// Method is the HTTP method of the request.
	Method string `cbor:"1,keyasint"`

	// URL is the request target.
	URL string `cbor:"2,keyasint,omitempty"`

	// StatusCode is set for responses.
	StatusCode *int `cbor:"3,keyasint,omitempty"`

	// Headers holds the protocol-relevant headers (SID, TIMEOUT, CALLBACK, SEQ, SOAPACTION).
	Headers map[string]string `cbor:"4,keyasint,omitempty"`

	// BodySize is the full body size in bytes.
	BodySize int `cbor:"5,keyasint,omitempty"`

	// Body is the body (truncated to MaxBodyCapture).
	Body []byte `cbor:"6,keyasint,omitempty"`

	// Truncated indicates if Body was truncated.
	Truncated bool `cbor:"7,keyasint,omitempty"`

	// Duration is the round-trip time (responses only). Stored as nanoseconds.
	Duration *time.Duration `cbor:"8,keyasint,omitempty"`
}

// SetBody stores body in the event, truncating it to MaxBodyCapture.
func (e *ExchangeEvent) SetBody(body []byte) {
	e.BodySize = len(body)
	if len(body) > MaxBodyCapture {
		e.Body = append([]byte(nil), body[:MaxBodyCapture]...)
		e.Truncated = true
		return
	}
	if len(body) > 0 {
		e.Body = append([]byte(nil), body...)
	}
}

// NotifyEvent captures a decoded GENA property set.
type NotifyEvent struct {
	// Seq is the event key sent by the publisher.
	Seq uint32 `cbor:"1,keyasint"`

	// Properties maps state variable names to their values.
	Properties map[string]string `cbor:"2,keyasint,omitempty"`

	// Routed reports whether a subscription was found for the SID.
	Routed bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures subscription and listener lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySubscription indicates a subscription state change.
	StateEntitySubscription StateEntity = 0
	// StateEntityListener indicates a callback listener state change.
	StateEntityListener StateEntity = 1
	// StateEntityDevice indicates a device presence change.
	StateEntityDevice StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityListener:
		return "LISTENER"
	case StateEntityDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the HTTP status or SOAP error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
