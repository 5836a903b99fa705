package eventing

import (
	"errors"
	"fmt"
)

// Eventing errors.
var (
	// ErrNotSubscribed is reported when an unsubscribe is requested before the
	// device assigned a SID.
	ErrNotSubscribed = errors.New("eventing: subscription has no SID")

	// ErrMissingSID is reported when a SUBSCRIBE response carries no SID header.
	ErrMissingSID = errors.New("eventing: SUBSCRIBE response without SID")

	// ErrListenerClosed is reported to start requests after Close.
	ErrListenerClosed = errors.New("eventing: callback listener closed")

	// ErrTerminated is reported when an operation targets a terminated subscription.
	ErrTerminated = errors.New("eventing: subscription terminated")

	// ErrNoCallbackAddress is reported when no local address can reach the device.
	ErrNoCallbackAddress = errors.New("eventing: no local address for callback URL")

	// ErrClosed is reported to subscriptions still pending when the Eventing instance closes.
	ErrClosed = errors.New("eventing: closed")
)

// StatusError reports a non-2xx response to a GENA request.
type StatusError struct {
	Method string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eventing: %s rejected with status %d", e.Method, e.Code)
}

// ParseError reports a NOTIFY body that could not be decoded. It only affects
// the one notification.
type ParseError struct {
	SID string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("eventing: parse NOTIFY for %s: %v", e.SID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
