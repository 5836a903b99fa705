package control

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned while the breaker for a device host is open.
	ErrUnavailable = errors.New("control: device unavailable")

	// ErrBadResponse is returned when a response cannot be decoded.
	ErrBadResponse = errors.New("control: malformed SOAP response")

	// ErrOutOfRange is returned for argument values the action cannot accept.
	ErrOutOfRange = errors.New("control: value out of range")
)

// Common UPnP error codes.
const (
	CodeInvalidAction      = 401
	CodeInvalidArgs        = 402
	CodeActionFailed       = 501
	CodeTransitionNotAvail = 701
	CodeIllegalSeekTarget  = 711
)

// SOAPError is a UPnP fault returned by a device.
type SOAPError struct {
	Action      string
	Code        int
	Description string
}

func (e *SOAPError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("control: %s failed: UPnP error %d (%s)", e.Action, e.Code, e.Description)
	}
	return fmt.Sprintf("control: %s failed: UPnP error %d", e.Action, e.Code)
}

// StatusError reports a non-200 response that carried no SOAP fault.
type StatusError struct {
	Action string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("control: %s failed: HTTP %d", e.Action, e.Code)
}
