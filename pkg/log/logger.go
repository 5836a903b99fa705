package log

import "time"

// Logger is the interface applications implement to receive protocol log events.
// Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe and
	// must not block for long; the eventing dispatch path calls Log inline.
	Log(event Event)
}

// LoggerFunc adapts a plain function to the Logger interface.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// NoopLogger discards all events. Use when capture is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Emit stamps the event and passes it to l. A nil l is ignored.
func Emit(l Logger, event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.Log(event)
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
