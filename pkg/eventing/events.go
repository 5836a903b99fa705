package eventing

// Handler receives the lifecycle events and notifications of one subscription.
//
// Methods are called from eventing goroutines (the subscribe/renew goroutine or
// the NOTIFY dispatch worker) and must not block for long. Embed NopHandler to
// implement only some of them.
type Handler interface {
	// OnSubscribed is called once the device accepted the initial SUBSCRIBE.
	OnSubscribed(sid string)

	// OnResubscribed is called after every successful renewal.
	OnResubscribed(sid string)

	// OnUnsubscribed is called when UNSUBSCRIBE was answered or timed out.
	OnUnsubscribed(sid string)

	// OnMessage is called for each NOTIFY routed to the subscription.
	OnMessage(msg Message)

	// OnError reports a failed initial SUBSCRIBE or an undecodable NOTIFY.
	OnError(err error)

	// OnResubscribeError reports a failed renewal. The subscription is
	// terminated and not retried.
	OnResubscribeError(sid string, err error)

	// OnUnsubscribeError reports an UNSUBSCRIBE that could not be sent.
	OnUnsubscribeError(err error)
}

// EventType identifies a subscription event.
type EventType uint8

const (
	// EventSubscribed - initial SUBSCRIBE accepted.
	EventSubscribed EventType = iota

	// EventResubscribed - renewal accepted.
	EventResubscribed

	// EventUnsubscribed - UNSUBSCRIBE answered or timed out.
	EventUnsubscribed

	// EventMessage - NOTIFY received.
	EventMessage

	// EventError - initial SUBSCRIBE failed or NOTIFY undecodable.
	EventError

	// EventResubscribeError - renewal failed.
	EventResubscribeError

	// EventUnsubscribeError - UNSUBSCRIBE failed.
	EventUnsubscribeError
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventSubscribed:
		return "subscribed"
	case EventResubscribed:
		return "resubscribed"
	case EventUnsubscribed:
		return "unsubscribed"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventResubscribeError:
		return "error:resubscribe"
	case EventUnsubscribeError:
		return "error:unsubscribe"
	default:
		return "unknown"
	}
}

// Event is the single-value form of a Handler callback.
type Event struct {
	Type    EventType
	SID     string
	Message *Message
	Err     error
}

// HandlerFunc adapts a function receiving Events to the Handler interface.
type HandlerFunc func(Event)

func (f HandlerFunc) OnSubscribed(sid string)   { f(Event{Type: EventSubscribed, SID: sid}) }
func (f HandlerFunc) OnResubscribed(sid string) { f(Event{Type: EventResubscribed, SID: sid}) }
func (f HandlerFunc) OnUnsubscribed(sid string) { f(Event{Type: EventUnsubscribed, SID: sid}) }
func (f HandlerFunc) OnMessage(msg Message) {
	f(Event{Type: EventMessage, SID: msg.SID, Message: &msg})
}
func (f HandlerFunc) OnError(err error) { f(Event{Type: EventError, Err: err}) }
func (f HandlerFunc) OnResubscribeError(sid string, err error) {
	f(Event{Type: EventResubscribeError, SID: sid, Err: err})
}
func (f HandlerFunc) OnUnsubscribeError(err error) { f(Event{Type: EventUnsubscribeError, Err: err}) }

// NopHandler ignores every event.
type NopHandler struct{}

func (NopHandler) OnSubscribed(string)              {}
func (NopHandler) OnResubscribed(string)            {}
func (NopHandler) OnUnsubscribed(string)            {}
func (NopHandler) OnMessage(Message)                {}
func (NopHandler) OnError(error)                    {}
func (NopHandler) OnResubscribeError(string, error) {}
func (NopHandler) OnUnsubscribeError(error)         {}

var (
	_ Handler = HandlerFunc(nil)
	_ Handler = NopHandler{}
)
