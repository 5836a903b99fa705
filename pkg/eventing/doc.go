// Package eventing implements the control point side of UPnP GENA eventing.
//
// An Eventing instance owns one callback HTTP listener, started lazily on a
// free port the first time a subscription needs it, and a registry mapping
// subscription identifiers (SIDs) to subscriptions. Devices deliver NOTIFY
// requests to the listener; each is acknowledged immediately, decoded off the
// request path, and routed to its subscription by SID.
//
// # Subscription Lifecycle
//
//	Created -> Pending -> Active -> Terminated
//
// A subscription becomes Active when the device answers SUBSCRIBE with a SID.
// It renews one second before the granted TIMEOUT expires. A failed renewal
// terminates it and reports OnResubscribeError; callers that want to stay
// subscribed create a new subscription. Unsubscribe cancels the renewal,
// sends UNSUBSCRIBE and waits at most three seconds for the device.
//
// # Events
//
// Subscription progress is reported through a Handler:
//
//	ev := eventing.New(eventing.DefaultConfig())
//	sub := ev.Subscribe(target, eventing.HandlerFunc(func(e eventing.Event) {
//	    if e.Type == eventing.EventMessage {
//	        vol, _ := e.Message.Get("Volume")
//	        fmt.Println(vol)
//	    }
//	}))
//	defer sub.Unsubscribe(context.Background())
//
// Routing misses (NOTIFY for an unknown SID) are dropped silently. Errors never
// stop the shared listener.
package eventing
