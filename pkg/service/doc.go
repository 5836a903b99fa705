// Package service ties discovery, eventing, control and the state store
// together into a UPnP media control point.
//
// # ControllerService
//
// ControllerService periodically discovers renderers, reads their
// descriptions and materializes an object tree in a persistence.StateStore:
//
//	upnp.<udn>                          device
//	upnp.<udn>.info.*                   friendly name, location, model
//	upnp.<udn>.available                "true" while discovery sees it
//	upnp.<udn>.<Service>                one channel per service
//	upnp.<udn>.<Service>.<Variable>     evented state variables (ack=true)
//	upnp.<udn>.AVTransport.play         commands (write with ack=false)
//
// Every evented service gets a GENA subscription. Property sets, including
// AVTransport and RenderingControl LastChange documents, are written as
// acknowledged states. Writing a command state with ack=false invokes the
// matching SOAP action; on success the state is written back with ack=true.
//
// A subscription whose SUBSCRIBE or renewal fails is recreated after an
// exponential backoff. Devices that discovery has not seen for DeviceTTL are
// unsubscribed and removed.
//
// Example usage:
//
//	store := persistence.NewMemoryStore("")
//	config := service.DefaultConfig()
//	config.Store = store
//
//	svc, err := service.NewControllerService(config)
//	svc.OnEvent(func(e service.Event) { ... })
//	svc.Start(ctx)
//	defer svc.Stop(ctx)
//
//	svc.Command(ctx, "Living Room", service.CommandVolume, "25")
package service
