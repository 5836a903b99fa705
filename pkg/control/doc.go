// Package control invokes UPnP actions over SOAP.
//
// Client.Invoke performs an action through goupnp's SOAP client and returns
// either the response arguments or the UPnP fault (*SOAPError), whatever HTTP
// status the fault came with. Requests to
// each device host pass through their own circuit breaker, so an unreachable
// renderer fails fast instead of tying up callers for the full timeout.
//
// AVTransport and RenderingControl wrap the actions a media controller needs.
package control
