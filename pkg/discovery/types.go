package discovery

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Well known search targets.
const (
	SearchAll           = "ssdp:all"
	SearchRootDevice    = "upnp:rootdevice"
	SearchMediaRenderer = "urn:schemas-upnp-org:device:MediaRenderer:1"
	SearchZonePlayer    = "urn:schemas-upnp-org:device:ZonePlayer:1"
)

// Source identifies how an Advertisement was obtained.
type Source uint8

const (
	SourceSSDP Source = iota
	SourceMDNS
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceSSDP:
		return "ssdp"
	case SourceMDNS:
		return "mdns"
	default:
		return "unknown"
	}
}

// Errors returned by this package.
var (
	ErrNoLocation    = errors.New("discovery: advertisement without location")
	ErrBadStatus     = errors.New("discovery: unexpected HTTP status")
	ErrNoRootDevice  = errors.New("discovery: description has no root device")
	ErrUnknownAction = errors.New("discovery: unknown action")
)

// Advertisement is one device announcement, from SSDP or mDNS.
type Advertisement struct {
	// Location is the URL of the device description.
	Location string

	// USN is the unique service name, e.g. "uuid:RINCON_X::urn:...".
	// For mDNS results it is the DNS-SD instance name.
	USN string

	// ST is the search target the response answered.
	ST string

	// Server is the SERVER header, if any.
	Server string

	// MaxAge is the advertisement lifetime from CACHE-CONTROL.
	MaxAge time.Duration

	// Addr is the address the announcement came from.
	Addr string

	Source Source
	SeenAt time.Time
}

// UDN returns the "uuid:..." part of the USN.
func (a Advertisement) UDN() string {
	udn, _, _ := strings.Cut(a.USN, "::")
	if strings.HasPrefix(udn, "uuid:") {
		return udn
	}
	return ""
}

// Finder produces the devices currently visible on the network.
type Finder interface {
	Discover(ctx context.Context) ([]Advertisement, error)
}

// Describer turns advertisement locations into parsed descriptions.
type Describer interface {
	Describe(ctx context.Context, locations []string) []Result
}
