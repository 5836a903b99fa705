package control

import (
	"context"
	"strconv"
)

// Service types driven by this package.
const (
	ServiceAVTransport      = "urn:schemas-upnp-org:service:AVTransport:1"
	ServiceRenderingControl = "urn:schemas-upnp-org:service:RenderingControl:1"
)

// Seek units.
const (
	SeekRelTime   = "REL_TIME"
	SeekTrackNr   = "TRACK_NR"
	SeekAbsTime   = "ABS_TIME"
	SeekRelCount  = "REL_COUNT"
	SeekTimeDelta = "TIME_DELTA"
)

// TransportInfo is the result of GetTransportInfo.
type TransportInfo struct {
	State  string // CurrentTransportState, e.g. PLAYING
	Status string // CurrentTransportStatus, e.g. OK
	Speed  string
}

// PositionInfo is the result of GetPositionInfo.
type PositionInfo struct {
	Track         int
	TrackDuration string
	TrackMetaData string
	TrackURI      string
	RelTime       string
	AbsTime       string
}

// AVTransport drives the AVTransport service of one renderer.
type AVTransport struct {
	client      *Client
	controlURL  string
	serviceType string
	instanceID  string
}

// NewAVTransport returns an AVTransport for the service at controlURL.
// serviceType may be empty for AVTransport:1.
func NewAVTransport(client *Client, controlURL, serviceType string) *AVTransport {
	if serviceType == "" {
		serviceType = ServiceAVTransport
	}
	return &AVTransport{client: client, controlURL: controlURL, serviceType: serviceType, instanceID: "0"}
}

func (t *AVTransport) call(ctx context.Context, action string, args ...Arg) (map[string]string, error) {
	all := append([]Arg{{Name: "InstanceID", Value: t.instanceID}}, args...)
	return t.client.Invoke(ctx, t.controlURL, t.serviceType, action, all)
}

// Play starts playback at normal speed.
func (t *AVTransport) Play(ctx context.Context) error {
	_, err := t.call(ctx, "Play", Arg{Name: "Speed", Value: "1"})
	return err
}

// Pause pauses playback.
func (t *AVTransport) Pause(ctx context.Context) error {
	_, err := t.call(ctx, "Pause")
	return err
}

// Stop stops playback.
func (t *AVTransport) Stop(ctx context.Context) error {
	_, err := t.call(ctx, "Stop")
	return err
}

// Next skips to the next track.
func (t *AVTransport) Next(ctx context.Context) error {
	_, err := t.call(ctx, "Next")
	return err
}

// Previous skips to the previous track.
func (t *AVTransport) Previous(ctx context.Context) error {
	_, err := t.call(ctx, "Previous")
	return err
}

// Seek seeks to target in the given unit, e.g. Seek(ctx, SeekRelTime, "0:01:30").
func (t *AVTransport) Seek(ctx context.Context, unit, target string) error {
	_, err := t.call(ctx, "Seek", Arg{Name: "Unit", Value: unit}, Arg{Name: "Target", Value: target})
	return err
}

// SetAVTransportURI sets the current media URI with optional DIDL-Lite metadata.
func (t *AVTransport) SetAVTransportURI(ctx context.Context, uri, metadata string) error {
	_, err := t.call(ctx, "SetAVTransportURI",
		Arg{Name: "CurrentURI", Value: uri},
		Arg{Name: "CurrentURIMetaData", Value: metadata},
	)
	return err
}

// GetTransportInfo returns the transport state.
func (t *AVTransport) GetTransportInfo(ctx context.Context) (TransportInfo, error) {
	out, err := t.call(ctx, "GetTransportInfo")
	if err != nil {
		return TransportInfo{}, err
	}
	return TransportInfo{
		State:  out["CurrentTransportState"],
		Status: out["CurrentTransportStatus"],
		Speed:  out["CurrentSpeed"],
	}, nil
}

// GetPositionInfo returns the current track position.
func (t *AVTransport) GetPositionInfo(ctx context.Context) (PositionInfo, error) {
	out, err := t.call(ctx, "GetPositionInfo")
	if err != nil {
		return PositionInfo{}, err
	}
	track, _ := strconv.Atoi(out["Track"])
	return PositionInfo{
		Track:         track,
		TrackDuration: out["TrackDuration"],
		TrackMetaData: out["TrackMetaData"],
		TrackURI:      out["TrackURI"],
		RelTime:       out["RelTime"],
		AbsTime:       out["AbsTime"],
	}, nil
}
