package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChannelMaster is the master volume channel.
const ChannelMaster = "Master"

// RenderingControl drives the RenderingControl service of one renderer.
type RenderingControl struct {
	client      *Client
	controlURL  string
	serviceType string
}

// NewRenderingControl returns a RenderingControl for the service at
// controlURL. serviceType may be empty for RenderingControl:1.
func NewRenderingControl(client *Client, controlURL, serviceType string) *RenderingControl {
	if serviceType == "" {
		serviceType = ServiceRenderingControl
	}
	return &RenderingControl{client: client, controlURL: controlURL, serviceType: serviceType}
}

func (r *RenderingControl) call(ctx context.Context, action string, args ...Arg) (map[string]string, error) {
	all := append([]Arg{{Name: "InstanceID", Value: "0"}, {Name: "Channel", Value: ChannelMaster}}, args...)
	return r.client.Invoke(ctx, r.controlURL, r.serviceType, action, all)
}

// GetVolume returns the master volume (0-100).
func (r *RenderingControl) GetVolume(ctx context.Context) (int, error) {
	out, err := r.call(ctx, "GetVolume")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(out["CurrentVolume"]))
	if err != nil {
		return 0, fmt.Errorf("%w: CurrentVolume %q", ErrBadResponse, out["CurrentVolume"])
	}
	return v, nil
}

// SetVolume sets the master volume.
func (r *RenderingControl) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("%w: volume %d", ErrOutOfRange, volume)
	}
	_, err := r.call(ctx, "SetVolume", Arg{Name: "DesiredVolume", Value: strconv.Itoa(volume)})
	return err
}

// GetMute returns the master mute state.
func (r *RenderingControl) GetMute(ctx context.Context) (bool, error) {
	out, err := r.call(ctx, "GetMute")
	if err != nil {
		return false, err
	}
	return ParseBool(out["CurrentMute"]), nil
}

// SetMute sets the master mute state.
func (r *RenderingControl) SetMute(ctx context.Context, mute bool) error {
	v := "0"
	if mute {
		v = "1"
	}
	_, err := r.call(ctx, "SetMute", Arg{Name: "DesiredMute", Value: v})
	return err
}

// ParseBool interprets UPnP boolean values ("1", "true", "yes").
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
