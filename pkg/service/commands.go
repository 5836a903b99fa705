package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/persistence"
)

// Command names. Each is a writable state below the channel of its service,
// e.g. upnp.<udn>.RenderingControl.volume.
const (
	CommandPlay     = "play"
	CommandPause    = "pause"
	CommandStop     = "stop"
	CommandNext     = "next"
	CommandPrevious = "previous"
	CommandSeek     = "seek"
	CommandURI      = "uri"
	CommandVolume   = "volume"
	CommandMute     = "mute"
)

const (
	serviceAVTransport      = "AVTransport"
	serviceRenderingControl = "RenderingControl"
)

type commandSpec struct {
	name      string
	service   string
	role      string
	valueType string

	// button commands only act on truthy values.
	button bool

	run func(ctx context.Context, c *control.Client, svc discovery.Service, value string) error
}

func (c commandSpec) object() persistence.Object {
	return persistence.Object{
		Type:      persistence.ObjectState,
		Name:      c.name,
		Role:      c.role,
		ValueType: c.valueType,
		Read:      !c.button,
		Write:     true,
	}
}

func transport(c *control.Client, svc discovery.Service) *control.AVTransport {
	return control.NewAVTransport(c, svc.ControlURL, svc.ServiceType)
}

func rendering(c *control.Client, svc discovery.Service) *control.RenderingControl {
	return control.NewRenderingControl(c, svc.ControlURL, svc.ServiceType)
}

var commandSpecs = []commandSpec{
	{
		name: CommandPlay, service: serviceAVTransport, role: "button.play", valueType: "boolean", button: true,
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, _ string) error {
			return transport(c, svc).Play(ctx)
		},
	},
	{
		name: CommandPause, service: serviceAVTransport, role: "button.pause", valueType: "boolean", button: true,
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, _ string) error {
			return transport(c, svc).Pause(ctx)
		},
	},
	{
		name: CommandStop, service: serviceAVTransport, role: "button.stop", valueType: "boolean", button: true,
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, _ string) error {
			return transport(c, svc).Stop(ctx)
		},
	},
	{
		name: CommandNext, service: serviceAVTransport, role: "button.next", valueType: "boolean", button: true,
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, _ string) error {
			return transport(c, svc).Next(ctx)
		},
	},
	{
		name: CommandPrevious, service: serviceAVTransport, role: "button.prev", valueType: "boolean", button: true,
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, _ string) error {
			return transport(c, svc).Previous(ctx)
		},
	},
	{
		name: CommandSeek, service: serviceAVTransport, role: "media.seek", valueType: "string",
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, value string) error {
			unit, target, err := parseSeek(value)
			if err != nil {
				return err
			}
			return transport(c, svc).Seek(ctx, unit, target)
		},
	},
	{
		name: CommandURI, service: serviceAVTransport, role: "media.url", valueType: "string",
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, value string) error {
			uri := strings.TrimSpace(value)
			if uri == "" {
				return fmt.Errorf("%w: empty URI", ErrInvalidArgument)
			}
			return transport(c, svc).SetAVTransportURI(ctx, uri, "")
		},
	},
	{
		name: CommandVolume, service: serviceRenderingControl, role: "level.volume", valueType: "number",
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, value string) error {
			v, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("%w: volume %q", ErrInvalidArgument, value)
			}
			return rendering(c, svc).SetVolume(ctx, v)
		},
	},
	{
		name: CommandMute, service: serviceRenderingControl, role: "media.mute", valueType: "boolean",
		run: func(ctx context.Context, c *control.Client, svc discovery.Service, value string) error {
			return rendering(c, svc).SetMute(ctx, control.ParseBool(value))
		},
	},
}

func findCommandSpec(name string) (commandSpec, bool) {
	for _, c := range commandSpecs {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
	}
	return commandSpec{}, false
}

// parseSeek accepts "H:MM:SS" (relative time), a plain track number, or an
// explicit "UNIT target" pair such as "ABS_TIME 0:10:00".
func parseSeek(value string) (unit, target string, err error) {
	value = strings.TrimSpace(value)
	if u, t, ok := strings.Cut(value, " "); ok {
		return strings.ToUpper(u), strings.TrimSpace(t), nil
	}
	if strings.Contains(value, ":") {
		return control.SeekRelTime, value, nil
	}
	if _, err := strconv.Atoi(value); err == nil {
		return control.SeekTrackNr, value, nil
	}
	return "", "", fmt.Errorf("%w: seek target %q", ErrInvalidArgument, value)
}

// command is one writable state bound to a device service.
type command struct {
	id   string
	spec commandSpec
	dev  *device
	svc  discovery.Service
}

// Command writes value to the command state of the device matching ref
// (UDN, object id or friendly name). The action runs asynchronously; its
// outcome is the acknowledged state or an EventCommandFailed.
func (s *ControllerService) Command(ctx context.Context, ref, name, value string) error {
	spec, ok := findCommandSpec(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	s.mu.RLock()
	if s.state != StateRunning {
		s.mu.RUnlock()
		return ErrNotStarted
	}
	d := s.findDeviceLocked(ref)
	if d == nil {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, ref)
	}
	id := childID(childID(d.id, spec.service), spec.name)
	_, bound := s.commands[id]
	s.mu.RUnlock()

	if !bound {
		return fmt.Errorf("%w: %s", ErrServiceMissing, spec.service)
	}
	if err := s.store.SetState(ctx, id, value, false); err != nil {
		return err
	}
	s.config.Metrics.StateWrite(false)
	return nil
}

// handleStateChange runs the action behind unacknowledged writes to command
// states, whoever wrote them.
func (s *ControllerService) handleStateChange(ch persistence.StateChange) {
	if ch.State.Ack {
		return
	}

	s.mu.Lock()
	cmd, ok := s.commands[ch.ID]
	if !ok || s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.execute(ctx, cmd, ch.State.Value)
	}()
}

func (s *ControllerService) execute(ctx context.Context, cmd *command, value string) {
	if cmd.spec.button && !control.ParseBool(value) {
		s.ack(ctx, cmd, value)
		return
	}

	actx, cancel := context.WithTimeout(ctx, s.config.CommandTimeout)
	defer cancel()

	if err := cmd.spec.run(actx, s.ctl, cmd.svc, value); err != nil {
		s.warnLog("command failed", "id", cmd.id, "value", value, "error", err)
		s.emitEvent(Event{
			Type:      EventCommandFailed,
			DeviceUDN: cmd.dev.udn,
			Service:   cmd.spec.service,
			StateID:   cmd.id,
			Value:     value,
			Error:     err,
		})
		return
	}
	s.debugLog("command done", "id", cmd.id, "value", value)
	s.ack(ctx, cmd, value)
}

func (s *ControllerService) ack(ctx context.Context, cmd *command, value string) {
	if err := s.store.SetState(ctx, cmd.id, value, true); err != nil {
		s.warnLog("ack command failed", "id", cmd.id, "error", err)
		return
	}
	s.config.Metrics.StateWrite(true)
}
