package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/persistence"
	"github.com/renderkit/upnp-go/pkg/version"
)

// Ids below a device object.
const (
	channelInfo    = "info"
	stateAvailable = "available"
)

// device is a described renderer and everything created for it.
type device struct {
	udn          string
	id           string
	location     string
	friendlyName string
	manufacturer string
	modelName    string
	upnpVersion  version.SpecVersion
	services     []string
	lastSeen     time.Time

	bindings []*binding
	commands []string
}

func (d *device) info() DeviceInfo {
	return DeviceInfo{
		UDN:          d.udn,
		ID:           d.id,
		FriendlyName: d.friendlyName,
		Location:     d.location,
		Manufacturer: d.manufacturer,
		ModelName:    d.modelName,
		Services:     slices.Clone(d.services),
		LastSeen:     d.lastSeen,
	}
}

// binding ties one evented service to its subscription. gen increases with
// every subscription attempt; callbacks of older attempts are ignored.
type binding struct {
	dev       *device
	name      string
	svc       discovery.Service
	target    eventing.Target
	channelID string

	sub     *eventing.Subscription
	backoff *backoff
	retry   clockwork.Timer
	gen     uint64
	removed bool

	// State ids already created below channelID.
	known map[string]bool
}

func versionString(v version.SpecVersion) string {
	if v == (version.SpecVersion{}) {
		return ""
	}
	return v.String()
}

// childID appends one sanitized segment to parent.
func childID(parent, name string) string {
	return parent + persistence.Separator + persistence.JoinID(name)
}

// architecture is the UPnP version this control point speaks.
var architecture, _ = version.Parse(version.Architecture)

// deviceVersion returns the UPnP version of a device: the description's
// specVersion, or the UPnP token of its SSDP SERVER header. The zero value
// means unknown.
func deviceVersion(desc *discovery.Description, server string) version.SpecVersion {
	if desc.SpecVersion != (version.SpecVersion{}) {
		return desc.SpecVersion
	}
	v, _ := version.ParseProduct(server)
	return v
}

// addDevice materializes a described device and subscribes to its services.
// server is the SERVER header of the advertisement, if any.
// A device already known under another location is replaced.
func (s *ControllerService) addDevice(ctx context.Context, res discovery.Result, server string, now time.Time) error {
	desc := res.Description
	if desc == nil || desc.Device.UDN == "" {
		return discovery.ErrNoRootDevice
	}
	udn := desc.Device.UDN

	s.mu.Lock()
	old := s.devices[udn]
	if old != nil && old.location == res.Location {
		old.lastSeen = now
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	if old != nil {
		s.debugLog("device moved", "udn", udn, "from", old.location, "to", res.Location)
		s.removeDevice(ctx, old, false)
	}

	d := &device{
		udn:          udn,
		id:           persistence.JoinID(s.config.Namespace, udn),
		location:     res.Location,
		friendlyName: desc.Device.FriendlyName,
		manufacturer: desc.Device.Manufacturer,
		modelName:    desc.Device.ModelName,
		upnpVersion:  deviceVersion(desc, server),
		lastSeen:     now,
	}
	if v := d.upnpVersion; v != (version.SpecVersion{}) && !v.Compatible(architecture) {
		// Major versions differ; actions may still work, so keep going.
		s.warnLog("device speaks another UPnP major version", "udn", udn, "version", v.String())
	}

	cmds, err := s.materialize(ctx, d, res)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.devices[udn] = d
	s.byLocation[d.location] = udn
	for _, c := range cmds {
		s.commands[c.id] = c
		d.commands = append(d.commands, c.id)
	}
	bindings := d.bindings
	s.mu.Unlock()

	s.debugLog("device added", "udn", udn, "name", d.friendlyName, "services", len(d.services))
	s.captureDevice(d, "ABSENT", "PRESENT", "discovered")
	s.emitEvent(Event{Type: EventDeviceDiscovered, DeviceUDN: udn, Value: d.friendlyName})

	for _, b := range bindings {
		s.subscribe(b, 0)
	}
	return nil
}

// materialize writes the object tree of d and prepares its bindings and
// commands. Nothing is registered with the service yet.
func (s *ControllerService) materialize(ctx context.Context, d *device, res discovery.Result) ([]*command, error) {
	desc := res.Description
	root := desc.Device

	err := s.store.SetObject(ctx, d.id, persistence.Object{
		Type: persistence.ObjectDevice,
		Name: d.friendlyName,
		Native: map[string]string{
			"udn":          d.udn,
			"location":     d.location,
			"deviceType":   root.DeviceType,
			"manufacturer": root.Manufacturer,
			"modelName":    root.ModelName,
			"modelNumber":  root.ModelNumber,
			"serialNumber": root.SerialNumber,
			"upnpVersion":  versionString(d.upnpVersion),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store device: %w", err)
	}

	infoID := childID(d.id, channelInfo)
	if err := s.store.SetObject(ctx, infoID, persistence.Object{Type: persistence.ObjectChannel, Name: "Device information"}); err != nil {
		return nil, fmt.Errorf("store info: %w", err)
	}
	info := []struct{ name, value string }{
		{"friendlyName", root.FriendlyName},
		{"location", d.location},
		{"manufacturer", root.Manufacturer},
		{"modelName", root.ModelName},
	}
	for _, v := range info {
		if err := s.writeInfo(ctx, childID(infoID, v.name), v.name, "info", v.value); err != nil {
			return nil, err
		}
	}
	if err := s.writeInfo(ctx, childID(d.id, stateAvailable), "Available", "indicator.reachable", "true"); err != nil {
		return nil, err
	}

	var cmds []*command
	seen := make(map[string]bool)
	for _, dev := range desc.AllDevices() {
		for _, svc := range dev.Services {
			name := svc.ShortName()
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			d.services = append(d.services, name)

			b, c, err := s.materializeService(ctx, d, svc, res.SCPDs[svc.ServiceID])
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, c...)
			if b != nil {
				d.bindings = append(d.bindings, b)
			}
		}
	}
	return cmds, nil
}

func (s *ControllerService) writeInfo(ctx context.Context, id, name, role, value string) error {
	obj := persistence.Object{
		Type:      persistence.ObjectState,
		Name:      name,
		Role:      role,
		ValueType: "string",
		Read:      true,
	}
	if role == "indicator.reachable" {
		obj.ValueType = "boolean"
	}
	if err := s.store.SetObject(ctx, id, obj); err != nil {
		return fmt.Errorf("store %s: %w", id, err)
	}
	if err := s.store.SetState(ctx, id, value, true); err != nil {
		return fmt.Errorf("store %s: %w", id, err)
	}
	s.config.Metrics.StateWrite(true)
	return nil
}

// materializeService creates the channel of svc, the states announced by its
// SCPD and its command states. It returns a binding when the service is
// evented and selected for subscription.
func (s *ControllerService) materializeService(ctx context.Context, d *device, svc discovery.Service, scpd *discovery.SCPD) (*binding, []*command, error) {
	name := svc.ShortName()
	channelID := childID(d.id, name)

	err := s.store.SetObject(ctx, channelID, persistence.Object{
		Type: persistence.ObjectChannel,
		Name: name,
		Native: map[string]string{
			"serviceType": svc.ServiceType,
			"serviceId":   svc.ServiceID,
			"controlURL":  svc.ControlURL,
			"eventSubURL": svc.EventSubURL,
			"scpdURL":     svc.SCPDURL,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("store channel: %w", err)
	}

	known := make(map[string]bool)
	if scpd != nil {
		for _, v := range scpd.EventedVariables() {
			if v.Name == eventing.LastChangeVariable {
				continue
			}
			id := childID(channelID, v.Name)
			if err := s.store.SetObject(ctx, id, variableObject(v.Name, v.DataType)); err != nil {
				return nil, nil, fmt.Errorf("store variable: %w", err)
			}
			known[id] = true
		}
	}

	var cmds []*command
	for _, spec := range commandSpecs {
		if spec.service != name {
			continue
		}
		c := &command{id: childID(channelID, spec.name), spec: spec, dev: d, svc: svc}
		if err := s.store.SetObject(ctx, c.id, spec.object()); err != nil {
			return nil, nil, fmt.Errorf("store command: %w", err)
		}
		cmds = append(cmds, c)
	}

	if !svc.Evented() || !s.wants(name) {
		return nil, cmds, nil
	}
	target, err := svc.EventTarget()
	if err != nil {
		s.warnLog("service not subscribable", "udn", d.udn, "service", name, "error", err)
		return nil, cmds, nil
	}
	return &binding{
		dev:       d,
		name:      name,
		svc:       svc,
		target:    target,
		channelID: channelID,
		backoff:   newBackoff(s.config.ResubscribeBackoff),
		known:     known,
	}, cmds, nil
}

// wants reports whether the service short name passes Config.Services.
func (s *ControllerService) wants(name string) bool {
	if len(s.config.Services) == 0 {
		return true
	}
	for _, n := range s.config.Services {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// variableObject describes an evented state variable.
func variableObject(name, dataType string) persistence.Object {
	obj := persistence.Object{
		Type:      persistence.ObjectState,
		Name:      name,
		Role:      "state",
		ValueType: "string",
		Read:      true,
	}
	switch dataType {
	case "boolean":
		obj.ValueType = "boolean"
		obj.Role = "indicator"
	case "ui1", "ui2", "ui4", "i1", "i2", "i4", "int", "r4", "r8", "number", "float":
		obj.ValueType = "number"
		obj.Role = "value"
	}
	if name == "Volume" {
		obj.Role = "level.volume"
	}
	return obj
}

// removeDevice forgets d, unsubscribes its services and deletes its objects.
// With lost set and KeepLostDevices the objects stay and available turns
// false.
func (s *ControllerService) removeDevice(ctx context.Context, d *device, lost bool) {
	s.mu.Lock()
	if s.devices[d.udn] != d {
		s.mu.Unlock()
		return
	}
	delete(s.devices, d.udn)
	if s.byLocation[d.location] == d.udn {
		delete(s.byLocation, d.location)
	}
	for _, id := range d.commands {
		delete(s.commands, id)
	}
	var subs []*eventing.Subscription
	for _, b := range d.bindings {
		b.removed = true
		if b.retry != nil {
			b.retry.Stop()
			b.retry = nil
		}
		if b.sub != nil {
			subs = append(subs, b.sub)
			b.sub = nil
		}
	}
	s.mu.Unlock()

	s.unsubscribeAll(ctx, subs)

	if lost && s.config.KeepLostDevices {
		if err := s.store.SetState(ctx, childID(d.id, stateAvailable), "false", true); err != nil {
			s.warnLog("mark unavailable failed", "udn", d.udn, "error", err)
		}
		s.config.Metrics.StateWrite(true)
	} else if err := s.store.DeleteTree(ctx, d.id); err != nil {
		s.warnLog("delete device failed", "udn", d.udn, "error", err)
	}

	reason := "replaced"
	if lost {
		reason = "lost"
	}
	s.debugLog("device removed", "udn", d.udn, "reason", reason)
	s.captureDevice(d, "PRESENT", "ABSENT", reason)
	if lost {
		s.emitEvent(Event{Type: EventDeviceLost, DeviceUDN: d.udn, Value: d.friendlyName})
	}
}

func (s *ControllerService) captureDevice(d *device, from, to, reason string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	log.Emit(s.config.ProtocolLogger, log.Event{
		Layer:      log.LayerService,
		Category:   log.CategoryState,
		RemoteAddr: d.location,
		DeviceUDN:  d.udn,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDevice,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
