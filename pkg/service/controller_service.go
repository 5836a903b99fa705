package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/persistence"
)

// ControllerService keeps the state store in sync with the UPnP renderers on
// the network. It discovers devices, materializes their object trees,
// subscribes to their evented services and carries out commands written to
// the store.
type ControllerService struct {
	mu sync.RWMutex

	config Config
	state  ServiceState
	clock  clockwork.Clock

	store     persistence.StateStore
	finder    discovery.Finder
	describer discovery.Describer
	ctl       *control.Client

	ev           *eventing.Eventing
	ownsEventing bool

	// Known devices by UDN, and the UDN behind each description location.
	devices    map[string]*device
	byLocation map[string]string

	// Command states by id.
	commands map[string]*command

	// Event handlers
	eventHandlers []EventHandler

	// Serializes discovery rounds.
	refreshMu sync.Mutex

	unlisten func()

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewControllerService creates a new controller service. Collaborators left
// nil in config are created with their defaults.
func NewControllerService(config Config) (*ControllerService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	def := DefaultConfig()
	if config.Namespace == "" {
		config.Namespace = def.Namespace
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = def.CommandTimeout
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	svc := &ControllerService{
		config:     config,
		state:      StateIdle,
		clock:      config.Clock,
		store:      config.Store,
		finder:     config.Finder,
		describer:  config.Describer,
		ctl:        config.Control,
		ev:         config.Eventing,
		devices:    make(map[string]*device),
		byLocation: make(map[string]string),
		commands:   make(map[string]*command),
	}

	if svc.finder == nil {
		sc := discovery.DefaultSearchConfig()
		sc.Logger = config.Logger
		svc.finder = discovery.NewSearcher(sc)
	}
	if svc.describer == nil {
		fc := discovery.DefaultFetcherConfig()
		fc.FetchSCPD = true
		fc.Logger = config.Logger
		svc.describer = discovery.NewFetcher(fc)
	}
	if svc.ctl == nil {
		cc := control.DefaultConfig()
		cc.Logger = config.Logger
		cc.ProtocolLogger = config.ProtocolLogger
		cc.Metrics = config.Metrics
		svc.ctl = control.NewClient(cc)
	}
	if svc.ev == nil {
		ec := eventing.DefaultConfig()
		ec.Clock = config.Clock
		ec.Logger = config.Logger
		ec.ProtocolLogger = config.ProtocolLogger
		ec.Metrics = config.Metrics
		svc.ev = eventing.New(ec)
		svc.ownsEventing = true
	}

	return svc, nil
}

// State returns the current service state.
func (s *ControllerService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Eventing returns the eventing instance used for subscriptions.
func (s *ControllerService) Eventing() *eventing.Eventing {
	return s.ev
}

// OnEvent registers a handler for service events.
func (s *ControllerService) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Start runs a first discovery round and then repeats it every
// DiscoveryInterval until Stop. A failed first round is logged, not returned;
// devices that were not reachable are picked up by later rounds.
func (s *ControllerService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.unlisten = s.store.OnStateChange(s.handleStateChange)

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	if err := s.Refresh(s.ctx); err != nil {
		s.warnLog("initial discovery failed", "error", err)
	}

	s.wg.Add(1)
	go s.discoveryLoop(s.ctx)

	s.debugLog("controller started", "namespace", s.config.Namespace)
	return nil
}

// Stop unsubscribes from every device and stops discovery. Objects stay in
// the store. An Eventing instance created by the service is closed.
func (s *ControllerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	var subs []*eventing.Subscription
	for _, d := range s.devices {
		for _, b := range d.bindings {
			if b.retry != nil {
				b.retry.Stop()
				b.retry = nil
			}
			if b.sub != nil {
				subs = append(subs, b.sub)
				b.sub = nil
			}
		}
	}
	s.mu.Unlock()

	// Cancel context
	s.cancel()
	if s.unlisten != nil {
		s.unlisten()
	}
	s.wg.Wait()

	s.unsubscribeAll(ctx, subs)

	var err error
	if s.ownsEventing {
		err = s.ev.Close(ctx)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.debugLog("controller stopped")
	return err
}

func (s *ControllerService) discoveryLoop(ctx context.Context) {
	defer s.wg.Done()
	if s.config.DiscoveryInterval <= 0 {
		return
	}

	ticker := s.clock.NewTicker(s.config.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.Refresh(ctx); err != nil {
				s.warnLog("discovery failed", "error", err)
			}
		}
	}
}

// Refresh runs one discovery round: new locations are described and
// materialized, known devices are marked as seen and devices unseen for
// longer than DeviceTTL are removed. When discovery itself fails nothing is
// expired.
func (s *ControllerService) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.State() != StateRunning {
		return ErrNotStarted
	}

	ads, err := s.finder.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	now := s.clock.Now()
	seen := make(map[string]bool)
	servers := make(map[string]string)
	var fresh []string

	s.mu.Lock()
	for _, adv := range ads {
		if adv.Location == "" || seen[adv.Location] {
			continue
		}
		seen[adv.Location] = true
		if udn, ok := s.byLocation[adv.Location]; ok {
			if d := s.devices[udn]; d != nil {
				d.lastSeen = now
				continue
			}
		}
		fresh = append(fresh, adv.Location)
		servers[adv.Location] = adv.Server
	}
	s.mu.Unlock()

	if len(fresh) > 0 {
		for _, res := range s.describer.Describe(ctx, fresh) {
			if res.Err != nil {
				s.warnLog("describe failed", "location", res.Location, "error", res.Err)
				continue
			}
			if err := s.addDevice(ctx, res, servers[res.Location], now); err != nil {
				s.warnLog("add device failed", "location", res.Location, "error", err)
			}
		}
	}

	s.expire(ctx, now)

	s.mu.RLock()
	n := len(s.devices)
	s.mu.RUnlock()
	s.config.Metrics.SetDevicesKnown(n)
	return nil
}

// expire removes devices not seen within DeviceTTL.
func (s *ControllerService) expire(ctx context.Context, now time.Time) {
	if s.config.DeviceTTL <= 0 {
		return
	}
	var lost []*device
	s.mu.RLock()
	for _, d := range s.devices {
		if now.Sub(d.lastSeen) > s.config.DeviceTTL {
			lost = append(lost, d)
		}
	}
	s.mu.RUnlock()

	for _, d := range lost {
		s.removeDevice(ctx, d, true)
	}
}

// Devices returns the known devices sorted by friendly name.
func (s *ControllerService) Devices() []DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DeviceInfo, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FriendlyName != out[j].FriendlyName {
			return out[i].FriendlyName < out[j].FriendlyName
		}
		return out[i].UDN < out[j].UDN
	})
	return out
}

// Device returns the device matching ref, which may be a UDN, an object id
// or a friendly name (case-insensitive).
func (s *ControllerService) Device(ref string) (DeviceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.findDeviceLocked(ref)
	if d == nil {
		return DeviceInfo{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, ref)
	}
	return d.info(), nil
}

func (s *ControllerService) findDeviceLocked(ref string) *device {
	if d, ok := s.devices[ref]; ok {
		return d
	}
	for _, d := range s.devices {
		if d.id == ref || strings.EqualFold(d.friendlyName, ref) {
			return d
		}
	}
	return nil
}

// Subscriptions returns the subscription of every bound service.
func (s *ControllerService) Subscriptions() []SubscriptionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SubscriptionInfo
	for _, d := range s.devices {
		for _, b := range d.bindings {
			info := SubscriptionInfo{
				DeviceUDN: d.udn,
				Device:    d.friendlyName,
				Service:   b.name,
				Retries:   b.backoff.Attempts(),
				State:     eventing.StateTerminated,
			}
			if b.sub != nil {
				info.SID = b.sub.SID()
				info.State = b.sub.State()
			}
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].Service < out[j].Service
	})
	return out
}

// States returns the stored states of the device matching ref.
func (s *ControllerService) States(ctx context.Context, ref string) (map[string]persistence.State, error) {
	s.mu.RLock()
	d := s.findDeviceLocked(ref)
	s.mu.RUnlock()
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, ref)
	}
	return s.store.GetStatesOf(ctx, d.id+persistence.Separator)
}

// unsubscribeAll sends UNSUBSCRIBE for subs concurrently and waits for all.
func (s *ControllerService) unsubscribeAll(ctx context.Context, subs []*eventing.Subscription) {
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *eventing.Subscription) {
			defer wg.Done()
			if err := sub.Unsubscribe(ctx); err != nil {
				s.debugLog("unsubscribe failed", "target", sub.Target().URL(), "error", err)
			}
		}(sub)
	}
	wg.Wait()
}

// emitEvent sends an event to all registered handlers.
func (s *ControllerService) emitEvent(event Event) {
	s.mu.RLock()
	handlers := s.eventHandlers
	s.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}

// debugLog logs a debug message if logging is enabled.
func (s *ControllerService) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// warnLog logs a warning if logging is enabled.
func (s *ControllerService) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}
