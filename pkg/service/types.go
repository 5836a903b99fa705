package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/metrics"
	"github.com/renderkit/upnp-go/pkg/persistence"
)

// Service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrAlreadyStarted  = errors.New("service already started")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrServiceMissing  = errors.New("device does not offer the service")
	ErrInvalidArgument = errors.New("invalid command argument")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a ControllerService.
type Config struct {
	// Store receives objects and states. Required.
	Store persistence.StateStore

	// Finder discovers devices. Default: SSDP search for media renderers.
	Finder discovery.Finder

	// Describer fetches descriptions. Default: discovery.NewFetcher.
	Describer discovery.Describer

	// Eventing manages GENA subscriptions. Default: a private instance
	// that is closed on Stop.
	Eventing *eventing.Eventing

	// Control invokes SOAP actions. Default: control.NewClient.
	Control *control.Client

	// Namespace is the root of all object ids. Default: "upnp".
	Namespace string

	// Services limits subscriptions to these service short names
	// (e.g. "AVTransport"). Empty subscribes to every evented service.
	Services []string

	// DiscoveryInterval is the time between discovery rounds.
	DiscoveryInterval time.Duration

	// DeviceTTL is how long a device may go unseen before it is removed.
	DeviceTTL time.Duration

	// KeepLostDevices keeps the objects of lost devices and only marks
	// them unavailable.
	KeepLostDevices bool

	// CommandTimeout bounds one command's SOAP action.
	CommandTimeout time.Duration

	// ResubscribeBackoff paces the recreation of failed subscriptions.
	ResubscribeBackoff BackoffConfig

	// Clock drives discovery rounds and resubscribe timers.
	Clock clockwork.Clock

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger captures state changes. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics records device counts and state writes. Nil disables metrics.
	Metrics *metrics.Metrics
}

// BackoffConfig configures exponential backoff for resubscription.
type BackoffConfig struct {
	// Initial is the first retry delay.
	Initial time.Duration

	// Max is the maximum retry delay.
	Max time.Duration

	// Multiplier is the backoff multiplier (e.g., 2.0 for doubling).
	Multiplier float64

	// Jitter is the maximum jitter as a fraction of the delay.
	Jitter float64
}

// DefaultConfig returns a Config with sensible defaults. Store must still
// be set.
func DefaultConfig() Config {
	return Config{
		Namespace:         "upnp",
		DiscoveryInterval: 60 * time.Second,
		DeviceTTL:         5 * time.Minute,
		CommandTimeout:    10 * time.Second,
		ResubscribeBackoff: BackoffConfig{
			Initial:    2 * time.Second,
			Max:        5 * time.Minute,
			Multiplier: 2.0,
			Jitter:     0.25,
		},
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Store == nil {
		return ErrInvalidConfig
	}
	if c.DeviceTTL > 0 && c.DiscoveryInterval > 0 && c.DeviceTTL < c.DiscoveryInterval {
		return ErrInvalidConfig
	}
	return nil
}

// EventType identifies a service event.
type EventType uint8

const (
	// EventDeviceDiscovered - a new device was described and materialized.
	EventDeviceDiscovered EventType = iota

	// EventDeviceLost - a device was not seen for DeviceTTL.
	EventDeviceLost

	// EventSubscribed - a service subscription became active.
	EventSubscribed

	// EventSubscriptionFailed - SUBSCRIBE or renewal failed; a retry is scheduled.
	EventSubscriptionFailed

	// EventStateChanged - an evented value was written to the store.
	EventStateChanged

	// EventCommandFailed - a command state could not be carried out.
	EventCommandFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventDeviceDiscovered:
		return "DEVICE_DISCOVERED"
	case EventDeviceLost:
		return "DEVICE_LOST"
	case EventSubscribed:
		return "SUBSCRIBED"
	case EventSubscriptionFailed:
		return "SUBSCRIPTION_FAILED"
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventCommandFailed:
		return "COMMAND_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	// Type is the event type.
	Type EventType

	// DeviceUDN identifies the device.
	DeviceUDN string

	// Service is the service short name (subscription and state events).
	Service string

	// SID is the subscription ID (subscription events).
	SID string

	// StateID and Value describe a state change or failed command.
	StateID string
	Value   string

	// Error is set for failure events.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)

// DeviceInfo describes a known device.
type DeviceInfo struct {
	UDN          string
	ID           string
	FriendlyName string
	Location     string
	Manufacturer string
	ModelName    string
	Services     []string
	LastSeen     time.Time
}

// SubscriptionInfo describes the subscription of one device service.
type SubscriptionInfo struct {
	DeviceUDN string
	Device    string
	Service   string
	SID       string
	State     eventing.State
	Retries   int
}
