package eventing

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/metrics"
)

// Config configures an Eventing instance.
type Config struct {
	// ListenAddr is the callback listener address. The default ":0" picks a
	// free port on all interfaces.
	ListenAddr string

	// AdvertiseIP overrides the IP placed in CALLBACK URLs. When empty the
	// local address routing to each device is used.
	AdvertiseIP string

	// DefaultTimeout is the subscription duration requested from devices.
	// Default: 1800 seconds.
	DefaultTimeout time.Duration

	// RequestTimeout bounds SUBSCRIBE and renewal exchanges.
	// Default: 10 seconds.
	RequestTimeout time.Duration

	// UnsubscribeTimeout bounds the wait for an UNSUBSCRIBE response.
	// Default: 3 seconds.
	UnsubscribeTimeout time.Duration

	// NotifyQueueSize is the number of accepted NOTIFYs that may wait for
	// dispatch. Further notifications are dropped. Default: 256.
	NotifyQueueSize int

	// MaxNotifyBodyBytes bounds a NOTIFY body. Default: 1 MiB.
	MaxNotifyBodyBytes int64

	// NotifyRateLimit is the sustained NOTIFY rate accepted per device host.
	// Zero disables limiting. Default: 50/s with NotifyBurst 100.
	NotifyRateLimit rate.Limit
	NotifyBurst     int

	// EarlyNotifyGrace is how long a NOTIFY for a not yet registered SID is
	// held in case its SUBSCRIBE response is still being processed.
	// Zero disables holding. Default: 2 seconds.
	EarlyNotifyGrace time.Duration

	// HTTPClient sends GENA requests. Default: a client without global timeout
	// (requests are bounded by context).
	HTTPClient *http.Client

	// Clock drives renewal timers. Default: the real clock.
	Clock clockwork.Clock

	// Logger is used for operational logging. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger captures GENA exchanges. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics records eventing metrics. Nil disables them.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the default eventing configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":0",
		DefaultTimeout:     DefaultTimeout,
		RequestTimeout:     10 * time.Second,
		UnsubscribeTimeout: 3 * time.Second,
		NotifyQueueSize:    256,
		MaxNotifyBodyBytes: 1 << 20,
		NotifyRateLimit:    50,
		NotifyBurst:        100,
		EarlyNotifyGrace:   2 * time.Second,
	}
}

// Eventing owns the callback listener, the SID registry and every
// subscription created through it. Create one per process or test and pass
// it to collaborators.
type Eventing struct {
	cfg      Config
	client   *http.Client
	clock    clockwork.Clock
	registry *Registry
	demux    *demux
	listener *Listener

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// New creates an Eventing instance. Zero config fields take their defaults,
// except NotifyRateLimit and EarlyNotifyGrace where zero disables the feature;
// start from DefaultConfig to get them. Nothing is bound until the first
// subscription.
func New(cfg Config) *Eventing {
	def := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.UnsubscribeTimeout <= 0 {
		cfg.UnsubscribeTimeout = def.UnsubscribeTimeout
	}
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = def.NotifyQueueSize
	}
	if cfg.MaxNotifyBodyBytes <= 0 {
		cfg.MaxNotifyBodyBytes = def.MaxNotifyBodyBytes
	}
	if cfg.NotifyRateLimit > 0 && cfg.NotifyBurst <= 0 {
		cfg.NotifyBurst = def.NotifyBurst
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	e := &Eventing{
		cfg:      cfg,
		client:   client,
		clock:    cfg.Clock,
		registry: NewRegistry(),
	}
	e.registry.onChange = cfg.Metrics.SetSubscriptionsActive
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.demux = newDemux(cfg, e.registry, cfg.Clock)
	e.listener = newListener(cfg.ListenAddr, cfg.AdvertiseIP, e.demux, cfg.Logger)
	return e
}

// Subscribe creates a subscription to target and starts it. Progress and
// notifications are reported to h; the returned Subscription is Pending.
func (e *Eventing) Subscribe(target Target, h Handler) *Subscription {
	sub := newSubscription(e, target, h)
	sub.start()
	return sub
}

// Listener returns the shared callback listener.
func (e *Eventing) Listener() *Listener {
	return e.listener
}

// Registry returns the SID registry.
func (e *Eventing) Registry() *Registry {
	return e.registry
}

// Close unsubscribes every registered subscription, aborts pending ones and
// stops the callback listener.
func (e *Eventing) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		e.cancel()

		var wg sync.WaitGroup
		for _, sub := range e.registry.Subscriptions() {
			wg.Add(1)
			go func(s *Subscription) {
				defer wg.Done()
				_ = s.Unsubscribe(ctx)
			}(sub)
		}
		wg.Wait()

		err = e.listener.Close(ctx)
		e.demux.close()
	})
	return err
}

func (e *Eventing) debugLog(msg string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug(msg, args...)
	}
}

func (e *Eventing) warnLog(msg string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Warn(msg, args...)
	}
}
