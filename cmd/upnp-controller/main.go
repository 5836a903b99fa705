// Command upnp-controller is a UPnP media control point.
//
// It discovers renderers with SSDP (and optionally mDNS), keeps their
// evented state in a state store, and controls them through command states
// or an interactive shell.
//
// Usage:
//
//	upnp-controller [flags]
//
// Flags:
//
//	-config string              Configuration file path (YAML)
//	-log-level string           Log level: debug, info, warn, error (default "info")
//	-log-format string          Log format: text, json (default "text")
//	-interactive                Enable interactive command mode
//	-listen string              Callback listener address (default ":0")
//	-advertise-ip string        IP placed in callback URLs
//	-subscription-timeout dur   Requested subscription duration (default 30m)
//	-search-target string       SSDP search target
//	-mdns                       Also browse mDNS for _sonos._tcp players
//	-interface string           Network interface for mDNS browsing
//	-discovery-interval dur     Time between discovery rounds (default 1m)
//	-device-ttl dur             Remove devices unseen for this long (default 5m)
//	-services list              Services to subscribe to (default: all evented)
//	-keep-lost                  Keep lost devices, marked unavailable
//	-namespace string           Root of all object ids (default "upnp")
//	-state-file string          Snapshot file for the in-memory store
//	-redis string               Redis URL for a shared state store
//	-reset                      Clear all persisted state before starting
//	-capture string             Write a protocol capture to this file
//	-metrics-addr string        Serve Prometheus metrics on this address
//
// Examples:
//
//	# Interactive control of all renderers
//	upnp-controller -interactive
//
//	# Sonos players only, state shared through Redis, metrics on :9102
//	upnp-controller -search-target urn:schemas-upnp-org:device:ZonePlayer:1 \
//	    -redis redis://localhost:6379/0 -metrics-addr :9102
//
//	# Capture all protocol traffic for upnp-log
//	upnp-controller -capture /tmp/controller.ulog -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/renderkit/upnp-go/cmd/upnp-controller/interactive"
	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/metrics"
	"github.com/renderkit/upnp-go/pkg/persistence"
	"github.com/renderkit/upnp-go/pkg/service"
	"github.com/renderkit/upnp-go/pkg/version"
)

func main() {
	flags := newFlagSet(os.Args[0])
	cfg, err := flags.resolve(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log output goes through readline in interactive mode.
	out := &swapWriter{w: os.Stderr}
	var ic *interactive.Controller
	if cfg.Interactive {
		var err error
		ic, err = interactive.New()
		if err != nil {
			return err
		}
		out.set(ic.Stdout())
	}

	logger, err := newLogger(cfg, out)
	if err != nil {
		return err
	}
	logger.Info("UPnP controller", "version", version.LibraryVersion, "namespace", cfg.Namespace)

	protocolLogger, closeCapture, err := newProtocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCapture()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		m = metrics.New(reg)
		stopMetrics := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	evCfg := eventing.DefaultConfig()
	evCfg.ListenAddr = cfg.ListenAddr
	evCfg.AdvertiseIP = cfg.AdvertiseIP
	evCfg.DefaultTimeout = cfg.SubscriptionTimeout
	evCfg.Logger = logger
	evCfg.ProtocolLogger = protocolLogger
	evCfg.Metrics = m
	ev := eventing.New(evCfg)

	ctlCfg := control.DefaultConfig()
	ctlCfg.Logger = logger
	ctlCfg.ProtocolLogger = protocolLogger
	ctlCfg.Metrics = m

	svcCfg := service.DefaultConfig()
	svcCfg.Store = store
	svcCfg.Finder = newFinder(cfg, logger)
	svcCfg.Eventing = ev
	svcCfg.Control = control.NewClient(ctlCfg)
	svcCfg.Namespace = cfg.Namespace
	svcCfg.Services = cfg.Services
	svcCfg.DiscoveryInterval = cfg.DiscoveryInterval
	svcCfg.DeviceTTL = cfg.DeviceTTL
	svcCfg.KeepLostDevices = cfg.KeepLostDevices
	svcCfg.Logger = logger
	svcCfg.ProtocolLogger = protocolLogger
	svcCfg.Metrics = m

	svc, err := service.NewControllerService(svcCfg)
	if err != nil {
		return fmt.Errorf("create controller service: %w", err)
	}
	svc.OnEvent(eventLogger(logger))

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	logger.Info("service started", "state", svc.State(), "devices", len(svc.Devices()))

	if ic != nil {
		ic.Bind(svc)
		go ic.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
		// Cancelled by the interactive quit command
	}

	logger.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := svc.Stop(stopCtx); err != nil {
		logger.Warn("stop service", "error", err)
	}
	if err := ev.Close(stopCtx); err != nil {
		logger.Warn("close eventing", "error", err)
	}
	return nil
}

func newLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// newProtocolLogger builds the capture chain: a CBOR file when requested and
// the slog adapter at debug level.
func newProtocolLogger(cfg Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closer := func() {}

	if cfg.CaptureFile != "" {
		fl, err := log.NewFileLogger(cfg.CaptureFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open capture file: %w", err)
		}
		logger.Info("capturing protocol events", "file", cfg.CaptureFile)
		loggers = append(loggers, fl)
		closer = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("close capture file", "error", err)
			}
		}
	}
	if lvl, _ := parseLevel(cfg.LogLevel); lvl <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return nil, closer, nil
	case 1:
		return loggers[0], closer, nil
	default:
		return log.NewMultiLogger(loggers...), closer, nil
	}
}

// serveMetrics starts the /metrics endpoint and returns its shutdown.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func newFinder(cfg Config, logger *slog.Logger) discovery.Finder {
	sc := discovery.DefaultSearchConfig()
	sc.Target = cfg.SearchTarget
	sc.Logger = logger
	searcher := discovery.NewSearcher(sc)
	if !cfg.MDNS {
		return searcher
	}

	bc := discovery.DefaultBrowserConfig()
	bc.Interface = cfg.Interface
	bc.Logger = logger
	return discovery.MultiFinder{searcher, discovery.NewMDNSBrowser(bc)}
}

// openStore returns the configured state store and a function releasing it.
// The in-memory store is loaded from and saved to StateFile.
func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (persistence.StateStore, func(), error) {
	if cfg.RedisURL != "" {
		rc := persistence.DefaultRedisConfig()
		rc.URL = cfg.RedisURL
		rc.Namespace = cfg.Namespace
		rc.Logger = logger
		rs, err := persistence.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Reset {
			logger.Info("resetting persisted state", "namespace", cfg.Namespace)
			if err := rs.DeleteTree(ctx, cfg.Namespace); err != nil {
				logger.Warn("failed to clear state", "error", err)
			}
		}
		go func() {
			if err := rs.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("redis watch stopped", "error", err)
			}
		}()
		return rs, func() { _ = rs.Close() }, nil
	}

	ms := persistence.NewMemoryStore(cfg.StateFile)
	if cfg.StateFile == "" {
		return ms, func() {}, nil
	}
	logger.Info("using state file", "path", cfg.StateFile)
	if cfg.Reset {
		logger.Info("resetting persisted state")
		if err := ms.Clear(); err != nil {
			logger.Warn("failed to clear state", "error", err)
		}
	}
	if err := ms.Load(); err != nil {
		logger.Warn("failed to load state", "error", err)
	}
	return ms, func() {
		if err := ms.Save(); err != nil {
			logger.Warn("failed to save state", "error", err)
		}
	}, nil
}

func eventLogger(logger *slog.Logger) service.EventHandler {
	return func(e service.Event) {
		switch e.Type {
		case service.EventDeviceDiscovered:
			logger.Info("device discovered", "udn", e.DeviceUDN, "name", e.Value)
		case service.EventDeviceLost:
			logger.Info("device lost", "udn", e.DeviceUDN, "name", e.Value)
		case service.EventSubscribed:
			logger.Info("subscribed", "udn", e.DeviceUDN, "service", e.Service, "sid", e.SID)
		case service.EventSubscriptionFailed:
			logger.Warn("subscription failed", "udn", e.DeviceUDN, "service", e.Service, "error", e.Error)
		case service.EventStateChanged:
			logger.Debug("state changed", "id", e.StateID, "value", e.Value)
		case service.EventCommandFailed:
			logger.Warn("command failed", "id", e.StateID, "value", e.Value, "error", e.Error)
		}
	}
}

// swapWriter lets log output move to the readline writer once it exists.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
