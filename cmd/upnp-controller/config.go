package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/renderkit/upnp-go/pkg/discovery"
)

// Config holds the controller configuration. Values come from the optional
// YAML file first; flags given on the command line override them.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Interactive bool   `yaml:"interactive"`

	// Eventing
	ListenAddr          string        `yaml:"listen_addr"`
	AdvertiseIP         string        `yaml:"advertise_ip"`
	SubscriptionTimeout time.Duration `yaml:"subscription_timeout"`

	// Discovery
	SearchTarget      string        `yaml:"search_target"`
	MDNS              bool          `yaml:"mdns"`
	Interface         string        `yaml:"interface"`
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
	DeviceTTL         time.Duration `yaml:"device_ttl"`
	Services          []string      `yaml:"services"`
	KeepLostDevices   bool          `yaml:"keep_lost_devices"`

	// State store
	Namespace string `yaml:"namespace"`
	StateFile string `yaml:"state_file"`
	RedisURL  string `yaml:"redis_url"`
	Reset     bool   `yaml:"-"`

	// Observability
	CaptureFile string `yaml:"capture_file"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:            "info",
		LogFormat:           "text",
		ListenAddr:          ":0",
		SubscriptionTimeout: 30 * time.Minute,
		SearchTarget:        discovery.SearchMediaRenderer,
		DiscoveryInterval:   time.Minute,
		DeviceTTL:           5 * time.Minute,
		Namespace:           "upnp",
	}
}

// loadConfigFile merges the YAML file at path into cfg. Keys missing from
// the file keep their current values.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks values the service layers would otherwise reject later.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", c.LogFormat)
	}
	if c.DiscoveryInterval <= 0 {
		return errors.New("discovery interval must be positive")
	}
	if c.DeviceTTL > 0 && c.DeviceTTL < c.DiscoveryInterval {
		return fmt.Errorf("device TTL %s is shorter than the discovery interval %s", c.DeviceTTL, c.DiscoveryInterval)
	}
	if c.StateFile != "" && c.RedisURL != "" {
		return errors.New("state file and redis URL are mutually exclusive")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (use debug, info, warn, error)", s)
	}
}

// flagSet binds command line flags to a Config.
type flagSet struct {
	fs         *flag.FlagSet
	configFile string
	values     Config
	services   string
}

func newFlagSet(name string) *flagSet {
	f := &flagSet{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	def := defaultConfig()
	v := &f.values

	f.fs.StringVar(&f.configFile, "config", "", "Configuration file path (YAML)")
	f.fs.StringVar(&v.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	f.fs.StringVar(&v.LogFormat, "log-format", def.LogFormat, "Log format: text, json")
	f.fs.BoolVar(&v.Interactive, "interactive", false, "Enable interactive command mode")

	f.fs.StringVar(&v.ListenAddr, "listen", def.ListenAddr, "Callback listener address for event notifications")
	f.fs.StringVar(&v.AdvertiseIP, "advertise-ip", "", "IP placed in callback URLs (default: route to each device)")
	f.fs.DurationVar(&v.SubscriptionTimeout, "subscription-timeout", def.SubscriptionTimeout, "Requested subscription duration")

	f.fs.StringVar(&v.SearchTarget, "search-target", def.SearchTarget, "SSDP search target")
	f.fs.BoolVar(&v.MDNS, "mdns", false, "Also browse mDNS for _sonos._tcp players")
	f.fs.StringVar(&v.Interface, "interface", "", "Network interface for mDNS browsing")
	f.fs.DurationVar(&v.DiscoveryInterval, "discovery-interval", def.DiscoveryInterval, "Time between discovery rounds")
	f.fs.DurationVar(&v.DeviceTTL, "device-ttl", def.DeviceTTL, "Remove devices unseen for this long")
	f.fs.StringVar(&f.services, "services", "", "Comma-separated services to subscribe to (default: all evented)")
	f.fs.BoolVar(&v.KeepLostDevices, "keep-lost", false, "Keep objects of lost devices and mark them unavailable")

	f.fs.StringVar(&v.Namespace, "namespace", def.Namespace, "Root of all object ids")
	f.fs.StringVar(&v.StateFile, "state-file", "", "Snapshot file for the in-memory store")
	f.fs.StringVar(&v.RedisURL, "redis", "", "Redis URL for a shared state store")
	f.fs.BoolVar(&v.Reset, "reset", false, "Clear all persisted state before starting")

	f.fs.StringVar(&v.CaptureFile, "capture", "", "Write a protocol capture (CBOR) to this file")
	f.fs.StringVar(&v.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return f
}

// resolve parses args and returns the effective configuration.
func (f *flagSet) resolve(args []string) (Config, error) {
	if err := f.fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if f.configFile != "" {
		if err := loadConfigFile(f.configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	v := f.values
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "log-level":
			cfg.LogLevel = v.LogLevel
		case "log-format":
			cfg.LogFormat = v.LogFormat
		case "interactive":
			cfg.Interactive = v.Interactive
		case "listen":
			cfg.ListenAddr = v.ListenAddr
		case "advertise-ip":
			cfg.AdvertiseIP = v.AdvertiseIP
		case "subscription-timeout":
			cfg.SubscriptionTimeout = v.SubscriptionTimeout
		case "search-target":
			cfg.SearchTarget = v.SearchTarget
		case "mdns":
			cfg.MDNS = v.MDNS
		case "interface":
			cfg.Interface = v.Interface
		case "discovery-interval":
			cfg.DiscoveryInterval = v.DiscoveryInterval
		case "device-ttl":
			cfg.DeviceTTL = v.DeviceTTL
		case "services":
			cfg.Services = splitList(f.services)
		case "keep-lost":
			cfg.KeepLostDevices = v.KeepLostDevices
		case "namespace":
			cfg.Namespace = v.Namespace
		case "state-file":
			cfg.StateFile = v.StateFile
		case "redis":
			cfg.RedisURL = v.RedisURL
		case "reset":
			cfg.Reset = v.Reset
		case "capture":
			cfg.CaptureFile = v.CaptureFile
		case "metrics-addr":
			cfg.MetricsAddr = v.MetricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
