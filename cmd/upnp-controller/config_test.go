package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderkit/upnp-go/pkg/discovery"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	f := newFlagSet("upnp-controller")
	f.fs.SetOutput(io.Discard)
	return f.resolve(args)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":0", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.SubscriptionTimeout)
	assert.Equal(t, discovery.SearchMediaRenderer, cfg.SearchTarget)
	assert.Equal(t, time.Minute, cfg.DiscoveryInterval)
	assert.Equal(t, 5*time.Minute, cfg.DeviceTTL)
	assert.Equal(t, "upnp", cfg.Namespace)
	assert.Empty(t, cfg.Services)
	assert.False(t, cfg.Interactive)
}

func TestResolveConfigFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
subscription_timeout: 10m
discovery_interval: 30s
device_ttl: 2m
services: [AVTransport, RenderingControl]
keep_lost_devices: true
redis_url: redis://cache:6379/1
`)
	cfg, err := parse(t, "-config", path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.SubscriptionTimeout)
	assert.Equal(t, 30*time.Second, cfg.DiscoveryInterval)
	assert.Equal(t, 2*time.Minute, cfg.DeviceTTL)
	assert.Equal(t, []string{"AVTransport", "RenderingControl"}, cfg.Services)
	assert.True(t, cfg.KeepLostDevices)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, "upnp", cfg.Namespace)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
namespace: house
discovery_interval: 30s
`)
	cfg, err := parse(t,
		"-config", path,
		"-log-level", "warn",
		"-services", " AVTransport , ,RenderingControl",
		"-interactive",
	)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"AVTransport", "RenderingControl"}, cfg.Services)
	assert.True(t, cfg.Interactive)

	// Flags left at their defaults do not clobber file values.
	assert.Equal(t, "house", cfg.Namespace)
	assert.Equal(t, 30*time.Second, cfg.DiscoveryInterval)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad level", []string{"-log-level", "loud"}},
		{"bad format", []string{"-log-format", "xml"}},
		{"zero interval", []string{"-discovery-interval", "0s"}},
		{"ttl below interval", []string{"-discovery-interval", "2m", "-device-ttl", "1m"}},
		{"two stores", []string{"-state-file", "/tmp/s.json", "-redis", "redis://localhost:6379"}},
		{"bad duration", []string{"-device-ttl", "soon"}},
		{"missing file", []string{"-config", "/nonexistent/controller.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestResolveInvalidYAML(t *testing.T) {
	path := writeConfig(t, "discovery_interval: [1, 2\n")
	_, err := parse(t, "-config", path)
	assert.ErrorContains(t, err, "parse config")
}

func TestResolveHelp(t *testing.T) {
	_, err := parse(t, "-h")
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
	assert.Equal(t, []string{"a", "b"}, splitList("a,b"))
	assert.Equal(t, []string{"AVTransport"}, splitList(" AVTransport "))
}

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	lvl, err = parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "INFO", lvl.String())

	_, err = parseLevel("trace")
	assert.Error(t, err)
}
