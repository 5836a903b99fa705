package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/koron/go-ssdp"
)

// SearchConfig configures a Searcher.
type SearchConfig struct {
	// Target is the ST used by Discover. Default: SearchMediaRenderer.
	Target string

	// MX is the maximum response delay requested from devices, in seconds.
	// Responses are collected for this long. Default: 2.
	MX int

	// LocalAddr is the local UDP address the search is sent from.
	// Empty lets the SSDP library pick.
	LocalAddr string

	// Logger is used for debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Target: SearchMediaRenderer,
		MX:     2,
	}
}

// searchFunc sends one M-SEARCH and collects responses for waitSec seconds.
type searchFunc func(st string, waitSec int, localAddr string) ([]ssdp.Service, error)

func ssdpSearch(st string, waitSec int, localAddr string) ([]ssdp.Service, error) {
	return ssdp.Search(st, waitSec, localAddr)
}

// Searcher performs SSDP M-SEARCH discovery.
type Searcher struct {
	config SearchConfig
	search searchFunc
}

// NewSearcher creates a Searcher; zero config fields take their defaults.
func NewSearcher(config SearchConfig) *Searcher {
	def := DefaultSearchConfig()
	if config.Target == "" {
		config.Target = def.Target
	}
	if config.MX <= 0 {
		config.MX = def.MX
	}
	return &Searcher{config: config, search: ssdpSearch}
}

var _ Finder = (*Searcher)(nil)

// Discover searches for the configured target.
func (s *Searcher) Discover(ctx context.Context) ([]Advertisement, error) {
	return s.Search(ctx, s.config.Target)
}

type searchResult struct {
	services []ssdp.Service
	err      error
}

// Search sends M-SEARCH for st and returns the distinct responses received
// within MX seconds. Responses without a location are dropped. Cancelling
// ctx abandons the search.
func (s *Searcher) Search(ctx context.Context, st string) ([]Advertisement, error) {
	done := make(chan searchResult, 1)
	go func() {
		services, err := s.search(st, s.config.MX, s.config.LocalAddr)
		done <- searchResult{services, err}
	}()

	var res searchResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("discovery: M-SEARCH %s: %w", st, res.err)
	}

	now := time.Now()
	seen := make(map[string]bool)
	var found []Advertisement
	for i := range res.services {
		adv, err := advertisementOf(&res.services[i], now)
		if err != nil {
			s.debugLog("ignoring SSDP response", "usn", res.services[i].USN, "error", err)
			continue
		}
		if seen[adv.USN] {
			continue
		}
		seen[adv.USN] = true
		found = append(found, adv)
		s.debugLog("SSDP response", "usn", adv.USN, "location", adv.Location)
	}
	return found, nil
}

func advertisementOf(svc *ssdp.Service, now time.Time) (Advertisement, error) {
	if svc.Location == "" {
		return Advertisement{}, ErrNoLocation
	}
	adv := Advertisement{
		Location: svc.Location,
		USN:      svc.USN,
		ST:       svc.Type,
		Server:   svc.Server,
		Source:   SourceSSDP,
		SeenAt:   now,
	}
	if age := svc.MaxAge(); age > 0 {
		adv.MaxAge = time.Duration(age) * time.Second
	}
	if adv.USN == "" {
		adv.USN = adv.Location
	}
	// The sender address is not exposed; use the description host.
	if u, err := url.Parse(adv.Location); err == nil {
		adv.Addr = u.Host
	}
	return adv, nil
}

func (s *Searcher) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
