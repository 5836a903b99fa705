package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/renderkit/upnp-go/pkg/version"
	"golang.org/x/sync/errgroup"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Client performs the HTTP requests. Default: client with Timeout.
	Client *http.Client

	// Timeout bounds each document fetch. Default: 5 seconds.
	Timeout time.Duration

	// Concurrency limits parallel fetches in Describe. Default: 4.
	Concurrency int

	// FetchSCPD makes Describe fetch the SCPD of every service too.
	FetchSCPD bool

	// MaxDocumentBytes caps document sizes. Default: 1 MiB.
	MaxDocumentBytes int64

	// Logger is used for debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultFetcherConfig returns the default fetcher configuration.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:          5 * time.Second,
		Concurrency:      4,
		MaxDocumentBytes: 1 << 20,
	}
}

// Fetcher downloads and parses description documents.
type Fetcher struct {
	config FetcherConfig
	client *http.Client
}

// NewFetcher creates a Fetcher; zero config fields take their defaults.
func NewFetcher(config FetcherConfig) *Fetcher {
	def := DefaultFetcherConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.MaxDocumentBytes <= 0 {
		config.MaxDocumentBytes = def.MaxDocumentBytes
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &Fetcher{config: config, client: client}
}

// Result is the outcome of describing one location.
type Result struct {
	Location    string
	Description *Description

	// SCPDs is keyed by service ID. Services whose SCPD could not be
	// fetched are absent.
	SCPDs map[string]*SCPD

	Err error
}

var _ Describer = (*Fetcher)(nil)

// FetchDescription downloads and parses the device description at location.
func (f *Fetcher) FetchDescription(ctx context.Context, location string) (*Description, error) {
	body, err := f.get(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseDescription(body, location)
}

// FetchSCPD downloads and parses a service description.
func (f *Fetcher) FetchSCPD(ctx context.Context, scpdURL string) (*SCPD, error) {
	body, err := f.get(ctx, scpdURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseSCPD(body)
}

// Describe fetches the descriptions of all locations concurrently. Results
// are returned in the order of locations; failures are reported per result.
func (f *Fetcher) Describe(ctx context.Context, locations []string) []Result {
	results := make([]Result, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Concurrency)
	for i, loc := range locations {
		results[i].Location = loc
		g.Go(func() error {
			desc, err := f.FetchDescription(gctx, loc)
			if err != nil {
				f.debugLog("describe failed", "location", loc, "error", err)
				results[i].Err = err
				return nil
			}
			results[i].Description = desc
			if f.config.FetchSCPD {
				results[i].SCPDs = f.fetchSCPDs(gctx, desc)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Fetcher) fetchSCPDs(ctx context.Context, desc *Description) map[string]*SCPD {
	var (
		mu  sync.Mutex
		out = make(map[string]*SCPD)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Concurrency)
	for _, dev := range desc.AllDevices() {
		for _, svc := range dev.Services {
			if svc.SCPDURL == "" {
				continue
			}
			g.Go(func() error {
				scpd, err := f.FetchSCPD(gctx, svc.SCPDURL)
				if err != nil {
					f.debugLog("SCPD fetch failed", "url", svc.SCPDURL, "error", err)
					return nil
				}
				mu.Lock()
				out[svc.ServiceID] = scpd
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return out
}

type limitedBody struct {
	io.Reader
	io.Closer
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("discovery: build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("discovery: GET %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: GET %s: %d", ErrBadStatus, rawURL, resp.StatusCode)
	}
	return limitedBody{
		Reader: io.LimitReader(resp.Body, f.config.MaxDocumentBytes),
		Closer: closerFunc(func() error {
			defer cancel()
			return resp.Body.Close()
		}),
	}, nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func (f *Fetcher) debugLog(msg string, args ...any) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, args...)
	}
}
