package discovery

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS defaults for DNS-SD announcing renderers.
const (
	ServiceTypeSonos = "_sonos._tcp"
	Domain           = "local."

	// TXTKeyLocation carries the device description URL.
	TXTKeyLocation = "location"

	BrowseTimeout = 3 * time.Second
)

// BrowseFunc browses for a DNS-SD service, sending entries until ctx ends.
type BrowseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Service is the DNS-SD service type. Default: ServiceTypeSonos.
	Service string

	// BrowseTimeout bounds Discover. Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string

	// Browse replaces zeroconf.Browse, mainly for tests.
	Browse BrowseFunc

	// Logger is used for debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Service:       ServiceTypeSonos,
		BrowseTimeout: BrowseTimeout,
	}
}

// MDNSBrowser discovers devices that announce their description location
// via DNS-SD.
type MDNSBrowser struct {
	config BrowserConfig

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.Service == "" {
		config.Service = ServiceTypeSonos
	}
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	if config.Browse == nil {
		config.Browse = zeroconfBrowse
	}
	return &MDNSBrowser{config: config}
}

var _ Finder = (*MDNSBrowser)(nil)

// Browse streams advertisements until ctx is cancelled or Stop is called.
// Instances are reported once; addresses seen on further interfaces are
// ignored. Entries without a location TXT value are skipped.
func (b *MDNSBrowser) Browse(ctx context.Context) <-chan Advertisement {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan Advertisement)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if seen[entry.Instance] {
					continue
				}
				adv, ok := b.entryToAdvertisement(entry)
				if !ok {
					continue
				}
				seen[entry.Instance] = true
				select {
				case out <- adv:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := b.config.Browse(ctx, b.config.Service, Domain, entries, removed, b.browserOptions()...); err != nil {
			b.debugLog("mDNS browse ended", "error", err)
		}
	}()

	return out
}

// Discover browses for BrowseTimeout and returns what was found.
func (b *MDNSBrowser) Discover(ctx context.Context) ([]Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	var found []Advertisement
	for adv := range b.Browse(ctx) {
		found = append(found, adv)
	}
	return found, nil
}

// Stop stops an active Browse.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func (b *MDNSBrowser) entryToAdvertisement(entry *zeroconf.ServiceEntry) (Advertisement, bool) {
	txt := parseTXT(entry.Text)
	location := txt[TXTKeyLocation]
	if location == "" {
		b.debugLog("mDNS entry without location", "instance", entry.Instance)
		return Advertisement{}, false
	}

	adv := Advertisement{
		Location: location,
		USN:      entry.Instance,
		ST:       b.config.Service,
		Source:   SourceMDNS,
		SeenAt:   time.Now(),
	}
	if len(entry.AddrIPv4) > 0 {
		adv.Addr = net.JoinHostPort(entry.AddrIPv4[0].String(), strconv.Itoa(entry.Port))
	} else if len(entry.AddrIPv6) > 0 {
		adv.Addr = net.JoinHostPort(entry.AddrIPv6[0].String(), strconv.Itoa(entry.Port))
	}
	return adv, true
}

// parseTXT converts "key=value" strings into a map. Keys are lower-cased;
// entries without '=' map to "".
func parseTXT(records []string) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		m[strings.ToLower(k)] = v
	}
	return m
}

func (b *MDNSBrowser) debugLog(msg string, args ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Debug(msg, args...)
	}
}
