package eventing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Listener is the callback HTTP server that devices send NOTIFY requests to.
// It is started lazily on first use and keeps its port until closed.
type Listener struct {
	listenAddr  string
	advertiseIP string
	handler     http.Handler
	logger      *slog.Logger

	coord coordinator

	mu   sync.RWMutex
	ln   net.Listener
	srv  *http.Server
	port int

	// starts counts successful binds; exposed for tests.
	starts int
}

func newListener(listenAddr, advertiseIP string, handler http.Handler, logger *slog.Logger) *Listener {
	l := &Listener{
		listenAddr:  listenAddr,
		advertiseIP: advertiseIP,
		handler:     handler,
		logger:      logger,
	}
	l.coord.start = l.bind
	l.coord.stop = l.shutdownNow
	return l
}

// EnsureStarted requests that the listener is running and calls onReady once
// it is, or with the bind error. Concurrent requests share one start and their
// callbacks run in arrival order, each exactly once. When the listener is
// already running onReady is called synchronously.
func (l *Listener) EnsureStarted(onReady func(error)) {
	l.coord.ensure(onReady)
}

// Start is the blocking form of EnsureStarted.
func (l *Listener) Start(ctx context.Context) error {
	done := make(chan error, 1)
	l.EnsureStarted(func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) bind() error {
	ln, err := net.Listen("tcp", l.listenAddr)
	if err != nil {
		return fmt.Errorf("eventing: bind callback listener: %w", err)
	}

	srv := &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	l.mu.Lock()
	l.ln = ln
	l.srv = srv
	l.port = ln.Addr().(*net.TCPAddr).Port
	l.starts++
	l.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.warnLog("callback listener stopped", "error", err)
		}
	}()

	l.debugLog("callback listener started", "addr", ln.Addr().String())
	return nil
}

// Started reports whether the listener is bound.
func (l *Listener) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ln != nil
}

// Port returns the bound TCP port, or 0 before the listener started.
func (l *Listener) Port() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.port
}

// Addr returns the bound address, or nil before the listener started.
func (l *Listener) Addr() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// CallbackURL returns the URL a device at remoteHost should send NOTIFY
// requests to. The advertised IP is used when configured; otherwise the local
// address that routes to remoteHost.
func (l *Listener) CallbackURL(remoteHost string) (string, error) {
	port := l.Port()
	if port == 0 {
		return "", errors.New("eventing: callback listener not started")
	}

	ip := l.advertiseIP
	if ip == "" {
		local, err := localIPFor(remoteHost)
		if err != nil {
			return "", err
		}
		ip = local.String()
	}
	return "http://" + net.JoinHostPort(ip, strconv.Itoa(port)), nil
}

// Close stops the listener. In-flight NOTIFY handlers finish within ctx.
// Subsequent start requests fail with ErrListenerClosed.
func (l *Listener) Close(ctx context.Context) error {
	if l.coord.close() == phaseNotStarted {
		return nil
	}

	l.mu.Lock()
	srv := l.srv
	l.srv = nil
	l.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// shutdownNow closes a server whose start raced with Close.
func (l *Listener) shutdownNow() {
	l.mu.Lock()
	srv := l.srv
	l.srv = nil
	l.mu.Unlock()
	if srv != nil {
		_ = srv.Close()
	}
}

// localIPFor finds the local address used to reach host. The UDP dial sends
// no packets; it only consults the routing table.
func localIPFor(host string) (net.IP, error) {
	if host != "" {
		conn, err := net.Dial("udp", net.JoinHostPort(host, "1900"))
		if err == nil {
			defer conn.Close()
			if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsUnspecified() {
				return addr.IP, nil
			}
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCallbackAddress, err)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, ErrNoCallbackAddress
}

func (l *Listener) debugLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Listener) warnLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
