package eventing

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Target identifies the event subscription endpoint of one device service.
type Target struct {
	Host         string
	Port         int
	EventSubPath string
}

// ParseTarget builds a Target from an absolute eventSubURL.
func ParseTarget(rawURL string) (Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("eventing: parse event URL: %w", err)
	}
	if u.Scheme != "http" || u.Hostname() == "" {
		return Target{}, fmt.Errorf("eventing: event URL %q is not an absolute http URL", rawURL)
	}
	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Target{}, fmt.Errorf("eventing: bad port in %q", rawURL)
		}
	}
	return Target{Host: u.Hostname(), Port: port, EventSubPath: u.RequestURI()}, nil
}

// URL returns the absolute URL SUBSCRIBE and UNSUBSCRIBE requests are sent to.
func (t Target) URL() string {
	path := t.EventSubPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) + path
}

// String returns the target URL.
func (t Target) String() string { return t.URL() }
