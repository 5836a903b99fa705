package eventing

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GENA header names and values.
const (
	HeaderSID      = "SID"
	HeaderSEQ      = "SEQ"
	HeaderNT       = "NT"
	HeaderNTS      = "NTS"
	HeaderCallback = "CALLBACK"
	HeaderTimeout  = "TIMEOUT"

	NTEvent       = "upnp:event"
	NTSPropChange = "upnp:propchange"

	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
	MethodNotify      = "NOTIFY"
)

const (
	// DefaultTimeout is the subscription duration requested and assumed
	// until a device says otherwise.
	DefaultTimeout = 1800 * time.Second

	// minRenewalDelay bounds how soon a renewal may be scheduled.
	minRenewalDelay = time.Second
)

// FormatTimeout renders d as a TIMEOUT header value ("Second-N").
func FormatTimeout(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return "Second-" + strconv.FormatInt(secs, 10)
}

// ParseTimeout parses a TIMEOUT header value. A missing, malformed,
// out-of-range or "infinite" value yields fallback.
func ParseTimeout(v string, fallback time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if len(v) < len("Second-") || !strings.EqualFold(v[:len("Second-")], "Second-") {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v[len("Second-"):]), 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/int64(time.Second) {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// RenewalDelay returns when to renew a subscription granted for timeout:
// one second before expiry, never sooner than one second from now.
func RenewalDelay(timeout time.Duration) time.Duration {
	d := timeout - time.Second
	if d < minRenewalDelay {
		return minRenewalDelay
	}
	return d
}

// FormatCallback renders the CALLBACK header value for a callback URL.
func FormatCallback(url string) string {
	return "<" + url + ">"
}

// ParseSeq parses a SEQ header. Missing or malformed values report ok=false.
func ParseSeq(v string) (uint32, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func formatSeq(seq uint32) string {
	return strconv.FormatUint(uint64(seq), 10)
}

// sidFrom returns the trimmed SID header of h.
func sidFrom(h http.Header) string {
	return strings.TrimSpace(h.Get(HeaderSID))
}
