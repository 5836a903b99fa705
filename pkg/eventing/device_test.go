package eventing_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renderkit/upnp-go/pkg/eventing"
)

const eventPath = "/MediaRenderer/RenderingControl/Event"

// gena is one GENA request seen by the fake device.
type gena struct {
	Method   string
	SID      string
	Callback string
	NT       string
	Timeout  string
}

// fakeDevice answers SUBSCRIBE and UNSUBSCRIBE like a renderer would and can
// push NOTIFYs to the callback it was given.
type fakeDevice struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []gena
	callback string

	// Response knobs.
	sid             string
	timeout         string
	subscribeStatus int
	renewStatus     int
	omitSID         bool

	// blockSubscribe holds the initial SUBSCRIBE until closed.
	blockSubscribe chan struct{}
	// hangUnsubscribe makes UNSUBSCRIBE never answer.
	hangUnsubscribe bool
	// beforeResponse runs inside the SUBSCRIBE handler before it answers.
	beforeResponse func(callback string)

	release chan struct{}
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	d := &fakeDevice{
		t:               t,
		sid:             "uuid:abc",
		timeout:         "Second-600",
		subscribeStatus: http.StatusOK,
		renewStatus:     http.StatusOK,
		release:         make(chan struct{}),
	}
	d.srv = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(func() {
		close(d.release)
		d.srv.Close()
	})
	return d
}

func (d *fakeDevice) serve(w http.ResponseWriter, r *http.Request) {
	req := gena{
		Method:   r.Method,
		SID:      r.Header.Get("SID"),
		Callback: r.Header.Get("CALLBACK"),
		NT:       r.Header.Get("NT"),
		Timeout:  r.Header.Get("TIMEOUT"),
	}

	d.mu.Lock()
	d.requests = append(d.requests, req)
	if req.Callback != "" {
		d.callback = strings.Trim(req.Callback, "<>")
	}
	block := d.blockSubscribe
	hang := d.hangUnsubscribe
	before := d.beforeResponse
	d.mu.Unlock()

	switch {
	case r.Method == eventing.MethodSubscribe && req.SID == "":
		if block != nil {
			select {
			case <-block:
			case <-d.release:
				return
			}
		}
		if before != nil {
			before(strings.Trim(req.Callback, "<>"))
		}
		d.mu.Lock()
		status, sid, timeout, omit := d.subscribeStatus, d.sid, d.timeout, d.omitSID
		d.mu.Unlock()
		if !omit {
			w.Header()["SID"] = []string{sid}
		}
		w.Header()["TIMEOUT"] = []string{timeout}
		w.WriteHeader(status)
	case r.Method == eventing.MethodSubscribe:
		d.mu.Lock()
		status, timeout := d.renewStatus, d.timeout
		d.mu.Unlock()
		w.Header()["SID"] = []string{req.SID}
		w.Header()["TIMEOUT"] = []string{timeout}
		w.WriteHeader(status)
	case r.Method == eventing.MethodUnsubscribe:
		if hang {
			select {
			case <-r.Context().Done():
			case <-d.release:
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (d *fakeDevice) target() eventing.Target {
	host, port, _ := net.SplitHostPort(strings.TrimPrefix(d.srv.URL, "http://"))
	p, _ := strconv.Atoi(port)
	return eventing.Target{Host: host, Port: p, EventSubPath: eventPath}
}

func (d *fakeDevice) seen() []gena {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gena(nil), d.requests...)
}

func (d *fakeDevice) count(method string) int {
	n := 0
	for _, r := range d.seen() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (d *fakeDevice) callbackURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.callback
}

func (d *fakeDevice) set(f func(d *fakeDevice)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(d)
}

// sendNotify posts a NOTIFY to callback and returns the status code.
func sendNotify(t *testing.T, callback, sid string, seq int, body string) int {
	t.Helper()
	req, err := http.NewRequest(eventing.MethodNotify, callback, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build NOTIFY: %v", err)
	}
	if sid != "" {
		req.Header["SID"] = []string{sid}
	}
	req.Header["SEQ"] = []string{strconv.Itoa(seq)}
	req.Header["NT"] = []string{eventing.NTEvent}
	req.Header["NTS"] = []string{eventing.NTSPropChange}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("send NOTIFY: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func propertySet(name, value string) string {
	return `<?xml version="1.0"?>` +
		`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">` +
		`<e:property><` + name + `>` + value + `</` + name + `></e:property>` +
		`</e:propertyset>`
}

// recorder collects handler events on a channel.
type recorder struct {
	events chan eventing.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan eventing.Event, 64)}
}

func (r *recorder) handler() eventing.HandlerFunc {
	return func(e eventing.Event) { r.events <- e }
}

func (r *recorder) next(t *testing.T) eventing.Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscription event")
		return eventing.Event{}
	}
}

func (r *recorder) expect(t *testing.T, typ eventing.EventType) eventing.Event {
	t.Helper()
	e := r.next(t)
	if e.Type != typ {
		t.Fatalf("got event %s (err=%v), want %s", e.Type, e.Err, typ)
	}
	return e
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case e := <-r.events:
		t.Fatalf("unexpected event %s (sid=%s err=%v)", e.Type, e.SID, e.Err)
	case <-time.After(wait):
	}
}

func testConfig(clock clockwork.Clock) eventing.Config {
	cfg := eventing.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdvertiseIP = "127.0.0.1"
	cfg.Clock = clock
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}
