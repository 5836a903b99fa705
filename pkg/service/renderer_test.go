package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/persistence"
	"github.com/renderkit/upnp-go/pkg/service"
)

const (
	testUDN      = "uuid:RINCON_TEST01400"
	testDeviceID = "upnp." + testUDN
	testName     = "Living Room"
)

const rendererDescription = `<?xml version="1.0" encoding="utf-8"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Living Room</friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>Play:1</modelName>
    <UDN>uuid:RINCON_TEST01400</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
        <controlURL>/AVTransport/Control</controlURL>
        <eventSubURL>/AVTransport/Event</eventSubURL>
        <SCPDURL>/AVTransport/scpd.xml</SCPDURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
        <controlURL>/RenderingControl/Control</controlURL>
        <eventSubURL>/RenderingControl/Event</eventSubURL>
        <SCPDURL>/RenderingControl/scpd.xml</SCPDURL>
      </service>
    </serviceList>
  </device>
</root>`

const renderingControlSCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <serviceStateTable>
    <stateVariable sendEvents="yes"><name>LastChange</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>Volume</name><dataType>ui2</dataType></stateVariable>
    <stateVariable sendEvents="yes"><name>OutputFixed</name><dataType>boolean</dataType></stateVariable>
  </serviceStateTable>
</scpd>`

// fakeRenderer serves a description, accepts GENA subscriptions and answers
// SOAP actions for two services.
type fakeRenderer struct {
	t   *testing.T
	srv *httptest.Server

	mu              sync.Mutex
	subscribeStatus map[string]int
	subscribes      map[string]int
	unsubscribes    map[string]int
	callbacks       map[string]string
	actions         []string
	bodies          []string
	faultCode       string
}

func newFakeRenderer(t *testing.T) *fakeRenderer {
	t.Helper()
	r := &fakeRenderer{
		t:               t,
		subscribeStatus: make(map[string]int),
		subscribes:      make(map[string]int),
		unsubscribes:    make(map[string]int),
		callbacks:       make(map[string]string),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRenderer) location() string {
	return r.srv.URL + "/desc.xml"
}

func (r *fakeRenderer) serve(w http.ResponseWriter, req *http.Request) {
	svc, _, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")

	switch {
	case req.Method == http.MethodGet && req.URL.Path == "/desc.xml":
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, rendererDescription)
	case req.Method == http.MethodGet && req.URL.Path == "/RenderingControl/scpd.xml":
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, renderingControlSCPD)
	case req.Method == eventing.MethodSubscribe:
		r.mu.Lock()
		defer r.mu.Unlock()
		sid := req.Header.Get("SID")
		if sid == "" {
			r.subscribes[svc]++
			if status := r.subscribeStatus[svc]; status != 0 && status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			sid = "uuid:sub-" + svc + "-" + strconv.Itoa(r.subscribes[svc])
			r.callbacks[svc] = strings.Trim(req.Header.Get("CALLBACK"), "<>")
		}
		w.Header()["SID"] = []string{sid}
		w.Header()["TIMEOUT"] = []string{"Second-600"}
		w.WriteHeader(http.StatusOK)
	case req.Method == eventing.MethodUnsubscribe:
		r.mu.Lock()
		r.unsubscribes[svc]++
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case req.Method == http.MethodPost:
		body, _ := io.ReadAll(req.Body)
		soapAction := strings.Trim(req.Header.Get("SOAPACTION"), `"`)
		serviceType, action, _ := strings.Cut(soapAction, "#")
		r.mu.Lock()
		r.actions = append(r.actions, svc+"#"+action)
		r.bodies = append(r.bodies, string(body))
		code := r.faultCode
		r.mu.Unlock()

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		if code != "" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, soapEnvelope(`<s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail>`+
				`<UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>`+code+`</errorCode></UPnPError></detail></s:Fault>`))
			return
		}
		_, _ = io.WriteString(w, soapEnvelope(`<u:`+action+`Response xmlns:u="`+serviceType+`"></u:`+action+`Response>`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func soapEnvelope(inner string) string {
	return `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>` + inner + `</s:Body></s:Envelope>`
}

func (r *fakeRenderer) set(f func(r *fakeRenderer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r)
}

func (r *fakeRenderer) subscribeCount(svc string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribes[svc]
}

func (r *fakeRenderer) unsubscribeCount(svc string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribes[svc]
}

func (r *fakeRenderer) callback(svc string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callbacks[svc]
}

func (r *fakeRenderer) calls() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...), append([]string(nil), r.bodies...)
}

// notify posts a NOTIFY with one property to the callback of svc.
func (r *fakeRenderer) notify(t *testing.T, svc, sid, name, value string) {
	t.Helper()
	body := `<?xml version="1.0"?><e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">` +
		`<e:property><` + name + `>` + xmlEscape(value) + `</` + name + `></e:property></e:propertyset>`
	req, err := http.NewRequest(eventing.MethodNotify, r.callback(svc), strings.NewReader(body))
	require.NoError(t, err)
	req.Header["SID"] = []string{sid}
	req.Header["SEQ"] = []string{"0"}
	req.Header["NT"] = []string{eventing.NTEvent}
	req.Header["NTS"] = []string{eventing.NTSPropChange}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

var xmlEscape = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace

// eventLog collects service events delivered on handler goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []service.Event
}

func (l *eventLog) handle(e service.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(typ service.EventType, match func(service.Event) bool) (service.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Type == typ && (match == nil || match(e)) {
			return e, true
		}
	}
	return service.Event{}, false
}

func (l *eventLog) wait(t *testing.T, typ service.EventType, match func(service.Event) bool) service.Event {
	t.Helper()
	var got service.Event
	require.Eventually(t, func() bool {
		e, ok := l.find(typ, match)
		got = e
		return ok
	}, 5*time.Second, 10*time.Millisecond, "no %s event", typ)
	return got
}

func (l *eventLog) count(typ service.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func forService(name string) func(service.Event) bool {
	return func(e service.Event) bool { return e.Service == name }
}

// harness wires a ControllerService to a fake renderer with a fake clock.
type harness struct {
	svc    *service.ControllerService
	store  *persistence.MemoryStore
	clock  *clockwork.FakeClock
	events *eventLog
	ev     *eventing.Eventing
}

func newHarness(t *testing.T, finder discovery.Finder, mutate func(cfg *service.Config)) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	evCfg := eventing.DefaultConfig()
	evCfg.ListenAddr = "127.0.0.1:0"
	evCfg.AdvertiseIP = "127.0.0.1"
	evCfg.Clock = clock
	evCfg.RequestTimeout = 2 * time.Second
	ev := eventing.New(evCfg)

	h := &harness{
		store:  persistence.NewMemoryStore(""),
		clock:  clock,
		events: &eventLog{},
		ev:     ev,
	}

	cfg := service.DefaultConfig()
	cfg.Store = h.store
	cfg.Finder = finder
	cfg.Describer = discovery.NewFetcher(discovery.FetcherConfig{FetchSCPD: true})
	cfg.Eventing = ev
	cfg.Control = control.NewClient(control.DefaultConfig())
	cfg.Clock = clock
	cfg.DiscoveryInterval = 0
	cfg.ResubscribeBackoff.Jitter = 0
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := service.NewControllerService(cfg)
	require.NoError(t, err)
	svc.OnEvent(h.events.handle)
	h.svc = svc

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if svc.State() == service.StateRunning {
			_ = svc.Stop(ctx)
		}
		_ = ev.Close(ctx)
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.Start(context.Background()))
}

func (h *harness) state(t *testing.T, id string) persistence.State {
	t.Helper()
	st, err := h.store.GetState(context.Background(), id)
	require.NoError(t, err, id)
	return st
}

// eventuallyState waits until id holds value with the given ack flag.
func (h *harness) eventuallyState(t *testing.T, id, value string, ack bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := h.store.GetState(context.Background(), id)
		return err == nil && st.Value == value && st.Ack == ack
	}, 5*time.Second, 10*time.Millisecond, "state %s never became %q (ack=%v)", id, value, ack)
}

func advertisement(r *fakeRenderer) discovery.Advertisement {
	return discovery.Advertisement{
		Location: r.location(),
		USN:      testUDN + "::urn:schemas-upnp-org:device:MediaRenderer:1",
		ST:       discovery.SearchMediaRenderer,
		Source:   discovery.SourceSSDP,
	}
}
