package eventing

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/metrics"
)

// maxEarlyPerSID bounds how many notifications are held for a SID that is not
// registered yet.
const maxEarlyPerSID = 8

// notifyJob is one accepted NOTIFY waiting for dispatch.
type notifyJob struct {
	sid        string
	seq        uint32
	body       []byte
	remote     string
	receivedAt time.Time
	exchangeID string
}

// demux accepts NOTIFY requests, answers them immediately, and routes the
// decoded property sets to subscriptions by SID on a single worker so that
// notifications are delivered in arrival order.
type demux struct {
	registry *Registry
	clock    clockwork.Clock
	logger   *slog.Logger
	plog     log.Logger
	metrics  *metrics.Metrics
	maxBody  int64

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	queue chan notifyJob
	done  chan struct{}
	wg    sync.WaitGroup

	// Notifications can overtake the SUBSCRIBE response that tells us their
	// SID; they are held for earlyGrace and replayed on registration.
	earlyGrace time.Duration
	earlyMu    sync.Mutex
	early      map[string][]notifyJob

	closeOnce sync.Once
}

func newDemux(cfg Config, registry *Registry, clock clockwork.Clock) *demux {
	d := &demux{
		registry:   registry,
		clock:      clock,
		logger:     cfg.Logger,
		plog:       cfg.ProtocolLogger,
		metrics:    cfg.Metrics,
		maxBody:    cfg.MaxNotifyBodyBytes,
		limiters:   make(map[string]*rate.Limiter),
		limit:      cfg.NotifyRateLimit,
		burst:      cfg.NotifyBurst,
		queue:      make(chan notifyJob, cfg.NotifyQueueSize),
		done:       make(chan struct{}),
		earlyGrace: cfg.EarlyNotifyGrace,
		early:      make(map[string][]notifyJob),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// ServeHTTP implements http.Handler for the callback listener.
func (d *demux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != MethodNotify {
		w.Header().Set("Allow", MethodNotify)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	host := remoteHost(r.RemoteAddr)
	if !d.allow(host) {
		d.metrics.Notify(metrics.NotifyRateLimited)
		d.debugLog("NOTIFY rate limited", "remote", r.RemoteAddr)
		http.Error(w, "too many notifications", http.StatusServiceUnavailable)
		return
	}

	sid := sidFrom(r.Header)
	if sid == "" {
		d.metrics.Notify(metrics.NotifyMissingSID)
		http.Error(w, "missing SID", http.StatusPreconditionFailed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			d.metrics.Notify(metrics.NotifyParseError)
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		d.debugLog("NOTIFY body read failed", "sid", sid, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Acknowledge before decoding; a bad body never delays the device.
	w.WriteHeader(http.StatusOK)

	seq, _ := ParseSeq(r.Header.Get(HeaderSEQ))
	job := notifyJob{
		sid:        sid,
		seq:        seq,
		body:       body,
		remote:     r.RemoteAddr,
		receivedAt: d.clock.Now(),
		exchangeID: uuid.NewString(),
	}
	d.capture(job)

	select {
	case <-d.done:
	case d.queue <- job:
		d.metrics.SetNotifyQueueDepth(len(d.queue))
	default:
		d.metrics.Notify(metrics.NotifyDropped)
		d.warnLog("NOTIFY queue full, dropping notification", "sid", sid, "seq", seq)
	}
}

func (d *demux) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case job := <-d.queue:
			d.metrics.SetNotifyQueueDepth(len(d.queue))
			d.dispatch(job)
		}
	}
}

func (d *demux) dispatch(job notifyJob) {
	sub, ok := d.lookupOrHold(job)
	if !ok {
		return
	}

	props, err := ParsePropertySet(job.body)
	if err != nil {
		d.metrics.Notify(metrics.NotifyParseError)
		d.warnLog("NOTIFY parse failed", "sid", job.sid, "error", err)
		log.Emit(d.plog, log.Event{
			ExchangeID: job.exchangeID,
			Direction:  log.DirectionIn,
			Layer:      log.LayerGENA,
			Category:   log.CategoryError,
			SID:        job.sid,
			RemoteAddr: job.remote,
			Error:      &log.ErrorEventData{Layer: log.LayerGENA, Message: err.Error(), Context: "parse propertyset"},
		})
		sub.notifyError(&ParseError{SID: job.sid, Err: err})
		return
	}

	msg := Message{
		SID:        job.sid,
		Seq:        job.seq,
		Properties: props,
		Body:       job.body,
		RemoteAddr: job.remote,
		ReceivedAt: job.receivedAt,
	}
	log.Emit(d.plog, log.Event{
		ExchangeID: job.exchangeID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerGENA,
		Category:   log.CategoryNotify,
		SID:        job.sid,
		RemoteAddr: job.remote,
		Notify:     &log.NotifyEvent{Seq: job.seq, Properties: msg.Map(), Routed: true},
	})

	sub.deliver(msg)
	d.metrics.Notify(metrics.NotifyRouted)
	d.metrics.NotifyDispatched(d.clock.Since(job.receivedAt))
}

// lookupOrHold returns the subscription for job's SID. Unknown SIDs are held
// for the grace period so they can be replayed once registered; the registry
// is checked again under earlyMu so a registration racing with this call is
// never missed.
func (d *demux) lookupOrHold(job notifyJob) (*Subscription, bool) {
	if sub, ok := d.registry.Get(job.sid); ok {
		return sub, true
	}
	if d.earlyGrace > 0 && d.holdEarly(job) {
		return nil, false
	}
	if sub, ok := d.registry.Get(job.sid); ok {
		return sub, true
	}
	d.metrics.Notify(metrics.NotifyUnknownSID)
	d.debugLog("NOTIFY for unknown SID dropped", "sid", job.sid, "remote", job.remote)
	return nil, false
}

func (d *demux) holdEarly(job notifyJob) bool {
	now := d.clock.Now()

	d.earlyMu.Lock()
	defer d.earlyMu.Unlock()

	if _, ok := d.registry.Get(job.sid); ok {
		return false
	}
	for sid, jobs := range d.early {
		if len(jobs) > 0 && now.Sub(jobs[0].receivedAt) > d.earlyGrace {
			delete(d.early, sid)
		}
	}
	if now.Sub(job.receivedAt) > d.earlyGrace || len(d.early[job.sid]) >= maxEarlyPerSID {
		return false
	}
	d.early[job.sid] = append(d.early[job.sid], job)
	return true
}

// registered replays notifications that arrived before sid was registered.
func (d *demux) registered(sid string) {
	d.earlyMu.Lock()
	jobs := d.early[sid]
	delete(d.early, sid)
	d.earlyMu.Unlock()

	for _, job := range jobs {
		select {
		case d.queue <- job:
		case <-d.done:
			return
		default:
			d.metrics.Notify(metrics.NotifyDropped)
		}
	}
}

func (d *demux) allow(host string) bool {
	if d.limit <= 0 {
		return true
	}
	d.limitMu.Lock()
	lim, ok := d.limiters[host]
	if !ok {
		lim = rate.NewLimiter(d.limit, d.burst)
		d.limiters[host] = lim
	}
	d.limitMu.Unlock()
	return lim.Allow()
}

func (d *demux) capture(job notifyJob) {
	if d.plog == nil {
		return
	}
	ex := &log.ExchangeEvent{
		Method:  MethodNotify,
		Headers: map[string]string{HeaderSID: job.sid, HeaderSEQ: formatSeq(job.seq)},
	}
	ex.SetBody(job.body)
	log.Emit(d.plog, log.Event{
		ExchangeID: job.exchangeID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryExchange,
		SID:        job.sid,
		RemoteAddr: job.remote,
		Exchange:   ex,
	})
}

func (d *demux) close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

func (d *demux) debugLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *demux) warnLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

var _ http.Handler = (*demux)(nil)
