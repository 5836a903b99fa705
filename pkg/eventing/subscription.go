package eventing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renderkit/upnp-go/pkg/log"
)

// State is the lifecycle state of a Subscription.
type State uint8

const (
	// StateCreated - constructed, nothing sent.
	StateCreated State = iota

	// StatePending - waiting for the listener or the SUBSCRIBE response.
	StatePending

	// StateActive - SID assigned, renewal scheduled.
	StateActive

	// StateTerminated - no longer registered; terminal.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StatePending:
		return "PENDING"
	case StateActive:
		return "ACTIVE"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Subscription is one GENA event subscription to a device service.
//
// It sends the initial SUBSCRIBE once the callback listener runs, renews one
// second before the negotiated timeout, and sends UNSUBSCRIBE on request. A
// failed renewal terminates the subscription; recreating it is up to the caller.
type Subscription struct {
	ev      *Eventing
	target  Target
	handler Handler

	mu      sync.Mutex
	state   State
	sid     string
	timeout time.Duration
	timer   clockwork.Timer
	gen     uint64

	// Notifications routed before OnSubscribed returned wait here.
	announced bool
	backlog   []Message

	lastSeq uint32
	seqSeen bool
}

func newSubscription(ev *Eventing, target Target, handler Handler) *Subscription {
	if handler == nil {
		handler = NopHandler{}
	}
	return &Subscription{
		ev:      ev,
		target:  target,
		handler: handler,
		state:   StateCreated,
		timeout: ev.cfg.DefaultTimeout,
	}
}

// Target returns the subscribed endpoint.
func (s *Subscription) Target() Target {
	return s.target
}

// SID returns the subscription identifier, or "" before the device assigned one.
func (s *Subscription) SID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Timeout returns the subscription duration granted by the device, or the
// requested default before the first response.
func (s *Subscription) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// start moves to Pending and asks the listener to run.
func (s *Subscription) start() {
	s.transition(StatePending, "")
	s.ev.listener.EnsureStarted(func(err error) {
		if err != nil {
			s.fail(fmt.Errorf("eventing: start callback listener: %w", err))
			return
		}
		go s.subscribe()
	})
}

func (s *Subscription) subscribe() {
	ctx, cancel := context.WithTimeout(s.ev.ctx, s.ev.cfg.RequestTimeout)
	defer cancel()

	callback, err := s.ev.listener.CallbackURL(s.target.Host)
	if err != nil {
		s.fail(err)
		return
	}

	requested := s.Timeout()
	resp, err := s.ev.exchange(ctx, MethodSubscribe, s.target.URL(), map[string]string{
		HeaderCallback: FormatCallback(callback),
		HeaderNT:       NTEvent,
		HeaderTimeout:  FormatTimeout(requested),
	}, "")
	var sid string
	if err == nil {
		switch {
		case !is2xx(resp.StatusCode):
			err = &StatusError{Method: MethodSubscribe, Code: resp.StatusCode}
		default:
			if sid = sidFrom(resp.Header); sid == "" {
				err = ErrMissingSID
			}
		}
	}
	s.ev.cfg.Metrics.SubscriptionOp("subscribe", err)
	if err != nil {
		s.fail(err)
		return
	}

	if s.ev.ctx.Err() != nil {
		// Closed while the request was in flight; release the device side.
		s.ev.releaseOrphan(s.target, sid)
		s.fail(ErrClosed)
		return
	}

	timeout := ParseTimeout(resp.Header.Get(HeaderTimeout), requested)

	s.mu.Lock()
	s.sid = sid
	s.timeout = timeout
	s.state = StateActive
	s.armLocked()
	displaced := s.ev.registry.Put(sid, s)
	s.mu.Unlock()

	if displaced != nil {
		s.ev.warnLog("SID reassigned by device", "sid", sid, "target", s.target.String())
		displaced.terminate(fmt.Errorf("%w: SID %s reassigned", ErrTerminated, sid))
	}
	s.ev.debugLog("subscribed", "sid", sid, "target", s.target.String(), "timeout", timeout)
	s.capture(StatePending, StateActive, "")

	s.handler.OnSubscribed(sid)
	s.flushBacklog()
	s.ev.demux.registered(sid)
}

// armLocked schedules the next renewal. Callers hold s.mu.
func (s *Subscription) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.ev.clock.AfterFunc(RenewalDelay(s.timeout), func() { s.renew(gen) })
}

func (s *Subscription) renew(gen uint64) {
	s.mu.Lock()
	if s.state != StateActive || s.gen != gen {
		s.mu.Unlock()
		return
	}
	sid, requested := s.sid, s.timeout
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ev.ctx, s.ev.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.ev.exchange(ctx, MethodSubscribe, s.target.URL(), map[string]string{
		HeaderSID:     sid,
		HeaderTimeout: FormatTimeout(requested),
	}, sid)
	if err == nil && !is2xx(resp.StatusCode) {
		err = &StatusError{Method: MethodSubscribe, Code: resp.StatusCode}
	}
	s.ev.cfg.Metrics.SubscriptionOp("renew", err)

	s.mu.Lock()
	if s.state != StateActive || s.gen != gen {
		// Unsubscribed while the renewal was in flight.
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state = StateTerminated
		s.mu.Unlock()

		s.ev.registry.Delete(sid, s)
		s.ev.warnLog("renewal failed", "sid", sid, "target", s.target.String(), "error", err)
		s.capture(StateActive, StateTerminated, "renewal failed")
		s.handler.OnResubscribeError(sid, err)
		return
	}
	if got := sidFrom(resp.Header); got != "" && got != sid {
		s.ev.debugLog("renewal answered with different SID, keeping original", "sid", sid, "got", got)
	}
	s.timeout = ParseTimeout(resp.Header.Get(HeaderTimeout), requested)
	s.armLocked()
	s.mu.Unlock()

	s.ev.debugLog("renewed", "sid", sid, "timeout", s.Timeout())
	s.handler.OnResubscribed(sid)
}

// Unsubscribe cancels renewal and sends UNSUBSCRIBE, waiting at most the
// configured unsubscribe timeout (3s by default) for the device. A device that
// does not answer in time is treated as unsubscribed. Without a SID no request
// is sent, ErrNotSubscribed is reported and the state is left unchanged.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	sid, state := s.sid, s.state
	if sid == "" {
		s.mu.Unlock()
		s.handler.OnUnsubscribeError(ErrNotSubscribed)
		return ErrNotSubscribed
	}
	if state == StateTerminated {
		s.mu.Unlock()
		s.ev.registry.Delete(sid, s)
		err := fmt.Errorf("%w: %s", ErrTerminated, sid)
		s.handler.OnUnsubscribeError(err)
		return err
	}
	s.state = StateTerminated
	s.mu.Unlock()

	s.ev.registry.Delete(sid, s)
	s.capture(state, StateTerminated, "unsubscribe")

	ctx, cancel := context.WithTimeout(ctx, s.ev.cfg.UnsubscribeTimeout)
	defer cancel()

	resp, err := s.ev.exchange(ctx, MethodUnsubscribe, s.target.URL(), map[string]string{HeaderSID: sid}, sid)
	switch {
	case err == nil:
		if !is2xx(resp.StatusCode) {
			s.ev.debugLog("UNSUBSCRIBE rejected", "sid", sid, "status", resp.StatusCode)
		}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.ev.debugLog("UNSUBSCRIBE unanswered", "sid", sid, "timeout", s.ev.cfg.UnsubscribeTimeout)
		err = nil
	default:
		s.ev.cfg.Metrics.SubscriptionOp("unsubscribe", err)
		s.handler.OnUnsubscribeError(err)
		return err
	}
	s.ev.cfg.Metrics.SubscriptionOp("unsubscribe", nil)
	s.handler.OnUnsubscribed(sid)
	return nil
}

// fail terminates a subscription that never became active.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	old := s.state
	s.state = StateTerminated
	s.mu.Unlock()

	s.ev.warnLog("subscribe failed", "target", s.target.String(), "error", err)
	s.capture(old, StateTerminated, err.Error())
	s.handler.OnError(err)
}

// terminate stops an active subscription whose SID was taken over.
func (s *Subscription) terminate(err error) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.state = StateTerminated
	s.mu.Unlock()
	s.handler.OnError(err)
}

// deliver hands a routed notification to the handler.
func (s *Subscription) deliver(msg Message) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	if !s.announced {
		s.backlog = append(s.backlog, msg)
		s.mu.Unlock()
		return
	}
	s.checkSeqLocked(msg.Seq)
	s.mu.Unlock()

	s.handler.OnMessage(msg)
}

// flushBacklog delivers notifications that were routed before OnSubscribed.
func (s *Subscription) flushBacklog() {
	s.mu.Lock()
	for len(s.backlog) > 0 {
		msg := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.checkSeqLocked(msg.Seq)
		s.mu.Unlock()
		s.handler.OnMessage(msg)
		s.mu.Lock()
	}
	s.backlog = nil
	s.announced = true
	s.mu.Unlock()
}

// notifyError reports an undecodable notification.
func (s *Subscription) notifyError(err error) {
	if s.State() != StateActive {
		return
	}
	s.handler.OnError(err)
}

// checkSeqLocked logs gaps in the event key. Keys wrap from MaxUint32 to 1.
func (s *Subscription) checkSeqLocked(seq uint32) {
	if s.seqSeen && seq != 0 {
		want := s.lastSeq + 1
		if s.lastSeq == math.MaxUint32 {
			want = 1
		}
		if seq != want {
			s.ev.warnLog("NOTIFY sequence gap", "sid", s.sid, "expected", want, "got", seq)
		}
	}
	s.lastSeq = seq
	s.seqSeen = true
}

func (s *Subscription) transition(to State, reason string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	s.capture(from, to, reason)
}

func (s *Subscription) capture(from, to State, reason string) {
	if s.ev.cfg.ProtocolLogger == nil {
		return
	}
	log.Emit(s.ev.cfg.ProtocolLogger, log.Event{
		Layer:      log.LayerService,
		Category:   log.CategoryState,
		RemoteAddr: s.target.URL(),
		SID:        s.SID(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

// releaseOrphan sends a best-effort UNSUBSCRIBE for a SID nobody will renew.
func (e *Eventing) releaseOrphan(target Target, sid string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.UnsubscribeTimeout)
	defer cancel()
	if _, err := e.exchange(ctx, MethodUnsubscribe, target.URL(), map[string]string{HeaderSID: sid}, sid); err != nil {
		e.debugLog("orphan UNSUBSCRIBE failed", "sid", sid, "error", err)
	}
}
