package service

import (
	"context"
	"errors"
	"strings"

	"github.com/renderkit/upnp-go/pkg/control"
	"github.com/renderkit/upnp-go/pkg/eventing"
)

// subscribe starts a new subscription for b unless b changed since the
// caller read gen.
func (s *ControllerService) subscribe(b *binding, gen uint64) {
	s.mu.Lock()
	if b.removed || b.gen != gen || s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	b.gen++
	gen = b.gen
	b.retry = nil
	s.mu.Unlock()

	sub := s.ev.Subscribe(b.target, &bindingHandler{s: s, b: b, gen: gen})

	s.mu.Lock()
	stale := b.removed || b.gen != gen || s.state != StateRunning
	if !stale && b.retry == nil {
		b.sub = sub
	}
	s.mu.Unlock()

	if stale {
		// Nobody will renew or release it otherwise.
		go func() {
			_ = sub.Unsubscribe(context.Background())
		}()
	}
}

// subscriptionFailed schedules the next attempt for b.
func (s *ControllerService) subscriptionFailed(b *binding, gen uint64, sid string, err error) {
	s.mu.Lock()
	if b.removed || b.gen != gen || s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	b.sub = nil
	if b.retry != nil {
		b.retry.Stop()
	}
	delay := b.backoff.Next()
	b.retry = s.clock.AfterFunc(delay, func() { s.subscribe(b, gen) })
	s.mu.Unlock()

	s.warnLog("subscription failed",
		"udn", b.dev.udn, "service", b.name, "sid", sid, "retry_in", delay, "error", err)
	s.emitEvent(Event{
		Type:      EventSubscriptionFailed,
		DeviceUDN: b.dev.udn,
		Service:   b.name,
		SID:       sid,
		Error:     err,
	})
}

// current reports whether gen is still the live attempt of b.
func (s *ControllerService) current(b *binding, gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !b.removed && b.gen == gen && s.state == StateRunning
}

// bindingHandler receives the events of one subscription attempt.
type bindingHandler struct {
	s   *ControllerService
	b   *binding
	gen uint64
}

func (h *bindingHandler) OnSubscribed(sid string) {
	if !h.s.current(h.b, h.gen) {
		return
	}
	h.b.backoff.Reset()
	h.s.debugLog("subscribed", "udn", h.b.dev.udn, "service", h.b.name, "sid", sid)
	h.s.emitEvent(Event{Type: EventSubscribed, DeviceUDN: h.b.dev.udn, Service: h.b.name, SID: sid})
}

func (h *bindingHandler) OnResubscribed(sid string) {
	h.s.debugLog("renewed", "udn", h.b.dev.udn, "service", h.b.name, "sid", sid)
}

func (h *bindingHandler) OnUnsubscribed(sid string) {
	h.s.debugLog("unsubscribed", "udn", h.b.dev.udn, "service", h.b.name, "sid", sid)
}

func (h *bindingHandler) OnMessage(msg eventing.Message) {
	if !h.s.current(h.b, h.gen) {
		return
	}
	h.s.applyMessage(h.b, msg)
}

func (h *bindingHandler) OnError(err error) {
	var perr *eventing.ParseError
	if errors.As(err, &perr) {
		h.s.warnLog("undecodable NOTIFY", "udn", h.b.dev.udn, "service", h.b.name, "error", err)
		return
	}
	h.s.subscriptionFailed(h.b, h.gen, "", err)
}

func (h *bindingHandler) OnResubscribeError(sid string, err error) {
	h.s.subscriptionFailed(h.b, h.gen, sid, err)
}

func (h *bindingHandler) OnUnsubscribeError(err error) {
	h.s.debugLog("unsubscribe error", "udn", h.b.dev.udn, "service", h.b.name, "error", err)
}

var _ eventing.Handler = (*bindingHandler)(nil)

// applyMessage writes the variables of one NOTIFY. LastChange documents are
// expanded; only instance 0 is tracked and channel-specific values other
// than Master get the channel appended to their name.
func (s *ControllerService) applyMessage(b *binding, msg eventing.Message) {
	for _, p := range msg.Properties {
		if p.Name != eventing.LastChangeVariable {
			s.writeVariable(b, msg.SID, p.Name, p.Value)
			continue
		}
		values, err := eventing.ParseLastChange(p.Value)
		if err != nil {
			s.warnLog("bad LastChange", "udn", b.dev.udn, "service", b.name, "error", err)
			continue
		}
		for _, v := range values {
			if v.InstanceID != 0 {
				continue
			}
			name := v.Name
			if v.Channel != "" && !strings.EqualFold(v.Channel, control.ChannelMaster) {
				name += "_" + v.Channel
			}
			s.writeVariable(b, msg.SID, name, v.Value)
		}
	}
}

// writeVariable stores one evented value, creating its object on first use.
func (s *ControllerService) writeVariable(b *binding, sid, name, value string) {
	id := childID(b.channelID, name)

	s.mu.Lock()
	create := !b.known[id]
	s.mu.Unlock()

	if create {
		if err := s.store.SetObject(s.ctx, id, variableObject(name, "")); err != nil {
			s.warnLog("store variable failed", "id", id, "error", err)
			return
		}
		s.mu.Lock()
		b.known[id] = true
		s.mu.Unlock()
	}
	if err := s.store.SetState(s.ctx, id, value, true); err != nil {
		s.warnLog("store state failed", "id", id, "error", err)
		return
	}
	s.config.Metrics.StateWrite(true)
	s.emitEvent(Event{
		Type:      EventStateChanged,
		DeviceUDN: b.dev.udn,
		Service:   b.name,
		SID:       sid,
		StateID:   id,
		Value:     value,
	})
}
