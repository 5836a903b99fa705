package eventing

import (
	"sort"
	"sync"
)

// Registry maps SIDs to their subscriptions. It is shared by every
// subscription of one Eventing instance and by the NOTIFY demultiplexer.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription

	// onChange is called with the new size after every mutation, outside mu.
	onChange func(n int)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Put registers sub under sid and returns the subscription it displaced, if any.
func (r *Registry) Put(sid string, sub *Subscription) (displaced *Subscription) {
	r.mu.Lock()
	displaced = r.subs[sid]
	r.subs[sid] = sub
	n := len(r.subs)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(n)
	}
	if displaced == sub {
		return nil
	}
	return displaced
}

// Get returns the subscription registered under sid.
func (r *Registry) Get(sid string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[sid]
	return sub, ok
}

// Remove unregisters sid unconditionally.
func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	_, ok := r.subs[sid]
	delete(r.subs, sid)
	n := len(r.subs)
	onChange := r.onChange
	r.mu.Unlock()

	if ok && onChange != nil {
		onChange(n)
	}
}

// Delete unregisters sid only while it still maps to sub, so a terminating
// subscription never removes an entry that a newer subscription reused.
func (r *Registry) Delete(sid string, sub *Subscription) bool {
	r.mu.Lock()
	cur, ok := r.subs[sid]
	if !ok || cur != sub {
		r.mu.Unlock()
		return false
	}
	delete(r.subs, sid)
	n := len(r.subs)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(n)
	}
	return true
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// SIDs returns the registered SIDs in sorted order.
func (r *Registry) SIDs() []string {
	r.mu.RLock()
	sids := make([]string, 0, len(r.subs))
	for sid := range r.subs {
		sids = append(sids, sid)
	}
	r.mu.RUnlock()
	sort.Strings(sids)
	return sids
}

// Subscriptions returns a snapshot of the registered subscriptions.
func (r *Registry) Subscriptions() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}
