package eventing

import "sync"

// phase is the lifecycle phase of a lazily started resource.
type phase uint8

const (
	phaseNotStarted phase = iota
	phaseStarting
	phaseStarted
	phaseClosed
)

func (p phase) String() string {
	switch p {
	case phaseNotStarted:
		return "NOT_STARTED"
	case phaseStarting:
		return "STARTING"
	case phaseStarted:
		return "STARTED"
	case phaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// coordinator collapses concurrent start requests into a single start.
//
// Requests arriving while a start is in flight are queued and completed in
// arrival order, each exactly once, with the start's result. A failed start
// returns to phaseNotStarted so a later request retries.
type coordinator struct {
	mu      sync.Mutex
	phase   phase
	pending []func(error)

	// start performs the actual start. It is called without mu held.
	start func() error

	// stop undoes a successful start that raced with close.
	stop func()
}

// ensure requests that the resource is running and calls onReady once it is
// (or once starting failed). When already started, onReady runs synchronously.
// The caller that triggers a start performs it, settles the phase, then drains
// the queue on its own goroutine.
func (c *coordinator) ensure(onReady func(error)) {
	c.mu.Lock()
	switch c.phase {
	case phaseStarted:
		c.mu.Unlock()
		onReady(nil)
		return
	case phaseClosed:
		c.mu.Unlock()
		onReady(ErrListenerClosed)
		return
	case phaseStarting:
		c.pending = append(c.pending, onReady)
		c.mu.Unlock()
		return
	}
	c.phase = phaseStarting
	c.pending = append(c.pending, onReady)
	c.mu.Unlock()

	err := c.start()

	c.mu.Lock()
	switch {
	case c.phase == phaseClosed:
		// Close arrived while starting.
		c.mu.Unlock()
		if err == nil && c.stop != nil {
			c.stop()
		}
		err = ErrListenerClosed
		c.mu.Lock()
	case err != nil:
		c.phase = phaseNotStarted
	default:
		c.phase = phaseStarted
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	// The phase is final before any callback runs, so a callback that asks
	// again is answered directly instead of queueing behind itself.
	for _, next := range pending {
		next(err)
	}
}

// close moves to phaseClosed and reports the phase it left.
func (c *coordinator) close() phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.phase
	c.phase = phaseClosed
	return prev
}

// current returns the current phase.
func (c *coordinator) current() phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}
