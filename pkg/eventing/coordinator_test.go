package eventing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoordinatorConcurrentEnsureStartsOnce(t *testing.T) {
	var starts atomic.Int32
	c := &coordinator{start: func() error {
		starts.Add(1)
		return nil
	}}

	const n = 50
	var wg sync.WaitGroup
	var calls atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := make(chan struct{})
			c.ensure(func(err error) {
				if err != nil {
					t.Errorf("callback error: %v", err)
				}
				calls.Add(1)
				close(done)
			})
			<-done
		}()
	}
	wg.Wait()

	if got := starts.Load(); got != 1 {
		t.Errorf("start called %d times, want 1", got)
	}
	if got := calls.Load(); got != n {
		t.Errorf("callbacks = %d, want %d", got, n)
	}
	if c.current() != phaseStarted {
		t.Errorf("phase = %s, want STARTED", c.current())
	}
}

func TestCoordinatorQueuedCallbacksFireInOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := &coordinator{start: func() error {
		close(entered)
		<-release
		return nil
	}}

	var mu sync.Mutex
	var order []int
	record := func(i int) func(error) {
		return func(error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}

	first := make(chan struct{})
	go func() {
		c.ensure(record(0))
		close(first)
	}()
	<-entered

	for i := 1; i <= 5; i++ {
		c.ensure(record(i))
	}
	close(release)
	<-first

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 6 {
		t.Fatalf("got %d callbacks, want 6", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want 0..5", order)
		}
	}
}

func TestCoordinatorStartedCallsSynchronously(t *testing.T) {
	c := &coordinator{start: func() error { return nil }}
	c.ensure(func(error) {})

	called := false
	c.ensure(func(err error) { called = err == nil })
	if !called {
		t.Error("callback not invoked synchronously once started")
	}
}

func TestCoordinatorFailureNotifiesAllAndRetries(t *testing.T) {
	bindErr := errors.New("address in use")
	fail := true
	var starts int
	c := &coordinator{start: func() error {
		starts++
		if fail {
			return bindErr
		}
		return nil
	}}

	var got error
	c.ensure(func(err error) { got = err })
	if !errors.Is(got, bindErr) {
		t.Fatalf("callback err = %v, want %v", got, bindErr)
	}
	if c.current() != phaseNotStarted {
		t.Fatalf("phase = %s after failure, want NOT_STARTED", c.current())
	}

	fail = false
	c.ensure(func(err error) { got = err })
	if got != nil {
		t.Errorf("retry err = %v, want nil", got)
	}
	if starts != 2 {
		t.Errorf("starts = %d, want 2", starts)
	}
}

func TestCoordinatorCallbackMayReenter(t *testing.T) {
	c := &coordinator{start: func() error { return nil }}
	var inner bool
	c.ensure(func(error) {
		c.ensure(func(err error) { inner = err == nil })
	})
	if !inner {
		t.Error("re-entrant ensure was not completed")
	}
}

func TestCoordinatorPhaseSettledBeforeCallbacks(t *testing.T) {
	c := &coordinator{start: func() error { return nil }}
	var seen phase
	c.ensure(func(error) { seen = c.current() })
	if seen != phaseStarted {
		t.Errorf("phase inside callback = %s, want STARTED", seen)
	}

	failed := &coordinator{start: func() error { return errors.New("address in use") }}
	failed.ensure(func(error) { seen = failed.current() })
	if seen != phaseNotStarted {
		t.Errorf("phase inside failure callback = %s, want NOT_STARTED", seen)
	}
}

func TestCoordinatorClosed(t *testing.T) {
	c := &coordinator{start: func() error { return nil }}
	c.close()

	var got error
	c.ensure(func(err error) { got = err })
	if !errors.Is(got, ErrListenerClosed) {
		t.Errorf("err = %v, want ErrListenerClosed", got)
	}
}

func TestCoordinatorCloseDuringStartStops(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	stopped := false
	c := &coordinator{
		start: func() error {
			close(entered)
			<-release
			return nil
		},
		stop: func() { stopped = true },
	}

	done := make(chan error, 1)
	go c.ensure(func(err error) { done <- err })
	<-entered
	c.close()
	close(release)

	if err := <-done; !errors.Is(err, ErrListenerClosed) {
		t.Errorf("err = %v, want ErrListenerClosed", err)
	}
	if !stopped {
		t.Error("stop not called for start that raced with close")
	}
	if c.current() != phaseClosed {
		t.Errorf("phase = %s, want CLOSED", c.current())
	}
}

func TestListenerConcurrentEnsureStartedBindsOnce(t *testing.T) {
	l := newListener("127.0.0.1:0", "127.0.0.1", http.NotFoundHandler(), nil)
	defer l.Close(t.Context())

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Start(t.Context())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	}
	l.mu.RLock()
	starts := l.starts
	l.mu.RUnlock()
	if starts != 1 {
		t.Errorf("bound %d times, want 1", starts)
	}
	if l.Port() == 0 {
		t.Error("Port() = 0 after start")
	}

	url, err := l.CallbackURL("192.0.2.1")
	if err != nil {
		t.Fatalf("CallbackURL: %v", err)
	}
	if want := "http://127.0.0.1:" + itoa(l.Port()); url != want {
		t.Errorf("CallbackURL = %q, want %q", url, want)
	}
}

func TestListenerStartFromReadyCallback(t *testing.T) {
	l := newListener("127.0.0.1:0", "127.0.0.1", http.NotFoundHandler(), nil)
	defer l.Close(t.Context())

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	nested := make(chan error, 1)
	l.EnsureStarted(func(err error) {
		if err != nil {
			nested <- err
			return
		}
		nested <- l.Start(ctx)
	})
	if err := <-nested; err != nil {
		t.Fatalf("Start inside ready callback: %v", err)
	}
}

func TestListenerCallbackURLBeforeStart(t *testing.T) {
	l := newListener("127.0.0.1:0", "", http.NotFoundHandler(), nil)
	if _, err := l.CallbackURL("127.0.0.1"); err == nil {
		t.Error("expected error before start")
	}
}

func TestLocalIPForLoopback(t *testing.T) {
	ip, err := localIPFor("127.0.0.1")
	if err != nil {
		t.Fatalf("localIPFor: %v", err)
	}
	if !ip.IsLoopback() {
		t.Errorf("ip = %s, want loopback", ip)
	}
}
