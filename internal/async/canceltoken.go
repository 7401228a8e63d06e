package async

import (
	"context"
	"sync"
)

// CancelToken is a shareable cancellation flag with listener
// registration: the unit of cooperative cancellation for one
// orchestration. A token is created at the start of an orchestration,
// threaded as an explicit parameter through submission, polling, and
// artifact fetch, and never reused. Once aborted it stays aborted.
type CancelToken struct {
	mu        sync.Mutex
	aborted   bool
	listeners []func()
	done      chan struct{}
}

// NewCancelToken returns an unaborted token.
func NewCancelToken() *CancelToken {
	return &CancelToken{
		done: make(chan struct{}),
	}
}

// Abort flips the token to its permanently aborted state. The first call
// invokes every registered listener exactly once, in registration order;
// subsequent calls are no-ops.
func (t *CancelToken) Abort() {
	t.mu.Lock()
	if t.aborted {
		t.mu.Unlock()
		return
	}
	t.aborted = true
	listeners := t.listeners
	t.listeners = nil
	close(t.done)
	t.mu.Unlock()

	// Listeners run outside the lock so they may inspect the token.
	for _, fn := range listeners {
		fn()
	}
}

// Aborted reports whether the token has been aborted. Pure read.
func (t *CancelToken) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// OnAbort registers a listener invoked exactly once when the token
// aborts. If the token is already aborted the listener fires immediately,
// so a registration can never miss the abort.
func (t *CancelToken) OnAbort(fn func()) {
	t.mu.Lock()
	if t.aborted {
		t.mu.Unlock()
		fn()
		return
	}
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Done returns a channel closed when the token aborts, for use in select
// statements alongside timers and context cancellation.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Bind derives a child context cancelled when either the parent is
// cancelled or the token aborts. Every network-issuing call should
// receive a bound context so the transport can abandon in-flight
// requests on abort.
func (t *CancelToken) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	t.OnAbort(cancel)
	return ctx, cancel
}
