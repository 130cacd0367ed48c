package client

import (
	"context"
	"sync"
	"time"
)

type refreshState int

const (
	refreshIdle refreshState = iota
	refreshInFlight
)

func (s refreshState) String() string {
	switch s {
	case refreshIdle:
		return "idle"
	case refreshInFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// refreshCall is the shared result of one refresh round trip
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// refresher coordinates token refreshes so that at most one is outstanding.
// Idle -> InFlight happens on the first 401; every 401 that arrives while
// InFlight joins the same call. The call returns to Idle before its waiters
// are released.
type refresher struct {
	timeout time.Duration

	mu    sync.Mutex
	state refreshState
	call  *refreshCall
}

func newRefresher(timeout time.Duration) *refresher {
	return &refresher{timeout: timeout}
}

// do starts fn if no refresh is in flight, then waits for the in-flight call.
// fn runs on a context detached from ctx so one caller giving up does not fail
// the refresh for the others.
func (r *refresher) do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	r.mu.Lock()
	call := r.call
	if r.state == refreshIdle {
		call = &refreshCall{done: make(chan struct{})}
		r.call = call
		r.state = refreshInFlight
		go r.run(context.WithoutCancel(ctx), call, fn)
	}
	r.mu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *refresher) run(ctx context.Context, call *refreshCall, fn func(context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	call.token, call.err = fn(ctx)

	r.mu.Lock()
	r.state = refreshIdle
	r.call = nil
	r.mu.Unlock()

	close(call.done)
}

func (r *refresher) State() refreshState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
