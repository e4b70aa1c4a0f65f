package storefront

import (
	"context"
	"sync/atomic"
)

const (
	pendingInFlight int32 = iota
	pendingDelivering
	pendingCancelled
)

// Pending is the caller's handle on an in-flight call. Cancelling it before
// the call resolves suppresses delivery; once delivery has started Cancel is
// a no-op for the callback.
type Pending struct {
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// Async runs call on its own goroutine and hands the result to deliver unless
// the returned handle was cancelled first.
func Async[T any](ctx context.Context, call func(context.Context) (T, error), deliver func(T, error)) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		defer cancel()

		v, err := call(ctx)
		if p.state.CompareAndSwap(pendingInFlight, pendingDelivering) {
			deliver(v, err)
		}
	}()

	return p
}

// Cancel reports whether delivery was suppressed.
func (p *Pending) Cancel() bool {
	suppressed := p.state.CompareAndSwap(pendingInFlight, pendingCancelled)
	p.cancel()
	return suppressed
}

// Done is closed once the call has returned and delivery, if any, finished.
func (p *Pending) Done() <-chan struct{} { return p.done }
