package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// promise is the concrete Promise/Future pair used by Ask to bridge a
// mailbox round trip back into a blocking or callback-driven caller.
type promise[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	result   fn.Result[T]
	complete bool
}

// NewPromise returns a new, uncompleted Promise.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

// Complete is part of the Promise interface.
func (p *promise[T]) Complete(result fn.Result[T]) bool {
	ok := false
	p.once.Do(func() {
		p.mu.Lock()
		p.result = result
		p.complete = true
		p.mu.Unlock()
		close(p.done)
		ok = true
	})
	return ok
}

// Future is part of the Promise interface.
func (p *promise[T]) Future() Future[T] {
	return (*future[T])(p)
}

// future is promise viewed through the read-only Future interface.
type future[T any] promise[T]

// Await is part of the Future interface.
func (f *future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result
	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply is part of the Future interface.
func (f *future[T]) ThenApply(ctx context.Context, transform func(T) T) Future[T] {
	next := NewPromise[T]()
	go func() {
		result := f.Await(ctx)
		val, err := result.Unpack()
		if err != nil {
			next.Complete(fn.Err[T](err))
			return
		}
		next.Complete(fn.Ok(transform(val)))
	}()
	return next.Future()
}

// OnComplete is part of the Future interface.
func (f *future[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		select {
		case <-f.done:
			f.mu.Lock()
			result := f.result
			f.mu.Unlock()
			cb(result)
		case <-ctx.Done():
			cb(fn.Err[T](ctx.Err()))
		}
	}()
}
