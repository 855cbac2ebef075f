package mailbox

import "sync/atomic"

// RefCount is a strong-reference counter guarding one side (sender or
// receiver) of a Chan. Go's garbage collector reclaims the Chan itself once
// nothing reaches it, so unlike the Arc-backed counterpart this package is
// translated from, RefCount tracks only the protocol-level notion of
// "strong handles outstanding" used to decide connectivity (see Chan's
// is_connected logic) — it is not a memory-management primitive.
//
// Go's atomic package does not expose the Relaxed/Acquire/Release ordering
// distinctions the original implementation relies on; every atomic op here
// is sequentially consistent, which is at least as strong as what the
// increment/decrement/upgrade protocol needs.
type RefCount struct {
	strong atomic.Uint32
}

// NewRefCount returns a RefCount initialized to n outstanding strong
// handles.
func NewRefCount(n uint32) *RefCount {
	rc := &RefCount{}
	rc.strong.Store(n)
	return rc
}

// Load returns the current strong count.
func (r *RefCount) Load() uint32 {
	return r.strong.Load()
}

// Increment records one more outstanding strong handle.
func (r *RefCount) Increment() {
	r.strong.Add(1)
}

// Decrement records one fewer outstanding strong handle and reports whether
// this was the transition from one to zero.
func (r *RefCount) Decrement() bool {
	return r.strong.Add(^uint32(0)) == 0
}

// TryUpgrade attempts to convert a weak reference into a strong one. It
// fails once the count has already reached zero, mirroring a CAS loop over
// an Arc's strong count rather than a plain increment, so that a weak
// handle can never resurrect a fully-dropped strong side.
func (r *RefCount) TryUpgrade() bool {
	for {
		n := r.strong.Load()
		if n == 0 {
			return false
		}
		if r.strong.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// refCounter is the capability tag carried by a Sender or Receiver handle:
// Strong participates in the RefCount protocol, Weak observes it without
// holding it alive, and Either defers the choice to a runtime flag (the
// shape TxEither/RxEither take once a Sender/Receiver has been constructed
// generically over "strong or weak").
type refCounter interface {
	increment(rc *RefCount) refCounter
	decrement(rc *RefCount) bool
	isStrong() bool
	intoEither() refCounter
}

type refStrong struct{}

func (refStrong) increment(rc *RefCount) refCounter {
	rc.Increment()
	return refStrong{}
}

func (refStrong) decrement(rc *RefCount) bool {
	return rc.Decrement()
}

func (refStrong) isStrong() bool { return true }

func (refStrong) intoEither() refCounter { return refEither{strong: true} }

type refWeak struct{}

func (refWeak) increment(rc *RefCount) refCounter { return refWeak{} }

func (refWeak) decrement(rc *RefCount) bool { return false }

func (refWeak) isStrong() bool { return false }

func (refWeak) intoEither() refCounter { return refEither{strong: false} }

type refEither struct{ strong bool }

func (e refEither) increment(rc *RefCount) refCounter {
	if e.strong {
		rc.Increment()
	}
	return e
}

func (e refEither) decrement(rc *RefCount) bool {
	if e.strong {
		return rc.Decrement()
	}
	return false
}

func (e refEither) isStrong() bool { return e.strong }

func (e refEither) intoEither() refCounter { return e }
