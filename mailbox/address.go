package mailbox

import (
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/lemarier/xtra/internal/logging"
)

// Sender is a handle capable of pushing messages into a Chan. Strong
// handles keep the receiving side alive for connectivity purposes; Weak
// handles observe without holding anything open and must be upgraded
// before use.
type Sender[T any] struct {
	ch        *Chan[T]
	rc        refCounter
	closeOnce *sync.Once
}

// Option configures a Chan at construction time.
type Option func(*chanOptions)

type chanOptions struct {
	logger *logging.Logger
}

// WithLogger attaches a structured logger to the mailbox, used for the
// park/wake trace and debug lines emitted on the hot paths.
func WithLogger(l *logging.Logger) Option {
	return func(o *chanOptions) { o.logger = l }
}

// New creates a Chan together with its first Sender and Receiver, both
// strong. capacity bounds the ordered and priority queues and the
// broadcast ring independently; an empty Option means unbounded.
func New[T any](capacity fn.Option[uint], opts ...Option) (Sender[T], Receiver[T]) {
	cfg := chanOptions{logger: logging.Disabled()}
	for _, opt := range opts {
		opt(&cfg)
	}
	ch, cursorID := newChan[T](capacity)
	ch.log = cfg.logger
	s := Sender[T]{ch: ch, rc: refStrong{}, closeOnce: new(sync.Once)}
	r := Receiver[T]{ch: ch, rc: refStrong{}, cursorID: cursorID, closeOnce: new(sync.Once)}
	return s, r
}

// Send delivers a single-recipient message, parking the caller if every
// queue that could hold it is currently full.
func (s Sender[T]) Send(val T) *SendFuture[T] {
	return newSendFuture(s.ch, toOne(val, 0))
}

// SendPriority is Send with an explicit priority set up front; equivalent
// to calling SetPriority on the future Send returns before polling it.
func (s Sender[T]) SendPriority(val T, priority uint32) *SendFuture[T] {
	return newSendFuture(s.ch, toOne(val, priority))
}

// Broadcast delivers val to every live receiver instance exactly once.
func (s Sender[T]) Broadcast(val T) *SendFuture[T] {
	return newSendFuture(s.ch, toAll(val))
}

// TrySend attempts Send without parking, returning ErrFull if every
// eligible queue is at capacity and no receiver is currently parked.
func (s Sender[T]) TrySend(val T, priority uint32) error {
	status, w := s.ch.trySend(toOne(val, priority))
	if w != nil {
		// trySend parked a waiter on the full queue; withdraw it so the
		// unpark walk drops it instead of delivering the message later.
		w.cancel()
		if w.snapshot() == senderWaitDelivered {
			return nil
		}
	}
	switch status {
	case trySendOk:
		return nil
	case trySendDisconnected:
		return ErrDisconnected
	default:
		return ErrFull
	}
}

// TryBroadcast is the non-blocking counterpart of Broadcast.
func (s Sender[T]) TryBroadcast(val T) error {
	status, w := s.ch.trySend(toAll(val))
	if w != nil {
		w.cancel()
		if w.snapshot() == senderWaitDelivered {
			return nil
		}
	}
	switch status {
	case trySendOk:
		return nil
	case trySendDisconnected:
		return ErrDisconnected
	default:
		return ErrFull
	}
}

// StopAllReceivers pushes a synthetic stop broadcast that bypasses the
// normal capacity check, guaranteeing delivery regardless of backlog.
func (s Sender[T]) StopAllReceivers() {
	s.ch.stopAllReceivers()
}

// IsConnected reports whether at least one strong sender and one strong
// receiver instance remain reachable.
func (s Sender[T]) IsConnected() bool {
	return s.ch.IsConnected()
}

// Capacity reports the bound passed to New.
func (s Sender[T]) Capacity() fn.Option[uint] {
	return s.ch.Capacity()
}

// Len reports the number of messages and pending broadcasts queued.
func (s Sender[T]) Len() int {
	return s.ch.Len()
}

// DisconnectNotice returns a channel that closes once the last receiver
// instance goes away. Unlike an explicit listener registration, returning
// the channel reference itself is race-free: a select on an
// already-closed channel still fires immediately, so there is no window
// between "check connectivity" and "start listening" for callers to fall
// into.
func (s Sender[T]) DisconnectNotice() <-chan struct{} {
	return s.ch.shutdownNotice
}

// IsStrong reports whether this handle participates in the strong sender
// count.
func (s Sender[T]) IsStrong() bool { return s.rc.isStrong() }

// Clone returns another handle of the same strength sharing this Chan.
func (s Sender[T]) Clone() Sender[T] {
	rc := s.rc.increment(&s.ch.senderCount)
	return Sender[T]{ch: s.ch, rc: rc, closeOnce: new(sync.Once)}
}

// Downgrade returns a weak handle to the same Chan.
func (s Sender[T]) Downgrade() Sender[T] {
	return Sender[T]{ch: s.ch, rc: refWeak{}, closeOnce: new(sync.Once)}
}

// TryUpgrade attempts to turn a weak handle into a strong one, failing once
// no strong sender remains.
func (s Sender[T]) TryUpgrade() (Sender[T], bool) {
	if s.ch.senderCount.TryUpgrade() {
		return Sender[T]{ch: s.ch, rc: refStrong{}, closeOnce: new(sync.Once)}, true
	}
	return Sender[T]{}, false
}

// IntoEither erases the strong/weak distinction into a runtime-checked tag,
// used when a caller needs to hold a mix of strong and weak senders behind
// one type.
func (s Sender[T]) IntoEither() Sender[T] {
	return Sender[T]{ch: s.ch, rc: s.rc.intoEither(), closeOnce: s.closeOnce}
}

// Close releases this handle. If it was the last strong sender, every
// parked receiver wakes with Shutdown. Close is idempotent per handle.
func (s Sender[T]) Close() {
	s.closeOnce.Do(func() {
		if s.rc.decrement(&s.ch.senderCount) {
			s.ch.onLastSenderGone()
		}
	})
}

// Receiver is a handle capable of pulling messages out of a Chan. Each
// Receiver returned by New or Clone is a distinct instance with its own
// broadcast cursor; Downgrade/TryUpgrade change capability on that same
// instance rather than creating a new one.
type Receiver[T any] struct {
	ch        *Chan[T]
	rc        refCounter
	cursorID  string
	closeOnce *sync.Once
}

// Recv waits for the next message or broadcast, parking the caller if the
// mailbox is currently empty.
func (r Receiver[T]) Recv() *RecvFuture[T] {
	return newRecvFuture(r.ch, r.cursorID)
}

// TryRecv attempts Recv without parking.
func (r Receiver[T]) TryRecv() (RecvOutcome[T], error) {
	status, w, out := r.ch.tryRecv(r.cursorID)
	if w != nil {
		// tryRecv parked a waiter on the empty mailbox; withdraw it so no
		// sender hands a message to a slot nobody reads.
		w.cancel()
		if st, filled := w.snapshot(); st == receiverWaitFilled {
			return filled, nil
		}
	}
	switch status {
	case tryRecvOk:
		return out, nil
	case tryRecvShutdown:
		return RecvOutcome[T]{}, ErrDisconnected
	default:
		return RecvOutcome[T]{}, ErrEmpty
	}
}

// IsConnected reports whether at least one strong sender and one strong
// receiver instance remain reachable.
func (r Receiver[T]) IsConnected() bool {
	return r.ch.IsConnected()
}

// Capacity reports the bound passed to New.
func (r Receiver[T]) Capacity() fn.Option[uint] {
	return r.ch.Capacity()
}

// Len reports the number of messages and pending broadcasts queued.
func (r Receiver[T]) Len() int {
	return r.ch.Len()
}

// IsStrong reports whether this handle participates in the strong receiver
// count for its instance.
func (r Receiver[T]) IsStrong() bool { return r.rc.isStrong() }

// Clone creates an additional receiver instance with its own broadcast
// cursor starting at the current tail: it will not see broadcasts sent
// before this call.
func (r Receiver[T]) Clone() Receiver[T] {
	id := r.ch.registerCursor()
	return Receiver[T]{ch: r.ch, rc: refStrong{}, cursorID: id, closeOnce: new(sync.Once)}
}

// Downgrade returns a weak handle to this same receiver instance (same
// cursor), not a new one.
func (r Receiver[T]) Downgrade() Receiver[T] {
	return Receiver[T]{ch: r.ch, rc: refWeak{}, cursorID: r.cursorID, closeOnce: new(sync.Once)}
}

// TryUpgrade attempts to turn a weak handle into a strong one on the same
// cursor, failing once that instance's last strong handle is already gone.
func (r Receiver[T]) TryUpgrade() (Receiver[T], bool) {
	r.ch.mu.Lock()
	cur, ok := r.ch.state.cursors[r.cursorID]
	r.ch.mu.Unlock()
	if !ok || !cur.rc.TryUpgrade() {
		return Receiver[T]{}, false
	}
	return Receiver[T]{ch: r.ch, rc: refStrong{}, cursorID: r.cursorID, closeOnce: new(sync.Once)}, true
}

// Close releases this handle. If it was the last strong handle on this
// instance's cursor, the cursor is evicted (so it stops pinning the
// broadcast ring) and the Chan's overall receiver count drops, possibly to
// zero, in which case every parked sender wakes with Closed.
func (r Receiver[T]) Close() {
	r.closeOnce.Do(func() {
		if !r.rc.isStrong() {
			return
		}
		r.ch.releaseCursor(r.cursorID)
	})
}
