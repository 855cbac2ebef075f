package mailbox

import "context"

type sendFutureState uint8

const (
	sendFutureNew sendFutureState = iota
	sendFutureWaiting
	sendFutureDone
)

// SendFuture drives one send to completion. It is created in the New state
// by Sender.Send and Sender.Broadcast; Wait blocks the calling goroutine
// until the message is delivered or the channel disconnects, while Poll
// exposes the same state machine non-blocking for callers that want to
// multiplex it with a select alongside other channels.
//
// A SendFuture must not be shared across goroutines and must not be reused
// after Wait or a terminal Poll returns.
type SendFuture[T any] struct {
	ch      *Chan[T]
	msg     sentMessage[T]
	state   sendFutureState
	waiting *WaitingSender[T]
}

func newSendFuture[T any](ch *Chan[T], msg sentMessage[T]) *SendFuture[T] {
	return &SendFuture[T]{ch: ch, msg: msg}
}

// SetPriority overrides the priority of a single-recipient send before it
// starts. It panics if called after the future has been polled, or on a
// broadcast future, mirroring the original's "priority can only be set on
// an as-yet-unsent, single-recipient message" contract.
func (f *SendFuture[T]) SetPriority(p uint32) {
	if f.state != sendFutureNew {
		panic(ErrPriorityAfterPoll)
	}
	if f.msg.kind != sentToOne {
		panic(ErrPriorityOnBroadcast)
	}
	f.msg.one.Priority = p
}

// IsTerminated reports whether the future has already resolved.
func (f *SendFuture[T]) IsTerminated() bool {
	return f.state == sendFutureDone
}

// Poll advances the state machine by one non-blocking step. ready is true
// once the future has resolved, at which point err carries the outcome
// (nil on success, ErrDisconnected if the last receiver went away). Poll
// must be called again after a false return, typically after ctx or the
// future's readiness channel (not exposed; use Wait for that) unblocks.
func (f *SendFuture[T]) Poll(ctx context.Context) (ready bool, err error) {
	switch f.state {
	case sendFutureDone:
		return true, nil

	case sendFutureNew:
		status, waiter := f.ch.trySend(f.msg)
		switch status {
		case trySendOk:
			f.state = sendFutureDone
			return true, nil
		case trySendDisconnected:
			f.state = sendFutureDone
			return true, ErrDisconnected
		default: // trySendFull
			f.waiting = waiter
			f.state = sendFutureWaiting
			// Mandatory immediate re-check: a concurrent receive could
			// have fulfilled this waiter between registration and here.
			return f.Poll(ctx)
		}

	default: // sendFutureWaiting
		select {
		case <-f.waiting.done:
			switch f.waiting.snapshot() {
			case senderWaitDelivered:
				f.state = sendFutureDone
				return true, nil
			case senderWaitClosed:
				f.state = sendFutureDone
				return true, ErrDisconnected
			default:
				return false, nil
			}
		default:
			return false, nil
		}
	}
}

// Wait blocks until the send completes, the channel disconnects, or ctx is
// done. On ctx cancellation the waiter is marked cancelled so a later
// unpark walk drops its message instead of delivering it.
func (f *SendFuture[T]) Wait(ctx context.Context) error {
	for {
		ready, err := f.Poll(ctx)
		if ready {
			return err
		}
		select {
		case <-f.waiting.done:
			continue
		case <-ctx.Done():
			f.waiting.cancel()
			f.state = sendFutureDone
			return ctx.Err()
		}
	}
}

type recvFutureState uint8

const (
	recvFutureNew recvFutureState = iota
	recvFutureWaiting
	recvFutureDone
)

// RecvFuture drives one receive to completion, symmetric to SendFuture.
type RecvFuture[T any] struct {
	ch       *Chan[T]
	cursorID string
	state    recvFutureState
	waiting  *WaitingReceiver[T]
}

func newRecvFuture[T any](ch *Chan[T], cursorID string) *RecvFuture[T] {
	return &RecvFuture[T]{ch: ch, cursorID: cursorID}
}

// IsTerminated reports whether the future has already resolved.
func (f *RecvFuture[T]) IsTerminated() bool {
	return f.state == recvFutureDone
}

// Poll advances the receive state machine by one non-blocking step.
func (f *RecvFuture[T]) Poll(ctx context.Context) (ready bool, outcome RecvOutcome[T], err error) {
	switch f.state {
	case recvFutureDone:
		return true, RecvOutcome[T]{}, nil

	case recvFutureNew:
		status, waiter, out := f.ch.tryRecv(f.cursorID)
		switch status {
		case tryRecvOk:
			f.state = recvFutureDone
			return true, out, nil
		case tryRecvShutdown:
			f.state = recvFutureDone
			return true, RecvOutcome[T]{}, ErrDisconnected
		default: // tryRecvEmpty
			f.waiting = waiter
			f.state = recvFutureWaiting
			return f.Poll(ctx)
		}

	default: // recvFutureWaiting
		select {
		case <-f.waiting.done:
			state, out := f.waiting.snapshot()
			switch state {
			case receiverWaitFilled:
				f.state = recvFutureDone
				return true, out, nil
			case receiverWaitShutdown:
				f.state = recvFutureDone
				return true, RecvOutcome[T]{}, ErrDisconnected
			default:
				// Nudged, not fulfilled: a broadcast landed while we
				// were parked. Re-enter try_recv to read it through our
				// own cursor instead of having content pushed to us.
				f.waiting = nil
				f.state = recvFutureNew
				return f.Poll(ctx)
			}
		default:
			return false, RecvOutcome[T]{}, nil
		}
	}
}

// Wait blocks until a message arrives, the channel disconnects, or ctx is
// done.
func (f *RecvFuture[T]) Wait(ctx context.Context) (RecvOutcome[T], error) {
	for {
		ready, out, err := f.Poll(ctx)
		if ready {
			return out, err
		}
		select {
		case <-f.waiting.done:
			continue
		case <-ctx.Done():
			f.waiting.cancel()
			f.state = recvFutureDone
			return RecvOutcome[T]{}, ctx.Err()
		}
	}
}
