package actor

import (
	"context"
	"iter"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/lemarier/xtra/mailbox"
)

// PriorityMailbox is a Mailbox implementation backed by the mailbox
// package's Chan: envelopes whose message implements PriorityMessage are
// routed through the priority queue by Priority(), everything else falls
// through to plain FIFO order.
type PriorityMailbox[M Message, R any] struct {
	tx       mailbox.Sender[envelope[M, R]]
	rx       mailbox.Receiver[envelope[M, R]]
	actorCtx context.Context
}

var _ Mailbox[Message, any] = (*PriorityMailbox[Message, any])(nil)

// NewPriorityMailbox builds a PriorityMailbox, suitable as an
// ActorConfig.MailboxFactory for actors whose message type implements
// PriorityMessage.
func NewPriorityMailbox[M Message, R any](
	actorCtx context.Context, capacity int,
) Mailbox[M, R] {

	if capacity <= 0 {
		capacity = 1
	}
	tx, rx := mailbox.New[envelope[M, R]](fn.Some(uint(capacity)))
	return &PriorityMailbox[M, R]{tx: tx, rx: rx, actorCtx: actorCtx}
}

func envelopePriority[M Message, R any](env envelope[M, R]) uint32 {
	pm, ok := any(env.message).(PriorityMessage)
	if !ok {
		return 0
	}
	p := pm.Priority()
	if p < 0 {
		return 0
	}
	return uint32(p)
}

// Send is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) Send(ctx context.Context, env envelope[M, R]) bool {
	if ctx.Err() != nil || m.actorCtx.Err() != nil {
		return false
	}

	sendCtx, cancel := mergeContexts(ctx, m.actorCtx)
	defer cancel()

	future := m.tx.SendPriority(env, envelopePriority(env))
	err := future.Wait(sendCtx)

	log.TraceS(ctx, "Priority mailbox send completed",
		"msg_type", env.message.MessageType(), "err", err)

	return err == nil
}

// TrySend is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) TrySend(env envelope[M, R]) bool {
	if m.actorCtx.Err() != nil {
		return false
	}
	return m.tx.TrySend(env, envelopePriority(env)) == nil
}

// Receive is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) Receive(ctx context.Context) iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for {
			if ctx.Err() != nil {
				return
			}

			out, err := m.rx.Recv().Wait(ctx)
			if err != nil {
				return
			}

			if !yield(out.Val) {
				return
			}
		}
	}
}

// Close is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) Close() {
	m.tx.Close()
}

// IsClosed is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) IsClosed() bool {
	return !m.tx.IsConnected()
}

// Drain is part of the Mailbox interface.
func (m *PriorityMailbox[M, R]) Drain() iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for {
			out, err := m.rx.TryRecv()
			if err != nil {
				return
			}
			if !yield(out.Val) {
				return
			}
		}
	}
}
