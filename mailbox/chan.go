package mailbox

import (
	"container/heap"
	"container/list"
	"context"
	"math"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/lemarier/xtra/internal/logging"
)

// unboundedCapacity stands in for "no bound" in the internal arithmetic
// paths; Capacity() still reports the caller's fn.Option[uint] verbatim.
const unboundedCapacity = math.MaxInt32

// tryRecvStatus is the non-blocking outcome of a receive attempt.
type tryRecvStatus uint8

const (
	tryRecvOk tryRecvStatus = iota
	tryRecvEmpty
	tryRecvShutdown
)

// trySendStatus is the non-blocking outcome of a send attempt.
type trySendStatus uint8

const (
	trySendOk trySendStatus = iota
	trySendFull
	trySendDisconnected
)

// broadcastCursor tracks one live receiver instance's position in the
// broadcast ring plus the strong-handle count keeping that instance (and
// therefore its cursor) alive. Instances with no outstanding strong handle
// no longer hold back reclamation.
type broadcastCursor struct {
	next uint64
	rc   RefCount
}

type chanState[T any] struct {
	ordered  deque.Deque[Msg[T]]
	priority priorityHeap[T]
	seq      uint64

	ring          []*Bcast[T]
	ringBase      uint64
	producedCount uint64

	cursors map[string]*broadcastCursor

	waitingSenders   *list.List
	waitingReceivers *list.List
}

// Chan is the mutex-guarded aggregate shared by every Sender and Receiver
// handle on one mailbox: the three queues, both waiter lists, and the two
// reference counts that determine connectivity.
type Chan[T any] struct {
	mu sync.Mutex

	state chanState[T]

	senderCount   RefCount
	receiverCount atomic.Uint32

	capacityOpt fn.Option[uint]
	capacity    int

	shutdownNotice chan struct{}
	shutdownOnce   sync.Once

	log *logging.Logger
}

// newChan builds an empty Chan with one outstanding strong sender and one
// outstanding strong receiver instance, matching the pair New returns. It
// returns the new instance's cursor id alongside the Chan.
func newChan[T any](capacity fn.Option[uint]) (*Chan[T], string) {
	c := &Chan[T]{
		state: chanState[T]{
			cursors:          make(map[string]*broadcastCursor),
			waitingSenders:   list.New(),
			waitingReceivers: list.New(),
		},
		shutdownNotice: make(chan struct{}),
		log:            logging.Disabled(),
	}
	c.senderCount.Increment()
	c.receiverCount.Store(1)

	c.capacityOpt = capacity
	c.capacity = int(capacity.UnwrapOr(unboundedCapacity))

	id := uuid.NewString()
	cur := &broadcastCursor{next: 0}
	cur.rc.Increment()
	c.state.cursors[id] = cur

	return c, id
}

func (c *Chan[T]) capacityInt() int {
	return c.capacity
}

// IsConnected reports whether at least one strong sender and one strong
// receiver instance remain.
func (c *Chan[T]) IsConnected() bool {
	return c.senderCount.Load() > 0 && c.receiverCount.Load() > 0
}

// Len reports the number of messages and pending broadcasts currently
// queued, summed across all three stores.
func (c *Chan[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ordered.Len() + c.state.priority.Len() + len(c.state.ring)
}

// Capacity reports the bound passed to New, or an empty Option for an
// unbounded Chan.
func (c *Chan[T]) Capacity() fn.Option[uint] {
	return c.capacityOpt
}

// registerCursor allocates a new broadcast cursor starting at the current
// tail, used by Receiver.Clone. The clone is a distinct live receiver
// instance, so this balances the decrement releaseCursor performs when
// that instance's last strong handle drops.
func (c *Chan[T]) registerCursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	cur := &broadcastCursor{next: c.state.producedCount}
	cur.rc.Increment()
	c.state.cursors[id] = cur
	c.receiverCount.Add(1)
	return id
}

// releaseCursor drops a strong handle on the given cursor; once the last
// one is gone the cursor is evicted so it stops pinning the ring, and the
// Chan's overall receiver count is decremented, possibly crossing to zero.
func (c *Chan[T]) releaseCursor(id string) {
	c.mu.Lock()
	cur, ok := c.state.cursors[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	last := cur.rc.Decrement()
	if !last {
		c.mu.Unlock()
		return
	}
	delete(c.state.cursors, id)
	freed := c.reclaimLocked()
	c.mu.Unlock()

	if freed > 0 {
		c.unparkSenders()
	}

	if c.receiverCount.Add(^uint32(0)) == 0 {
		c.onLastReceiverGone()
	}
}

// onLastReceiverGone wakes every parked sender with Closed and opens the
// disconnect notice, used by Sender.DisconnectNotice.
func (c *Chan[T]) onLastReceiverGone() {
	c.mu.Lock()
	var woken []*WaitingSender[T]
	for e := c.state.waitingSenders.Front(); e != nil; {
		next := e.Next()
		wp := e.Value.(weak.Pointer[WaitingSender[T]])
		if w := wp.Value(); w != nil {
			woken = append(woken, w)
		}
		c.state.waitingSenders.Remove(e)
		e = next
	}
	c.mu.Unlock()

	for _, w := range woken {
		w.fulfill(false)
	}
	c.shutdownOnce.Do(func() {
		close(c.shutdownNotice)
		c.log.DebugS(context.Background(), "last receiver instance gone, disconnect notice fired",
			"woken_senders", len(woken))
	})
}

// onLastSenderGone wakes every parked receiver with Shutdown, the I1
// transition.
func (c *Chan[T]) onLastSenderGone() {
	c.mu.Lock()
	var woken []*WaitingReceiver[T]
	for e := c.state.waitingReceivers.Front(); e != nil; {
		next := e.Next()
		wp := e.Value.(weak.Pointer[WaitingReceiver[T]])
		if w := wp.Value(); w != nil {
			woken = append(woken, w)
		}
		c.state.waitingReceivers.Remove(e)
		e = next
	}
	c.mu.Unlock()

	for _, w := range woken {
		w.shutdown()
	}
	c.log.DebugS(context.Background(), "last strong sender gone, waking parked receivers",
		"woken_receivers", len(woken))
}

// reclaimLocked pops ring entries no live cursor still needs and returns
// how many it freed. Must be called with mu held.
func (c *Chan[T]) reclaimLocked() int {
	if len(c.state.ring) == 0 {
		return 0
	}
	min := c.state.producedCount
	for _, cur := range c.state.cursors {
		if cur.next < min {
			min = cur.next
		}
	}
	freed := 0
	for len(c.state.ring) > 0 && c.state.ringBase < min {
		c.state.ring = c.state.ring[1:]
		c.state.ringBase++
		freed++
	}
	return freed
}

func (c *Chan[T]) broadcastFullLocked() bool {
	return len(c.state.ring) >= c.capacityInt()
}

func (c *Chan[T]) pushBroadcastLocked(b *Bcast[T]) {
	c.state.ring = append(c.state.ring, b)
	c.state.producedCount++
}

// popFrontLiveReceiverLocked removes and returns the first non-expired,
// non-cancelled parked receiver, discarding stale entries along the way.
// Must be called with mu held.
func (c *Chan[T]) popFrontLiveReceiverLocked() *WaitingReceiver[T] {
	for e := c.state.waitingReceivers.Front(); e != nil; {
		next := e.Next()
		wp := e.Value.(weak.Pointer[WaitingReceiver[T]])
		c.state.waitingReceivers.Remove(e)
		if w := wp.Value(); w != nil && !w.cancelled.Load() {
			return w
		}
		e = next
	}
	return nil
}

// drainWaitingReceiversLocked removes and returns every live parked
// receiver, used when a broadcast lands and every one of them must be
// nudged. Must be called with mu held.
func (c *Chan[T]) drainWaitingReceiversLocked() []*WaitingReceiver[T] {
	var out []*WaitingReceiver[T]
	for e := c.state.waitingReceivers.Front(); e != nil; {
		next := e.Next()
		wp := e.Value.(weak.Pointer[WaitingReceiver[T]])
		c.state.waitingReceivers.Remove(e)
		if w := wp.Value(); w != nil && !w.cancelled.Load() {
			out = append(out, w)
		}
		e = next
	}
	return out
}

// trySend is the non-blocking send attempt shared by SendFuture and
// Sender.TrySend. On trySendFull it has already registered a WaitingSender
// under the lock and returns it.
func (c *Chan[T]) trySend(msg sentMessage[T]) (trySendStatus, *WaitingSender[T]) {
	c.mu.Lock()

	if c.senderCount.Load() == 0 || c.receiverCount.Load() == 0 {
		c.mu.Unlock()
		return trySendDisconnected, nil
	}

	switch msg.kind {
	case sentToAll:
		if c.broadcastFullLocked() {
			w := newWaitingSender(msg)
			c.state.waitingSenders.PushBack(weak.Make(w))
			c.mu.Unlock()
			return trySendFull, w
		}
		c.pushBroadcastLocked(msg.all)
		recvs := c.drainWaitingReceiversLocked()
		c.mu.Unlock()
		for _, r := range recvs {
			r.nudge()
		}
		return trySendOk, nil

	default: // sentToOne
		if r := c.popFrontLiveReceiverLocked(); r != nil {
			c.mu.Unlock()
			r.fulfill(RecvOutcome[T]{Kind: RecvMessage, Val: msg.one.Val})
			return trySendOk, nil
		}
		if msg.one.Priority == 0 {
			if c.state.ordered.Len() < c.capacityInt() {
				c.state.ordered.PushBack(msg.one)
				c.mu.Unlock()
				return trySendOk, nil
			}
		} else if c.state.priority.Len() < c.capacityInt() {
			c.state.seq++
			heap.Push(&c.state.priority, priorityItem[T]{msg: msg.one, seq: c.state.seq})
			c.mu.Unlock()
			return trySendOk, nil
		}
		w := newWaitingSender(msg)
		c.state.waitingSenders.PushBack(weak.Make(w))
		c.mu.Unlock()
		c.log.TraceS(context.Background(), "parking sender, target queue full")
		return trySendFull, w
	}
}

// tryRecv is the non-blocking receive attempt shared by RecvFuture and
// Receiver.TryRecv. On tryRecvEmpty it has already registered a
// WaitingReceiver under the lock and returns it.
func (c *Chan[T]) tryRecv(cursorID string) (tryRecvStatus, *WaitingReceiver[T], RecvOutcome[T]) {
	c.mu.Lock()

	cur := c.state.cursors[cursorID]
	if cur != nil && cur.next < c.state.producedCount {
		idx := cur.next - c.state.ringBase
		b := c.state.ring[idx]
		cur.next++
		freed := c.reclaimLocked()
		c.mu.Unlock()
		if freed > 0 {
			c.unparkSenders()
		}
		if b.Stop {
			return tryRecvOk, nil, RecvOutcome[T]{Kind: RecvStopped}
		}
		return tryRecvOk, nil, RecvOutcome[T]{Kind: RecvBroadcast, Val: b.Val}
	}

	if c.state.priority.Len() > 0 {
		item := heap.Pop(&c.state.priority).(priorityItem[T])
		c.mu.Unlock()
		c.unparkSenders()
		return tryRecvOk, nil, RecvOutcome[T]{Kind: RecvMessage, Val: item.msg.Val}
	}

	if c.state.ordered.Len() > 0 {
		m := c.state.ordered.PopFront()
		c.mu.Unlock()
		c.unparkSenders()
		return tryRecvOk, nil, RecvOutcome[T]{Kind: RecvMessage, Val: m.Val}
	}

	if c.senderCount.Load() == 0 {
		c.mu.Unlock()
		return tryRecvShutdown, nil, RecvOutcome[T]{}
	}

	w := newWaitingReceiver[T]()
	c.state.waitingReceivers.PushBack(weak.Make(w))
	c.mu.Unlock()
	c.log.TraceS(context.Background(), "parking receiver, mailbox empty")
	return tryRecvEmpty, w, RecvOutcome[T]{}
}

// unparkSenders walks the waiting-sender list in FIFO order, moving each
// one's message into its target queue (or directly into a parked
// receiver's slot) until either the list is exhausted or the next waiter's
// target is still full, at which point the walk stops rather than skipping
// ahead — out-of-order delivery would violate the arrival-order guarantee
// parking is supposed to preserve.
func (c *Chan[T]) unparkSenders() {
	type action struct {
		w          *WaitingSender[T]
		directRecv *WaitingReceiver[T]
		recvOut    RecvOutcome[T]
		nudges     []*WaitingReceiver[T]
	}
	var actions []action

	c.mu.Lock()
	e := c.state.waitingSenders.Front()
walk:
	for e != nil {
		next := e.Next()
		wp := e.Value.(weak.Pointer[WaitingSender[T]])
		w := wp.Value()
		if w == nil || w.cancelled.Load() {
			c.state.waitingSenders.Remove(e)
			e = next
			continue
		}

		msg := w.peek()
		switch msg.kind {
		case sentToAll:
			if c.broadcastFullLocked() {
				break walk
			}
			c.pushBroadcastLocked(msg.all)
			recvs := c.drainWaitingReceiversLocked()
			c.state.waitingSenders.Remove(e)
			actions = append(actions, action{w: w, nudges: recvs})

		default: // sentToOne
			if r := c.popFrontLiveReceiverLocked(); r != nil {
				c.state.waitingSenders.Remove(e)
				actions = append(actions, action{
					w:          w,
					directRecv: r,
					recvOut:    RecvOutcome[T]{Kind: RecvMessage, Val: msg.one.Val},
				})
			} else if msg.one.Priority == 0 && c.state.ordered.Len() < c.capacityInt() {
				c.state.ordered.PushBack(msg.one)
				c.state.waitingSenders.Remove(e)
				actions = append(actions, action{w: w})
			} else if msg.one.Priority != 0 && c.state.priority.Len() < c.capacityInt() {
				c.state.seq++
				heap.Push(&c.state.priority, priorityItem[T]{msg: msg.one, seq: c.state.seq})
				c.state.waitingSenders.Remove(e)
				actions = append(actions, action{w: w})
			} else {
				break walk
			}
		}
		e = next
	}
	c.mu.Unlock()

	for _, a := range actions {
		a.w.fulfill(true)
		if a.directRecv != nil {
			a.directRecv.fulfill(a.recvOut)
		}
		for _, r := range a.nudges {
			r.nudge()
		}
	}
}

// stopAllReceivers force-pushes a synthetic stop broadcast, bypassing the
// normal capacity check: shutdown must not fail because the ring happens to
// be full. It still wakes every live parked receiver the same way an
// ordinary broadcast would.
func (c *Chan[T]) stopAllReceivers() {
	c.mu.Lock()
	c.pushBroadcastLocked(&Bcast[T]{Stop: true})
	recvs := c.drainWaitingReceiversLocked()
	c.mu.Unlock()

	for _, r := range recvs {
		r.nudge()
	}
}
