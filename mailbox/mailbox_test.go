package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustSend[T any](t *testing.T, f *SendFuture[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.Wait(ctx))
}

func TestSendRecvRoundTrip(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(4)))
	defer tx.Close()
	defer rx.Close()

	mustSend(t, tx.Send(42))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, RecvMessage, out.Kind)
	require.Equal(t, 42, out.Val)
}

func TestOrderedDeliveryPreservesArrivalOrder(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(8)))
	defer tx.Close()
	defer rx.Close()

	for i := 0; i < 5; i++ {
		mustSend(t, tx.Send(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		out, err := rx.Recv().Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, i, out.Val)
	}
}

func TestPriorityOrdersAboveFIFO(t *testing.T) {
	tx, rx := New[string](fn.Some(uint(8)))
	defer tx.Close()
	defer rx.Close()

	require.NoError(t, tx.TrySend("low-1", 0))
	require.NoError(t, tx.TrySend("low-2", 0))
	require.NoError(t, tx.TrySend("high", 10))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "high", out.Val)

	out, err = rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "low-1", out.Val)

	out, err = rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "low-2", out.Val)
}

func TestPriorityTiesBrokenByArrival(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(8)))
	defer tx.Close()
	defer rx.Close()

	require.NoError(t, tx.TrySend(1, 5))
	require.NoError(t, tx.TrySend(2, 5))
	require.NoError(t, tx.TrySend(3, 5))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []int{1, 2, 3} {
		out, err := rx.Recv().Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, want, out.Val)
	}
}

func TestTrySendFullThenTryRecvUnparks(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()
	defer rx.Close()

	require.NoError(t, tx.TrySend(1, 0))
	require.ErrorIs(t, tx.TrySend(2, 0), ErrFull)

	out, err := rx.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 1, out.Val)

	require.NoError(t, tx.TrySend(2, 0))
}

func TestSendParksThenDeliveredOnSpace(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()
	defer rx.Close()

	require.NoError(t, tx.TrySend(1, 0))

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- tx.Send(2).Wait(ctx)
	}()

	// Give the sender a moment to park before draining.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Val)

	require.NoError(t, <-done)

	out, err = rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, out.Val)
}

func TestBroadcastDeliversToEveryClone(t *testing.T) {
	tx, rx1 := New[string](fn.Some(uint(4)))
	rx2 := rx1.Clone()
	defer tx.Close()
	defer rx1.Close()
	defer rx2.Close()

	mustSend(t, tx.Broadcast("hello"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out1, err := rx1.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, RecvBroadcast, out1.Kind)
	require.Equal(t, "hello", out1.Val)

	out2, err := rx2.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, RecvBroadcast, out2.Kind)
	require.Equal(t, "hello", out2.Val)
}

func TestCloneOnlySeesBroadcastsAfterItsCreation(t *testing.T) {
	tx, rx1 := New[int](fn.Some(uint(4)))
	defer tx.Close()
	defer rx1.Close()

	mustSend(t, tx.Broadcast(1))

	rx2 := rx1.Clone()
	defer rx2.Close()

	mustSend(t, tx.Broadcast(2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := rx1.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Val)
	out, err = rx1.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, out.Val)

	out, err = rx2.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, out.Val)
}

func TestStopAllReceiversDeliversThroughBroadcastPath(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(0)))
	defer tx.Close()
	defer rx.Close()

	tx.StopAllReceivers()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, RecvStopped, out.Kind)
}

func TestStopAllReceiversBypassesCapacity(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()
	defer rx.Close()

	clone := rx.Clone()
	defer clone.Close()

	mustSend(t, tx.Broadcast(1)) // fills the ring to its bound of 1

	// Would normally fail: the ring is already full.
	tx.StopAllReceivers()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Val)
	out, err = rx.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, RecvStopped, out.Kind)
}

func TestLastSenderCloseWakesParkedReceiver(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer rx.Close()

	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := rx.Recv().Wait(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	tx.Close()

	require.ErrorIs(t, <-errCh, ErrDisconnected)
}

func TestLastReceiverCloseWakesParkedSenderAndDisconnectNotice(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()

	require.NoError(t, tx.TrySend(1, 0))

	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errCh <- tx.Send(2).Wait(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	rx.Close()

	require.ErrorIs(t, <-errCh, ErrDisconnected)

	select {
	case <-tx.DisconnectNotice():
	default:
		t.Fatal("expected disconnect notice to be closed")
	}
}

func TestClosingOneCloneLeavesOthersConnected(t *testing.T) {
	tx, rx := New[int](fn.None[uint]())
	defer tx.Close()

	rx2 := rx.Clone()
	defer rx2.Close()

	rx.Close()

	require.True(t, tx.IsConnected())
	require.NoError(t, tx.TrySend(1, 0))

	select {
	case <-tx.DisconnectNotice():
		t.Fatal("disconnect notice fired while a clone is still live")
	default:
	}
}

func TestSenderDowngradeAndTryUpgrade(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer rx.Close()

	weakTx := tx.Downgrade()
	require.False(t, weakTx.IsStrong())

	strongAgain, ok := weakTx.TryUpgrade()
	require.True(t, ok)
	require.True(t, strongAgain.IsStrong())
	strongAgain.Close()

	tx.Close()

	_, ok = weakTx.TryUpgrade()
	require.False(t, ok)
}

func TestReceiverDowngradeSharesCursorWithOriginal(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(4)))
	defer tx.Close()
	defer rx.Close()

	weakRx := rx.Downgrade()
	mustSend(t, tx.Broadcast(7))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	strongAgain, ok := weakRx.TryUpgrade()
	require.True(t, ok)
	out, err := strongAgain.Recv().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, out.Val)

	// rx shares the cursor, so it observes the advanced position too.
	require.ErrorIs(t, func() error {
		rctx, rcancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer rcancel()
		_, err := rx.Recv().Wait(rctx)
		return err
	}(), context.DeadlineExceeded)
}

func TestSetPriorityPanicsAfterFirstPoll(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()
	defer rx.Close()

	f := tx.Send(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ready, err := f.Poll(ctx)
	require.True(t, ready)
	require.NoError(t, err)

	require.Panics(t, func() { f.SetPriority(5) })
}

func TestSetPriorityPanicsOnBroadcast(t *testing.T) {
	tx, rx := New[int](fn.Some(uint(1)))
	defer tx.Close()
	defer rx.Close()

	f := tx.Broadcast(1)
	require.Panics(t, func() { f.SetPriority(5) })
}
