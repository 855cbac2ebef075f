// Package mailbox implements the mailbox channel and address/reference-
// counting core of an in-process actor runtime: a bounded FIFO queue, a
// priority queue, a broadcast ring with per-receiver cursors, a waiter list
// on both sides, a dual (strong/weak) reference count, and a cooperative
// suspension protocol that never blocks the calling goroutine's underlying
// OS thread longer than a channel receive already would.
//
// The actor run loop, executor, and message dispatch to user behaviors are
// deliberately out of scope here; this package exposes a pull-interface
// (Sender/Receiver plus SendFuture/RecvFuture) that a run loop consumes.
// internal/baselib/actor is one such consumer.
package mailbox
