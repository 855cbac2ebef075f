package mailbox

import "errors"

// ErrDisconnected is returned once either side of a Chan has no strong
// handles left: a send with no receivers, or a receive with no senders and
// an empty backlog.
var ErrDisconnected = errors.New("mailbox: disconnected")

// ErrFull is the non-blocking counterpart of a parked send: TrySend returns
// it instead of parking the caller.
var ErrFull = errors.New("mailbox: full")

// ErrShutdown is not returned by any operation in this package: the
// synthetic stop broadcast pushed by Sender.StopAllReceivers arrives as a
// RecvOutcome with Kind RecvStopped, and a receive on a Chan with no strong
// senders and an empty backlog returns ErrDisconnected.
var ErrShutdown = errors.New("mailbox: shutdown")

// ErrEmpty is the non-blocking counterpart of a parked receive.
var ErrEmpty = errors.New("mailbox: empty")

// ErrPriorityAfterPoll is the panic value used by SendFuture.SetPriority
// when called after the future has already been polled once. Exported as an
// error so callers that recover a panic can compare against it directly.
var ErrPriorityAfterPoll = errors.New("mailbox: SetPriority called after the send future has started sending")

// ErrPriorityOnBroadcast is the panic value used by SendFuture.SetPriority
// when the future wraps a broadcast rather than a single-recipient send.
var ErrPriorityOnBroadcast = errors.New("mailbox: SetPriority is only valid for single-recipient sends")
