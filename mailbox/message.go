package mailbox

// Msg is a single-recipient payload. Priority zero routes through the plain
// FIFO queue; any other value routes through the priority queue, highest
// value first, ties broken by arrival order.
type Msg[T any] struct {
	Val      T
	Priority uint32
}

// Bcast is a payload delivered to every live receiver instance exactly
// once, independent of the single-recipient queues. Stop, when set, marks
// the synthetic broadcast pushed by Sender.StopAllReceivers: receivers
// observe it through the same path as a user broadcast, but RecvOutcome
// reports it as RecvStopped rather than RecvBroadcast.
type Bcast[T any] struct {
	Val  T
	Stop bool
}

// sentKind distinguishes the two shapes a send can take.
type sentKind uint8

const (
	sentToOne sentKind = iota
	sentToAll
)

// sentMessage is the internal sum type threaded through trySend and the
// waiting-sender unpark walk. A SendFuture owns exactly one of these for its
// whole lifetime.
type sentMessage[T any] struct {
	kind sentKind
	one  Msg[T]
	all  *Bcast[T]
}

func toOne[T any](val T, priority uint32) sentMessage[T] {
	return sentMessage[T]{kind: sentToOne, one: Msg[T]{Val: val, Priority: priority}}
}

func toAll[T any](val T) sentMessage[T] {
	return sentMessage[T]{kind: sentToAll, all: &Bcast[T]{Val: val}}
}

// RecvKind distinguishes the three shapes a completed receive can take.
type RecvKind uint8

const (
	// RecvMessage is an ordinary single-recipient message, delivered via
	// either the ordered or the priority queue.
	RecvMessage RecvKind = iota
	// RecvBroadcast is a user-pushed broadcast.
	RecvBroadcast
	// RecvStopped is the synthetic stop broadcast pushed by
	// Sender.StopAllReceivers.
	RecvStopped
)

// RecvOutcome is the payload side of a successful receive. It is valid only
// when the operation that produced it did not return an error.
type RecvOutcome[T any] struct {
	Kind RecvKind
	Val  T
}
