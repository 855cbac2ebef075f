package commands

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"

	"github.com/lemarier/xtra/internal/baselib/actor"
)

var (
	workerCount int
	itemCount   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a producer/consumer demo over a priority mailbox",
	RunE:  runDemo,
}

func init() {
	runCmd.Flags().IntVar(
		&workerCount, "producers", 3,
		"Number of producer goroutines feeding the worker actor",
	)
	runCmd.Flags().IntVar(
		&itemCount, "items", 20,
		"Number of work items each producer sends",
	)
}

// WorkItem is the message type routed through the demo's priority mailbox.
// Urgent carries the highest priority so it jumps ahead of queued Normal and
// Bulk items regardless of arrival order.
type WorkItem struct {
	actor.BaseMessage

	ID      string
	Prio    WorkPriority
	Payload string
}

// WorkPriority enumerates the three priority tiers the demo assigns to work
// items; higher numeric values are serviced first.
type WorkPriority int

const (
	PriorityBulk WorkPriority = iota
	PriorityNormal
	PriorityUrgent
)

func (WorkItem) MessageType() string { return "WorkItem" }

// Priority is part of the actor.PriorityMessage interface.
func (w WorkItem) Priority() int { return int(w.Prio) }

// workerBehavior logs each item it receives along with the order it was
// serviced in, making the priority mailbox's reordering visible on stdout.
type workerBehavior struct {
	processed int
}

func (b *workerBehavior) Receive(
	ctx context.Context, msg WorkItem,
) fn.Result[struct{}] {

	b.processed++
	fmt.Printf(
		"[%3d] serviced item=%s priority=%d payload=%q\n",
		b.processed, msg.ID, msg.Prio, msg.Payload,
	)

	return fn.Ok(struct{}{})
}

func runDemo(cmd *cobra.Command, args []string) error {
	root, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	actor.UseLogger(root)
	demoLog := root.NewSubsystem("mailboxd")

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	var wg sync.WaitGroup
	worker := actor.NewActor(actor.ActorConfig[WorkItem, struct{}]{
		ID:             actor.NewActorID("worker"),
		Behavior:       &workerBehavior{},
		MailboxSize:    workerCount * itemCount,
		MailboxFactory: actor.NewPriorityMailbox[WorkItem, struct{}],
		Wg:             &wg,
	})
	worker.Start()
	ref := worker.Ref()

	demoLog.InfoS(ctx, "Starting producers",
		"producers", workerCount, "items_per_producer", itemCount)

	var producers sync.WaitGroup
	for p := 0; p < workerCount; p++ {
		producers.Add(1)
		go produce(ctx, ref, p, &producers)
	}

	producers.Wait()
	demoLog.InfoS(ctx, "All producers finished, stopping worker")

	worker.Stop()
	wg.Wait()

	return nil
}

// produce sends itemCount work items to ref, picking a random priority per
// item so the demo exercises all three tiers of the priority mailbox.
func produce(
	ctx context.Context, ref actor.ActorRef[WorkItem, struct{}],
	producerID int, wg *sync.WaitGroup,
) {

	defer wg.Done()

	for i := 0; i < itemCount; i++ {
		item := WorkItem{
			ID:      actor.NewActorID(fmt.Sprintf("p%d-i%d", producerID, i)),
			Prio:    randomPriority(),
			Payload: fmt.Sprintf("from producer %d, item %d", producerID, i),
		}
		ref.Tell(ctx, item)

		// Stagger sends slightly so the worker has a mixed backlog to
		// reorder instead of draining one item at a time.
		time.Sleep(time.Millisecond)
	}
}

func randomPriority() WorkPriority {
	switch rand.Intn(10) {
	case 0:
		return PriorityUrgent
	case 1, 2, 3:
		return PriorityNormal
	default:
		return PriorityBulk
	}
}
