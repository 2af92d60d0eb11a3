package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tenex-chat/web-client-sub005/internal/types"
)

// Queue manages per-conversation lanes with a global concurrency semaphore.
// Each conversation gets its own FIFO channel (lane) so that runs within a
// conversation are processed sequentially, while the semaphore limits the
// total number of concurrent run processors across all conversations.
type Queue struct {
	lanes     map[types.ConversationID]chan *Run
	waiting   map[types.ConversationID]int
	semaphore *semaphore.Weighted
	processor func(*Run) error
	active    atomic.Int64

	// Coalesce drops a run when its conversation already has one waiting
	// in the lane. Only safe when the processor reads current state rather
	// than the triggering event.
	Coalesce bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all conversation lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.ConversationID]chan *Run),
		waiting:   make(map[types.ConversationID]int),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for id, lane := range q.lanes {
		close(lane)
		delete(q.lanes, id)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to the conversation's lane, creating the lane (and its
// goroutine) on first use. It reports whether the run was queued; a
// coalesced run returns false with a nil error. Returns an error if the
// lane's buffer is full.
func (q *Queue) Enqueue(run *Run) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil || q.ctx.Err() != nil {
		return false, fmt.Errorf("queue not running")
	}
	if q.Coalesce && q.waiting[run.ConversationID] > 0 {
		return false, nil
	}

	lane, exists := q.lanes[run.ConversationID]
	if !exists {
		lane = make(chan *Run, 100)
		q.lanes[run.ConversationID] = lane
		q.wg.Add(1)
		go q.processLane(run.ConversationID, lane)
	}

	select {
	case lane <- run:
		q.waiting[run.ConversationID]++
		return true, nil
	default:
		return false, fmt.Errorf("queue full for conversation %s", run.ConversationID)
	}
}

// processLane drains a single conversation lane, acquiring a semaphore slot
// before running the processor synchronously.
func (q *Queue) processLane(id types.ConversationID, lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			q.active.Add(1)
			q.mu.Lock()
			q.waiting[id]--
			q.mu.Unlock()

			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				q.active.Add(-1)
				return
			}
			q.process(run)
			q.semaphore.Release(1)
			q.active.Add(-1)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) process(run *Run) {
	if q.processor == nil {
		return
	}
	started := time.Now()
	run.Ctx = q.ctx
	run.StartedAt = &started
	run.Status = RunStatusRunning
	run.Attempts++

	err := q.processor(run)

	ended := time.Now()
	run.EndedAt = &ended
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err
		slog.Error("run failed", "run_id", string(run.ID), "conversation_id", string(run.ConversationID), "error", err)
		return
	}
	run.Status = RunStatusComplete
}

// WaitIdle blocks until no runs are waiting or being processed, or the
// timeout expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.idle() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (q *Queue) idle() bool {
	if q.active.Load() != 0 {
		return false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, n := range q.waiting {
		if n > 0 {
			return false
		}
	}
	return true
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
