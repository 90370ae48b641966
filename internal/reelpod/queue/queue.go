// Package queue implements the in-memory audio generation queue.
//
// Requests are processed FIFO by a single worker goroutine. Items move
// queued -> generating -> completed or failed; callers can block on a
// terminal status with [Queue.Wait]. All reads return snapshots, never
// aliases of queue-internal state.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// failureMessage is the generic error stored on failed items. The
// underlying cause goes to the log, not to clients.
const failureMessage = "Audio generation failed"

// Item is one audio generation request.
type Item struct {
	ID       string
	Prompt   string
	Status   Status
	Tempo    int
	Duration int

	// WAV holds the generated audio once completed; nil otherwise.
	WAV []byte

	// Error is the failure message for failed items.
	Error string
}

// clone returns a deep copy so callers never share queue-internal state.
func (it *Item) clone() *Item {
	cp := *it
	if it.WAV != nil {
		cp.WAV = append([]byte(nil), it.WAV...)
	}
	return &cp
}

// Generator produces WAV bytes for a prompt. The acestep client
// implements this interface.
type Generator interface {
	Generate(ctx context.Context, prompt string, tempo, duration int) ([]byte, error)
}

// Queue is the in-memory generation queue. Create with [New], start the
// worker with [Start], and stop it with [Stop] before exit.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items   map[string]*Item
	order   []string
	stopped bool

	gen    Generator
	logger *slog.Logger
	done   chan struct{}
}

// New creates a [Queue] backed by the given generator. A nil logger
// discards log output.
func New(gen Generator, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	q := &Queue{
		items:  make(map[string]*Item),
		gen:    gen,
		logger: logger,
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a request and wakes the worker. Returns a snapshot of the
// queued item.
func (q *Queue) Enqueue(prompt string, tempo, duration int) *Item {
	item := &Item{
		ID:       ulid.Make().String(),
		Prompt:   prompt,
		Status:   StatusQueued,
		Tempo:    tempo,
		Duration: duration,
	}

	q.mu.Lock()
	q.items[item.ID] = item
	q.order = append(q.order, item.ID)
	q.mu.Unlock()
	q.cond.Broadcast()

	return item.clone()
}

// Snapshot returns a copy of the item, or false when the id is unknown.
func (q *Queue) Snapshot(id string) (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return nil, false
	}
	return item.clone(), true
}

// Wait blocks until the item reaches a terminal status or the timeout
// elapses. Returns false on timeout or unknown id.
func (q *Queue) Wait(id string, timeout time.Duration) (*Item, bool) {
	deadline := time.Now().Add(timeout)

	// sync.Cond has no timed wait; a timer broadcast bounds the block.
	timer := time.AfterFunc(timeout, q.cond.Broadcast)
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		item, ok := q.items[id]
		if !ok {
			return nil, false
		}
		if item.Status.IsTerminal() {
			return item.clone(), true
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}
		q.cond.Wait()
	}
}

// Start launches the worker goroutine. Call once.
func (q *Queue) Start(ctx context.Context) {
	go q.work(ctx)
}

// Stop signals the worker to exit and joins it.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
	<-q.done
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)

	for {
		q.mu.Lock()
		for !q.stopped && len(q.order) == 0 {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return
		}

		id := q.order[0]
		q.order = q.order[1:]
		item, ok := q.items[id]
		if !ok {
			q.mu.Unlock()
			continue
		}
		item.Status = StatusGenerating
		item.Error = ""
		prompt, tempo, duration := item.Prompt, item.Tempo, item.Duration
		q.mu.Unlock()
		q.cond.Broadcast()

		wav, err := q.gen.Generate(ctx, prompt, tempo, duration)

		q.mu.Lock()
		item, ok = q.items[id]
		if ok {
			if err != nil {
				q.logger.Error("audio generation failed", "id", id, "error", err)
				item.Status = StatusFailed
				item.Error = failureMessage
				item.WAV = nil
			} else {
				item.Status = StatusCompleted
				item.Error = ""
				item.WAV = wav
			}
		}
		q.mu.Unlock()
		q.cond.Broadcast()
	}
}
