package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubGenerator returns canned bytes or an error, optionally blocking
// until released.
type stubGenerator struct {
	wav   []byte
	err   error
	block chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, tempo, duration int) ([]byte, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.block != nil {
		<-g.block
	}
	return g.wav, g.err
}

func TestQueue_CompletesItem(t *testing.T) {
	gen := &stubGenerator{wav: []byte("RIFFdata")}
	q := New(gen, nil)
	q.Start(context.Background())
	defer q.Stop()

	item := q.Enqueue("chill lofi jazz, 80 BPM", 80, 40)
	if item.Status != StatusQueued {
		t.Fatalf("status = %s, want queued", item.Status)
	}

	done, ok := q.Wait(item.ID, 5*time.Second)
	if !ok {
		t.Fatal("Wait timed out")
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if string(done.WAV) != "RIFFdata" {
		t.Errorf("WAV = %q, want generated bytes", done.WAV)
	}
	if done.Error != "" {
		t.Errorf("error = %q, want empty", done.Error)
	}
}

func TestQueue_FailureStoresGenericMessage(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused: 10.0.0.5")}
	q := New(gen, nil)
	q.Start(context.Background())
	defer q.Stop()

	item := q.Enqueue("p", 80, 40)

	done, ok := q.Wait(item.ID, 5*time.Second)
	if !ok {
		t.Fatal("Wait timed out")
	}
	if done.Status != StatusFailed {
		t.Errorf("status = %s, want failed", done.Status)
	}
	// Clients get the generic message; the cause stays in the log.
	if done.Error != "Audio generation failed" {
		t.Errorf("error = %q, want generic message", done.Error)
	}
	if done.WAV != nil {
		t.Error("WAV should be cleared on failure")
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	gen := &stubGenerator{wav: []byte("x")}
	q := New(gen, nil)
	q.Start(context.Background())
	defer q.Stop()

	a := q.Enqueue("first", 80, 40)
	b := q.Enqueue("second", 80, 40)

	if _, ok := q.Wait(a.ID, 5*time.Second); !ok {
		t.Fatal("Wait timed out for first item")
	}
	if _, ok := q.Wait(b.ID, 5*time.Second); !ok {
		t.Fatal("Wait timed out for second item")
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.prompts) != 2 || gen.prompts[0] != "first" || gen.prompts[1] != "second" {
		t.Errorf("prompts = %v, want FIFO order", gen.prompts)
	}
}

func TestQueue_WaitTimeout(t *testing.T) {
	gen := &stubGenerator{wav: []byte("x"), block: make(chan struct{})}
	q := New(gen, nil)
	q.Start(context.Background())
	defer func() {
		close(gen.block)
		q.Stop()
	}()

	item := q.Enqueue("slow", 80, 40)

	start := time.Now()
	if _, ok := q.Wait(item.ID, 50*time.Millisecond); ok {
		t.Fatal("Wait should time out while generation blocks")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Wait blocked far past its timeout")
	}
}

func TestQueue_WaitUnknownID(t *testing.T) {
	q := New(&stubGenerator{}, nil)
	q.Start(context.Background())
	defer q.Stop()

	if _, ok := q.Wait("01ARZ3NDEKTSV4RRFFQ69G5FAV", 10*time.Millisecond); ok {
		t.Error("Wait should report unknown id")
	}
}

func TestQueue_SnapshotIsACopy(t *testing.T) {
	gen := &stubGenerator{wav: []byte("abc")}
	q := New(gen, nil)
	q.Start(context.Background())
	defer q.Stop()

	item := q.Enqueue("p", 80, 40)
	if _, ok := q.Wait(item.ID, 5*time.Second); !ok {
		t.Fatal("Wait timed out")
	}

	snap, ok := q.Snapshot(item.ID)
	if !ok {
		t.Fatal("Snapshot missing item")
	}
	snap.WAV[0] = 'z'
	snap.Status = StatusFailed

	again, _ := q.Snapshot(item.ID)
	if string(again.WAV) != "abc" {
		t.Error("mutating a snapshot leaked into queue state")
	}
	if again.Status != StatusCompleted {
		t.Error("mutating a snapshot changed queue status")
	}
}

func TestQueue_SnapshotUnknownID(t *testing.T) {
	q := New(&stubGenerator{}, nil)
	q.Start(context.Background())
	defer q.Stop()

	if _, ok := q.Snapshot("nope"); ok {
		t.Error("Snapshot should report unknown id")
	}
}

func TestQueue_StopJoinsWorker(t *testing.T) {
	q := New(&stubGenerator{wav: []byte("x")}, nil)
	q.Start(context.Background())

	item := q.Enqueue("p", 80, 40)
	if _, ok := q.Wait(item.ID, 5*time.Second); !ok {
		t.Fatal("Wait timed out")
	}

	// goleak in TestMain verifies the worker goroutine is gone.
	q.Stop()
}
