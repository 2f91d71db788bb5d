package batch

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"keytrace-go/internal/models"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches []models.Batch
}

func (r *flushRecorder) flush(b models.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return nil
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *flushRecorder) all() []models.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Batch, len(r.batches))
	copy(out, r.batches)
	return out
}

func event(i int) models.KeystrokeEvent {
	return models.KeystrokeEvent{
		UserID:    "alice",
		SessionID: "s1",
		Timestamp: float64(1000 + i*100),
		Key:       "a",
	}
}

func TestFlushAtCountThreshold(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 5, time.Hour, rec.flush, zap.NewNop())
	defer b.Close()

	for i := 0; i < 4; i++ {
		b.Add(event(i))
	}
	if rec.count() != 0 {
		t.Fatalf("flushed %d batches before reaching the count threshold", rec.count())
	}

	b.Add(event(4))
	if rec.count() != 1 {
		t.Fatalf("flushed %d batches at the count threshold, want 1", rec.count())
	}
	if got := len(rec.all()[0].Events); got != 5 {
		t.Errorf("batch size = %d, want 5", got)
	}
}

func TestFlushAtTimeThreshold(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 1000, 30*time.Millisecond, rec.flush, zap.NewNop())
	defer b.Close()

	b.Add(event(0))
	b.Add(event(1))

	deadline := time.Now().Add(time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if rec.count() != 1 {
		t.Fatalf("flushed %d batches after the interval, want 1", rec.count())
	}
	if got := len(rec.all()[0].Events); got != 2 {
		t.Errorf("batch size = %d, want 2", got)
	}
}

func TestCloseFlushesPartialBufferExactlyOnce(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 100, time.Hour, rec.flush, zap.NewNop())

	for i := 0; i < 7; i++ {
		b.Add(event(i))
	}

	// Concurrent teardown signals: unmount and cleanup racing.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Close()
		}()
	}
	wg.Wait()

	if rec.count() != 1 {
		t.Fatalf("partial buffer flushed %d times, want exactly 1", rec.count())
	}
	if got := len(rec.all()[0].Events); got != 7 {
		t.Errorf("final batch size = %d, want 7", got)
	}
}

func TestCloseWithEmptyBufferFlushesNothing(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 5, time.Hour, rec.flush, zap.NewNop())

	b.Close()
	if rec.count() != 0 {
		t.Errorf("empty close produced %d batches, want 0", rec.count())
	}
}

func TestOrderingPreservedAcrossFlushes(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 3, time.Hour, rec.flush, zap.NewNop())

	for i := 0; i < 8; i++ {
		b.Add(event(i))
	}
	b.Close()

	batches := rec.all()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}

	prev := -1.0
	for bi, batch := range batches {
		if batch.Seq != bi {
			t.Errorf("batch %d Seq = %d, want %d", bi, batch.Seq, bi)
		}
		for _, e := range batch.Events {
			if e.Timestamp <= prev {
				t.Fatalf("event order broken: %v after %v", e.Timestamp, prev)
			}
			prev = e.Timestamp
		}
	}
}

func TestFlushDrainsWithoutClosing(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 100, time.Hour, rec.flush, zap.NewNop())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.Add(event(i))
	}
	b.Flush()

	if rec.count() != 1 {
		t.Fatalf("got %d batches after Flush, want 1", rec.count())
	}
	if got := len(rec.all()[0].Events); got != 3 {
		t.Errorf("batch size = %d, want 3", got)
	}

	// The batcher stays usable.
	b.Add(event(3))
	b.Flush()
	if rec.count() != 2 {
		t.Fatalf("got %d batches after second Flush, want 2", rec.count())
	}
	if rec.all()[1].Seq != 1 {
		t.Errorf("second batch Seq = %d, want 1", rec.all()[1].Seq)
	}
}

func TestAddAfterCloseIsIgnored(t *testing.T) {
	rec := &flushRecorder{}
	b := NewBatcher("s1", 5, time.Hour, rec.flush, zap.NewNop())

	b.Add(event(0))
	b.Close()
	b.Add(event(1))

	if rec.count() != 1 {
		t.Fatalf("got %d batches, want 1", rec.count())
	}
	if got := len(rec.all()[0].Events); got != 1 {
		t.Errorf("batch size = %d, want 1", got)
	}
}
