package batch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"keytrace-go/internal/models"
)

// FlushFunc receives each completed batch. Flush errors are absorbed and
// logged; a failed flush must never abort the typing session.
type FlushFunc func(models.Batch) error

// Batcher buffers keystroke events for one session and flushes them as a
// batch when either the size threshold is reached or the flush interval
// elapses, whichever comes first. Ordering is preserved within and across
// flushes, and the final partial buffer is flushed exactly once on Close even
// under concurrent teardown signals.
type Batcher struct {
	sessionID string
	maxSize   int
	interval  time.Duration
	flush     FlushFunc
	log       *zap.Logger

	mu     sync.Mutex
	buf    []models.KeystrokeEvent
	seq    int
	timer  *time.Timer
	closed bool

	closeOnce sync.Once
}

// NewBatcher creates a batcher for one session. maxSize and interval fall
// back to the default thresholds (50 events, 10s) when non-positive.
func NewBatcher(sessionID string, maxSize int, interval time.Duration, flush FlushFunc, log *zap.Logger) *Batcher {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Batcher{
		sessionID: sessionID,
		maxSize:   maxSize,
		interval:  interval,
		flush:     flush,
		log:       log,
	}
}

// Add appends one event to the buffer, flushing if the size threshold is
// reached. The interval timer starts with the first buffered event so an
// idle session holds no live timer.
func (b *Batcher) Add(event models.KeystrokeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.buf = append(b.buf, event)

	if len(b.buf) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.onInterval)
	}
}

// onInterval is the timer-driven flush path.
func (b *Batcher) onInterval() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.flushLocked()
}

// flushLocked emits the current buffer as one batch. Callers hold b.mu.
func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	if len(b.buf) == 0 {
		return
	}

	out := models.Batch{
		SessionID: b.sessionID,
		Events:    b.buf,
		Seq:       b.seq,
	}
	b.buf = nil
	b.seq++

	if err := b.flush(out); err != nil {
		b.log.Error("Batch flush failed",
			zap.String("sessionID", b.sessionID),
			zap.Int("seq", out.Seq),
			zap.Int("events", len(out.Events)),
			zap.Error(err),
		)
	}
}

// Flush drains the buffer immediately without closing the batcher. Gate
// checks call it so a partial buffer never hides keystrokes from them.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.flushLocked()
}

// Close stops the flush timer and flushes any remaining partial buffer
// exactly once. Safe to call from multiple teardown paths concurrently.
func (b *Batcher) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.flushLocked()
		b.closed = true
	})
}
