// Package capture is the client-side half of keystroke collection: Go
// capture agents embed a Capturer to turn raw key-down/key-up signals into
// the wire events the enrollment and monitoring endpoints ingest.
package capture

import (
	"keytrace-go/internal/models"
)

// Capturer turns raw key-down/key-up pairs into structured keystroke events.
// It owns all per-session capture state explicitly: the pending keydown map
// and the last keyup timestamp. One capturer per session; instances are not
// safe for concurrent use, matching the single-threaded capture discipline.
type Capturer struct {
	userID    string
	sessionID string

	pendingDown map[string]float64 // key -> keydown timestamp (ms)
	lastKeyUp   float64
	sawKeyUp    bool
	closed      bool
}

// NewCapturer creates a capturer for one session.
func NewCapturer(userID, sessionID string) *Capturer {
	return &Capturer{
		userID:      userID,
		sessionID:   sessionID,
		pendingDown: make(map[string]float64),
	}
}

// KeyDown records a key press. Repeated keydowns for a held key keep the
// first timestamp so auto-repeat does not shrink the dwell time.
func (c *Capturer) KeyDown(key string, timestamp float64) {
	if c.closed {
		return
	}
	if _, held := c.pendingDown[key]; !held {
		c.pendingDown[key] = timestamp
	}
}

// KeyUp emits exactly one event per key release. Dwell time is the span from
// the matching keydown (0 if none was observed, e.g. programmatic input);
// flight time is the span since the previous key release (0 for the first
// key of the session). Both are clamped to be non-negative.
func (c *Capturer) KeyUp(key string, keyCode int, timestamp float64) (models.KeystrokeEvent, bool) {
	if c.closed {
		return models.KeystrokeEvent{}, false
	}

	var dwell float64
	if downTime, ok := c.pendingDown[key]; ok {
		dwell = timestamp - downTime
		delete(c.pendingDown, key)
	}
	if dwell < 0 {
		dwell = 0
	}

	var flight float64
	if c.sawKeyUp {
		flight = timestamp - c.lastKeyUp
	}
	if flight < 0 {
		flight = 0
	}

	c.lastKeyUp = timestamp
	c.sawKeyUp = true

	return models.KeystrokeEvent{
		UserID:     c.userID,
		SessionID:  c.sessionID,
		Timestamp:  timestamp,
		Key:        key,
		KeyCode:    keyCode,
		DwellTime:  dwell,
		FlightTime: flight,
	}, true
}

// PendingCount reports how many keydowns are awaiting their keyup.
func (c *Capturer) PendingCount() int {
	return len(c.pendingDown)
}

// Close tears the session down. Orphaned keydowns (keys held across focus
// loss) are dropped, never retried, so the pending map cannot leak.
func (c *Capturer) Close() {
	c.pendingDown = make(map[string]float64)
	c.closed = true
}
