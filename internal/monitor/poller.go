package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"keytrace-go/internal/models"
)

// Poller periodically snapshots the aggregator and pushes the result to the
// hub. Between ticks the last snapshot is served frozen, so poll clients see
// a stable view. Refreshes never overlap: the loop runs them one at a time.
type Poller struct {
	agg      *Aggregator
	hub      *Hub
	interval time.Duration
	log      *zap.Logger

	mu   sync.RWMutex
	last []models.ActiveSession
}

// NewPoller creates a poller; a nil hub disables push.
func NewPoller(agg *Aggregator, hub *Hub, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		agg:      agg,
		hub:      hub,
		interval: interval,
		log:      log,
	}
}

// Run blocks until the context is cancelled. Cancellation stops the ticker,
// so teardown leaves no dangling refresh loop.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(time.Now())

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Session monitor poll loop stopped")
			return
		case <-ticker.C:
			p.refresh(time.Now())
		}
	}
}

// Last returns the most recent frozen snapshot.
func (p *Poller) Last() []models.ActiveSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

func (p *Poller) refresh(now time.Time) {
	snapshot := p.agg.Snapshot(now)

	p.mu.Lock()
	p.last = snapshot
	p.mu.Unlock()

	if p.hub != nil && p.hub.ClientCount() > 0 {
		p.hub.Broadcast(snapshot)
	}
}
