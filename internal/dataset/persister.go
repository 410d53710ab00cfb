package dataset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"
)

const persistTimeout = 5 * time.Second

// Persister writes reconciled matches back to storage off the sequencer goroutine.
// Close drains queued writes; nothing already queued is cancelled.
type Persister struct {
	repo    domain.MatchRepository
	queue   chan domain.Match
	metrics *infra.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPersister starts the write-behind worker.
func NewPersister(repo domain.MatchRepository, size int, metrics *infra.Metrics) *Persister {
	if size <= 0 {
		size = 1
	}
	p := &Persister{
		repo:    repo,
		queue:   make(chan domain.Match, size),
		metrics: metrics,
	}

	p.wg.Add(1)
	go p.loop()

	return p
}

// Enqueue schedules a write. It never blocks: when the queue is full or the
// persister is closed, the write is dropped and false is returned.
func (p *Persister) Enqueue(m domain.Match) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- m:
		return true
	default:
		slog.Warn("Persist queue full, dropping write", slog.String("id", m.ID))
		p.metrics.RecordError()
		return false
	}
}

func (p *Persister) loop() {
	defer p.wg.Done()

	for m := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := p.repo.Put(ctx, m)
		cancel()

		if err != nil {
			slog.Warn("Failed to persist match", slog.String("id", m.ID), slog.Any("error", err))
			p.metrics.RecordError()
			continue
		}
		p.metrics.RecordPersist()
	}
}

// Close stops accepting writes and waits for queued ones to finish.
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}
