package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"
	"odds_grid/internal/odds"
)

// DefaultInterval is the cadence of simulated odds changes.
const DefaultInterval = time.Second

// Simulator is the in-process update feed. On every tick it picks a match id
// uniformly at random and emits freshly synthesized odds for it.
type Simulator struct {
	ids      []string
	interval time.Duration
	rng      *rand.Rand
	events   chan domain.OddsChangeEvent
	metrics  *infra.Metrics

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ domain.FeedWorker = (*Simulator)(nil)

// NewSimulator creates a simulator over candidate ids. A nil rng is seeded from the clock.
func NewSimulator(ids []string, interval time.Duration, rng *rand.Rand, metrics *infra.Metrics) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Simulator{
		ids:      append([]string(nil), ids...),
		interval: interval,
		rng:      rng,
		events:   make(chan domain.OddsChangeEvent),
		metrics:  metrics,
	}
}

// Events returns the unbuffered event channel. It is closed by Disconnect.
func (s *Simulator) Events() <-chan domain.OddsChangeEvent {
	return s.events
}

// Connect starts the ticker. With no candidate ids nothing is ever emitted.
func (s *Simulator) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return domain.ErrFeedStarted
	}
	s.started = true

	if len(s.ids) == 0 {
		slog.Info("Simulator idle: no candidate matches")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	slog.Info("Simulator started",
		slog.Int("matches", len(s.ids)),
		slog.Duration("interval", s.interval),
	)
	return nil
}

func (s *Simulator) run(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Simulator panic recovered", slog.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := s.next()
			select {
			case s.events <- ev:
				s.metrics.RecordFeedEvent()
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Simulator) next() domain.OddsChangeEvent {
	return domain.OddsChangeEvent{
		MatchID: s.ids[s.rng.IntN(len(s.ids))],
		Odds:    odds.Generate(s.rng),
	}
}

// Disconnect stops the producer and closes the event channel.
// No event is delivered after it returns.
func (s *Simulator) Disconnect() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.events)
	slog.Info("Simulator stopped")
}
