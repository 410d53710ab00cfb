package engine

import (
	"log/slog"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"
)

// OddsWriter is the write side of the dataset store used by the reconciler.
type OddsWriter interface {
	Replace(id string, current domain.Odds) (int, bool)
	Get(i int) (domain.Match, bool)
}

// Sink receives reconciled records for durable storage.
type Sink interface {
	Enqueue(m domain.Match) bool
}

// Reconciler merges feed events into the dataset store.
// It is the only writer of current odds and never adds, removes or reorders rows.
type Reconciler struct {
	store   OddsWriter
	sink    Sink
	metrics *infra.Metrics
}

// NewReconciler creates a reconciler; sink may be nil.
func NewReconciler(store OddsWriter, sink Sink, metrics *infra.Metrics) *Reconciler {
	return &Reconciler{store: store, sink: sink, metrics: metrics}
}

// Apply overwrites the current odds of the event's match and returns the
// dirty row index. Unknown ids and invalid odds are ignored.
// Applying the same event twice leaves the same state as applying it once.
func (r *Reconciler) Apply(ev domain.OddsChangeEvent) (int, bool) {
	start := time.Now()

	if err := ev.Odds.Validate(); err != nil {
		slog.Warn("Ignoring odds change", slog.String("id", ev.MatchID), slog.Any("error", err))
		r.metrics.RecordIgnored()
		return -1, false
	}

	idx, ok := r.store.Replace(ev.MatchID, ev.Odds)
	if !ok {
		slog.Debug("Odds change for unknown match", slog.String("id", ev.MatchID))
		r.metrics.RecordIgnored()
		return -1, false
	}

	if r.sink != nil {
		if m, ok := r.store.Get(idx); ok {
			r.sink.Enqueue(m)
		}
	}

	r.metrics.RecordApply(time.Since(start).Nanoseconds())
	return idx, true
}
