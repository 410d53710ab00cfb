package dataset

import (
	"context"
	"log/slog"
	"sort"

	"odds_grid/internal/domain"
)

// Store owns the in-memory match collection.
// Row order is fixed at load time (ascending id) and never changes afterwards.
// All writes happen on the sequencer goroutine, so the store carries no lock.
type Store struct {
	repo     domain.MatchRepository
	generate func() []domain.Match

	matches []*domain.Match
	index   map[string]int
	loaded  bool
}

// NewStore creates a store backed by repo. generate is invoked once when
// the repository holds no matches.
func NewStore(repo domain.MatchRepository, generate func() []domain.Match) *Store {
	return &Store{
		repo:     repo,
		generate: generate,
		index:    make(map[string]int),
	}
}

// Load returns the persisted dataset, generating and persisting it on first use.
// Storage or generation failures leave the store empty instead of failing.
// Calling Load again returns the already loaded rows.
func (s *Store) Load(ctx context.Context) []domain.Match {
	if s.loaded {
		return s.All()
	}
	s.loaded = true

	matches, err := s.fetch(ctx)
	if err != nil {
		slog.Warn("Dataset load failed, continuing with empty dataset", slog.Any("error", err))
		matches = nil
	}

	s.set(matches)
	slog.Info("Dataset loaded", slog.Int("matches", len(s.matches)))
	return s.All()
}

func (s *Store) fetch(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	if s.repo != nil {
		stored, err := s.repo.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		matches = stored
	}
	if len(matches) > 0 || s.generate == nil {
		return matches, nil
	}

	matches = s.generate()
	if s.repo != nil {
		if err := s.repo.PutAll(ctx, matches); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func (s *Store) set(matches []domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	s.matches = make([]*domain.Match, 0, len(matches))
	s.index = make(map[string]int, len(matches))
	for i := range matches {
		m := matches[i]
		if _, dup := s.index[m.ID]; dup {
			slog.Warn("Duplicate match id dropped", slog.String("id", m.ID))
			continue
		}
		s.index[m.ID] = len(s.matches)
		s.matches = append(s.matches, &m)
	}
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.matches)
}

// Get returns a copy of the row at index i.
func (s *Store) Get(i int) (domain.Match, bool) {
	if i < 0 || i >= len(s.matches) {
		return domain.Match{}, false
	}
	return *s.matches[i], true
}

// IndexOf returns the row index of a match id.
func (s *Store) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// IDs returns every match id in row order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.matches))
	for i, m := range s.matches {
		ids[i] = m.ID
	}
	return ids
}

// All returns copies of every row in order.
func (s *Store) All() []domain.Match {
	out := make([]domain.Match, len(s.matches))
	for i, m := range s.matches {
		out[i] = *m
	}
	return out
}

// Replace overwrites the current odds of one match in place.
// Unknown ids are a no-op. Only the addressed record is touched.
func (s *Store) Replace(id string, current domain.Odds) (int, bool) {
	i, ok := s.index[id]
	if !ok {
		return -1, false
	}
	s.matches[i].Current = current
	return i, true
}
