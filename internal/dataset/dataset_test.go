package dataset

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"

	"github.com/shopspring/decimal"
)

type memRepo struct {
	mu      sync.Mutex
	matches map[string]domain.Match
	getErr  error
	putErr  error
	puts    int
	putAlls int
}

func newMemRepo() *memRepo {
	return &memRepo{matches: make(map[string]domain.Match)}
}

func (r *memRepo) GetAll(ctx context.Context) ([]domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	out := make([]domain.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out, nil
}

func (r *memRepo) Put(ctx context.Context, m domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.puts++
	r.matches[m.ID] = m
	return nil
}

func (r *memRepo) PutAll(ctx context.Context, ms []domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.putAlls++
	for _, m := range ms {
		r.matches[m.ID] = m
	}
	return nil
}

func (r *memRepo) get(id string) (domain.Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	return m, ok
}

func fixedOdds(v string) domain.Odds {
	d := decimal.RequireFromString(v)
	return domain.Odds{WinHome: d, Draw: d, WinAway: d, HomeOrDraw: d, AwayOrDraw: d}
}

func threeMatches() []domain.Match {
	var out []domain.Match
	for _, id := range []string{"m3", "m1", "m2"} {
		o := fixedOdds("2.5")
		out = append(out, domain.Match{
			ID: id, Sport: domain.SportSoccer, TeamHome: "Ajax", TeamAway: "Porto",
			Baseline: o, Current: o,
		})
	}
	return out
}

func TestMixedDistribution(t *testing.T) {
	d := MixedDistribution(11_001)
	if d.Total() != 11_001 {
		t.Errorf("total = %d, want 11001", d.Total())
	}
	if d[domain.SportBaseball] != 2750 || d[domain.SportSoccer] != 2751 {
		t.Errorf("unexpected split: %v", d)
	}
	if MixedDistribution(-5).Total() != 0 {
		t.Error("negative size should produce empty distribution")
	}
}

func TestGenerate(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	matches := Generate(r, MixedDistribution(400), now)

	if len(matches) != 400 {
		t.Fatalf("expected 400 matches, got %d", len(matches))
	}

	seen := make(map[string]bool)
	perSport := make(map[domain.Sport]int)
	for i, m := range matches {
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
		perSport[m.Sport]++

		if err := m.Validate(); err != nil {
			t.Fatalf("invalid match %d: %v", i, err)
		}
		if !m.Current.Equal(m.Baseline) {
			t.Fatalf("current odds should start equal to baseline")
		}
		if i > 0 && matches[i-1].ID >= m.ID {
			t.Fatalf("matches not ordered by id at %d", i)
		}
	}
	for _, s := range domain.Sports {
		if perSport[s] != 100 {
			t.Errorf("%s: %d matches, want 100", s, perSport[s])
		}
	}
}

func TestStore_LoadGeneratesOnce(t *testing.T) {
	repo := newMemRepo()
	calls := 0
	s := NewStore(repo, func() []domain.Match {
		calls++
		return threeMatches()
	})

	rows := s.Load(context.Background())
	if len(rows) != 3 || s.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, id := range []string{"m1", "m2", "m3"} {
		if rows[i].ID != id {
			t.Errorf("row %d = %s, want %s", i, rows[i].ID, id)
		}
	}
	if repo.putAlls != 1 {
		t.Errorf("expected one PutAll, got %d", repo.putAlls)
	}

	// Idempotent on the same store
	s.Load(context.Background())
	// A fresh store over the same repo reads instead of generating
	s2 := NewStore(repo, func() []domain.Match {
		calls++
		return threeMatches()
	})
	if got := s2.Load(context.Background()); len(got) != 3 || got[0].ID != "m1" {
		t.Errorf("reload returned %v", got)
	}
	if calls != 1 {
		t.Errorf("generator called %d times, want 1", calls)
	}
}

func TestStore_LoadFailureFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
		putErr error
	}{
		{"get all fails", errors.New("disk gone"), nil},
		{"put all fails", nil, errors.New("quota exceeded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			repo.getErr = tt.getErr
			repo.putErr = tt.putErr

			s := NewStore(repo, threeMatches)
			if rows := s.Load(context.Background()); len(rows) != 0 {
				t.Errorf("expected empty dataset, got %d rows", len(rows))
			}
			if s.Len() != 0 {
				t.Errorf("Len = %d, want 0", s.Len())
			}
			if _, ok := s.Get(0); ok {
				t.Error("Get(0) should fail on empty store")
			}
		})
	}
}

func TestStore_ReplaceOnlyTouchesTarget(t *testing.T) {
	s := NewStore(nil, threeMatches)
	s.Load(context.Background())

	before := make([]*domain.Match, s.Len())
	values := make([]domain.Match, s.Len())
	copy(before, s.matches)
	for i := range before {
		values[i] = *before[i]
	}

	updated := fixedOdds("1.85")
	idx, ok := s.Replace("m2", updated)
	if !ok || idx != 1 {
		t.Fatalf("Replace = %d, %v; want 1, true", idx, ok)
	}

	for i := range before {
		if s.matches[i] != before[i] {
			t.Errorf("row %d pointer changed", i)
		}
		if i == idx {
			continue
		}
		if *s.matches[i] != values[i] {
			t.Errorf("row %d was modified", i)
		}
	}

	m, _ := s.Get(1)
	if !m.Current.Equal(updated) {
		t.Errorf("current = %+v, want 1.85", m.Current)
	}
	if !m.Baseline.Equal(values[1].Baseline) {
		t.Error("baseline must not change")
	}
}

func TestStore_ReplaceUnknownIsNoop(t *testing.T) {
	s := NewStore(nil, threeMatches)
	s.Load(context.Background())
	snapshot := s.All()

	if _, ok := s.Replace("missing", fixedOdds("9")); ok {
		t.Error("Replace of unknown id should report false")
	}
	for i, m := range s.All() {
		if m != snapshot[i] {
			t.Errorf("row %d changed", i)
		}
	}
}

func TestStore_IDsAndIndex(t *testing.T) {
	s := NewStore(nil, threeMatches)
	s.Load(context.Background())

	ids := s.IDs()
	if len(ids) != 3 || ids[2] != "m3" {
		t.Errorf("IDs = %v", ids)
	}
	if i, ok := s.IndexOf("m3"); !ok || i != 2 {
		t.Errorf("IndexOf(m3) = %d, %v", i, ok)
	}
}

func TestPersister_DrainsOnClose(t *testing.T) {
	repo := newMemRepo()
	metrics := &infra.Metrics{}
	p := NewPersister(repo, 16, metrics)

	for _, m := range threeMatches() {
		if !p.Enqueue(m) {
			t.Fatalf("Enqueue(%s) rejected", m.ID)
		}
	}
	p.Close()

	for _, id := range []string{"m1", "m2", "m3"} {
		if _, ok := repo.get(id); !ok {
			t.Errorf("%s was not persisted", id)
		}
	}
	if metrics.Snapshot().PersistWrites != 3 {
		t.Errorf("persist writes = %d, want 3", metrics.Snapshot().PersistWrites)
	}

	if p.Enqueue(threeMatches()[0]) {
		t.Error("Enqueue after Close should be rejected")
	}
	// Close is idempotent
	p.Close()
}

func TestPersister_FailuresAreCounted(t *testing.T) {
	repo := newMemRepo()
	repo.putErr = errors.New("storage unavailable")
	metrics := &infra.Metrics{}

	p := NewPersister(repo, 4, metrics)
	p.Enqueue(threeMatches()[0])
	p.Close()

	if metrics.Snapshot().ErrorsTotal != 1 {
		t.Errorf("errors = %d, want 1", metrics.Snapshot().ErrorsTotal)
	}
}
