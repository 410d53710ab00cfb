package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"odds_grid/internal/domain"
)

// StorageKey is the key-value entry holding the selection map.
const StorageKey = "selected_odd"

// State is the per-match selection state machine.
//
//	Unselected  --click c-->  Selected(c)
//	Selected(c) --click c-->  Unselected (kept as a cleared marker)
//	Selected(a) --click b-->  Selected(b)
//
// Only user clicks drive transitions. Every transition is persisted before
// Toggle returns; a failed write leaves memory correct and is reported.
type State struct {
	kv domain.KeyValueStore

	// nil value is the cleared marker; a missing key means never clicked.
	entries map[string]*domain.OddsColumn
}

// New creates an empty selection state persisted to kv.
func New(kv domain.KeyValueStore) *State {
	return &State{
		kv:      kv,
		entries: make(map[string]*domain.OddsColumn),
	}
}

// Load replaces the in-memory state with the persisted one.
// Absent or unreadable data means nothing is selected.
func (s *State) Load(ctx context.Context) error {
	s.entries = make(map[string]*domain.OddsColumn)
	if s.kv == nil {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load selection: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	var stored map[string]*string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode selection: %w", err)
	}

	for id, v := range stored {
		if v == nil {
			s.entries[id] = nil
			continue
		}
		col, err := domain.ParseOddsColumn(*v)
		if err != nil {
			slog.Warn("Dropping persisted selection", slog.String("id", id), slog.Any("error", err))
			continue
		}
		s.entries[id] = &col
	}
	return nil
}

// Toggle applies a click on (matchID, col) and returns the resulting selection.
func (s *State) Toggle(ctx context.Context, matchID string, col domain.OddsColumn) (domain.OddsColumn, bool, error) {
	if !col.Valid() {
		return "", false, fmt.Errorf("%w: %q", domain.ErrInvalidColumn, col)
	}

	cur, _ := s.Selected(matchID)
	if cur == col {
		s.entries[matchID] = nil
	} else {
		c := col
		s.entries[matchID] = &c
	}

	next, ok := s.Selected(matchID)
	return next, ok, s.persist(ctx)
}

// Selected returns the pinned column of a match.
func (s *State) Selected(matchID string) (domain.OddsColumn, bool) {
	c := s.entries[matchID]
	if c == nil {
		return "", false
	}
	return *c, true
}

// Clear drops every selection and removes the persisted map.
func (s *State) Clear(ctx context.Context) error {
	s.entries = make(map[string]*domain.OddsColumn)
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

// Snapshot returns the currently selected columns keyed by match id.
func (s *State) Snapshot() map[string]domain.OddsColumn {
	out := make(map[string]domain.OddsColumn, len(s.entries))
	for id, c := range s.entries {
		if c != nil {
			out[id] = *c
		}
	}
	return out
}

func (s *State) persist(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	b, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	return nil
}
