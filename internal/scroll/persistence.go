package scroll

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"odds_grid/internal/domain"
)

// StorageKey is the key-value entry holding the last committed offset.
const StorageKey = "scrollTop"

// Persistence stores the scroll offset across sessions.
// Writes are suppressed until the first rows-rendered acknowledgement so
// transient offsets emitted while mounting cannot clobber a restored value.
type Persistence struct {
	kv domain.KeyValueStore

	settled bool
	last    int
	hasLast bool
}

// New creates scroll persistence over kv.
func New(kv domain.KeyValueStore) *Persistence {
	return &Persistence{kv: kv}
}

// Load returns the persisted offset, or 0 when absent or unreadable.
func (p *Persistence) Load(ctx context.Context) (int, error) {
	if p.kv == nil {
		return 0, nil
	}
	raw, ok, err := p.kv.Get(ctx, StorageKey)
	if err != nil {
		return 0, fmt.Errorf("load scroll offset: %w", err)
	}
	if !ok {
		return 0, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid scroll offset %q", raw)
	}

	offset := int(v)
	p.last, p.hasLast = offset, true
	return offset, nil
}

// MarkRendered ends the settle period.
func (p *Persistence) MarkRendered() {
	p.settled = true
}

// Settled reports whether the first render has been acknowledged.
func (p *Persistence) Settled() bool {
	return p.settled
}

// Save writes offset once settled. It reports whether a write was issued.
// Repeating the last saved offset is skipped.
func (p *Persistence) Save(ctx context.Context, offset int) (bool, error) {
	if !p.settled || p.kv == nil {
		return false, nil
	}
	if p.hasLast && p.last == offset {
		return false, nil
	}
	if err := p.kv.Set(ctx, StorageKey, strconv.Itoa(offset)); err != nil {
		return false, fmt.Errorf("save scroll offset: %w", err)
	}
	p.last, p.hasLast = offset, true
	return true, nil
}
