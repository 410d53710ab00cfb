package viewport

import (
	"odds_grid/internal/domain"
	"odds_grid/internal/infra"

	"github.com/shopspring/decimal"
)

// RowSource is the read side of the dataset store.
type RowSource interface {
	Len() int
	Get(i int) (domain.Match, bool)
}

// SelectionReader reports the pinned column of a match, if any.
type SelectionReader interface {
	Selected(matchID string) (domain.OddsColumn, bool)
}

// ClickTarget identifies the cell a click is bound to.
type ClickTarget struct {
	MatchID string            `json:"matchId"`
	Column  domain.OddsColumn `json:"column"`
}

// CellView is one odds cell with its presentation hints.
type CellView struct {
	Column    domain.OddsColumn `json:"column"`
	Value     decimal.Decimal   `json:"value"`
	Baseline  decimal.Decimal   `json:"baseline"`
	Changed   bool              `json:"changed"`
	ChangePct decimal.Decimal   `json:"changePct"`
	Selected  bool              `json:"selected"`
	Target    ClickTarget       `json:"target"`
}

// RowView is a materialized row ready for the rendering surface.
type RowView struct {
	Index int          `json:"index"`
	Match domain.Match `json:"match"`
	Cells [5]CellView  `json:"cells"`
}

// Materialize builds the renderable state of one row from the current record.
func Materialize(index int, m domain.Match, sel SelectionReader) RowView {
	var selected domain.OddsColumn
	hasSel := false
	if sel != nil {
		selected, hasSel = sel.Selected(m.ID)
	}

	row := RowView{Index: index, Match: m}
	for i, col := range domain.OddsColumns {
		row.Cells[i] = CellView{
			Column:    col,
			Value:     m.Current.Get(col),
			Baseline:  m.Baseline.Get(col),
			Changed:   m.IsChanged(col),
			ChangePct: m.ChangePct(col),
			Selected:  hasSel && selected == col,
			Target:    ClickTarget{MatchID: m.ID, Column: col},
		}
	}
	return row
}

// Engine tracks the visible window and caches the rows materialized for it.
// Rows leave the cache when they scroll out and are rebuilt from the source
// when they scroll back in, so an entering row always shows current values.
type Engine struct {
	source    RowSource
	selection SelectionReader
	metrics   *infra.Metrics

	rowHeight int
	overscan  int

	offset int
	height int
	window Window
	cache  map[int]RowView
}

// NewEngine creates a window engine over source.
func NewEngine(source RowSource, selection SelectionReader, rowHeight, overscan int, metrics *infra.Metrics) *Engine {
	return &Engine{
		source:    source,
		selection: selection,
		metrics:   metrics,
		rowHeight: rowHeight,
		overscan:  overscan,
		cache:     make(map[int]RowView),
	}
}

// RowHeight returns the fixed row height.
func (e *Engine) RowHeight() int { return e.rowHeight }

// Window returns the last computed window.
func (e *Engine) Window() Window { return e.window }

// Offset returns the offset of the last Update.
func (e *Engine) Offset() int { return e.offset }

// Height returns the viewport height of the last Update.
func (e *Engine) Height() int { return e.height }

// MaxOffset returns the largest useful scroll offset for the current height.
func (e *Engine) MaxOffset() int {
	return MaxOffset(e.height, e.rowHeight, e.source.Len())
}

// ClampOffset limits offset to [0, MaxOffset()].
func (e *Engine) ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if m := e.MaxOffset(); offset > m {
		return m
	}
	return offset
}

// Update recomputes the window for offset/height, evicts rows that left it and
// materializes rows that entered it. It returns the new window and the number
// of rows materialized.
func (e *Engine) Update(offset, height int) (Window, int) {
	e.offset = offset
	e.height = height
	w := Compute(offset, height, e.rowHeight, e.source.Len(), e.overscan)

	for i := range e.cache {
		if !w.Contains(i) {
			delete(e.cache, i)
		}
	}

	materialized := 0
	for i := w.Start; i < w.End; i++ {
		if _, ok := e.cache[i]; ok {
			continue
		}
		if e.materialize(i) {
			materialized++
		}
	}

	e.window = w
	e.metrics.RecordWindow(materialized)
	return w, materialized
}

func (e *Engine) materialize(i int) bool {
	m, ok := e.source.Get(i)
	if !ok {
		return false
	}
	e.cache[i] = Materialize(i, m, e.selection)
	return true
}

// Rows returns the materialized rows of the current window in order.
func (e *Engine) Rows() []RowView {
	rows := make([]RowView, 0, e.window.Len())
	for i := e.window.Start; i < e.window.End; i++ {
		if r, ok := e.cache[i]; ok {
			rows = append(rows, r)
		}
	}
	return rows
}

// Row returns the cached row at index i.
func (e *Engine) Row(i int) (RowView, bool) {
	r, ok := e.cache[i]
	return r, ok
}

// Invalidate drops exactly one cached row. When the row is visible it is
// rebuilt immediately and returned.
func (e *Engine) Invalidate(i int) (RowView, bool) {
	delete(e.cache, i)
	if !e.window.Contains(i) {
		return RowView{}, false
	}
	if !e.materialize(i) {
		return RowView{}, false
	}
	return e.cache[i], true
}

// InvalidateAll rebuilds every visible row.
func (e *Engine) InvalidateAll() {
	clear(e.cache)
	for i := e.window.Start; i < e.window.End; i++ {
		e.materialize(i)
	}
}
