package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/event"
	"odds_grid/internal/infra"
	"odds_grid/internal/scroll"
	"odds_grid/internal/selection"
	"odds_grid/internal/viewport"
)

const persistTimeout = 2 * time.Second

// Dataset is what the sequencer needs from the dataset store.
type Dataset interface {
	viewport.RowSource
	OddsWriter
	IndexOf(id string) (int, bool)
}

// UpdateKind distinguishes full frames from single-row refreshes.
type UpdateKind uint8

const (
	// UpdateFrame carries every row of a new window.
	UpdateFrame UpdateKind = iota + 1
	// UpdateRow carries one re-materialized row inside the current window.
	UpdateRow
)

// Update is sent to the rendering surface after each processed event that changes what is visible.
type Update struct {
	Kind      UpdateKind
	Window    viewport.Window
	Offset    int
	MaxOffset int
	Height    int
	RowHeight int
	Total     int
	Rows      []viewport.RowView
	Row       viewport.RowView
}

// Options configures a Sequencer.
type Options struct {
	RowHeight      int
	Overscan       int
	ViewportHeight int
	InboxSize      int
	DumpPath       string
	Metrics        *infra.Metrics
}

// State is a point-in-time view of the sequencer for external readers.
type State struct {
	Offset   int                          `json:"offset"`
	Height   int                          `json:"height"`
	Window   viewport.Window              `json:"window"`
	Total    int                          `json:"total"`
	Settled  bool                         `json:"settled"`
	Selected map[string]domain.OddsColumn `json:"selected"`
}

// Sequencer is the single logical thread of the grid. UI events and feed
// events are processed one at a time, so the dataset, the selection map and
// the scroll offset are written without coordination.
type Sequencer struct {
	inbox chan event.Event
	done  chan struct{}

	store      Dataset
	reconciler *Reconciler
	selection  *selection.State
	scroll     *scroll.Persistence
	view       *viewport.Engine
	metrics    *infra.Metrics
	dumpPath   string

	offset int
	height int

	// restored is the persisted offset before clamping. The configured
	// height is only a guess until the surface reports its real size.
	restored       int
	restorePending bool

	// Boundary: notifies the rendering surface
	onUpdate func(Update)
	pending  []Update

	mu sync.RWMutex // Used only for external reads (Snapshot)
}

// NewSequencer wires the core components together.
func NewSequencer(store Dataset, rec *Reconciler, sel *selection.State, sp *scroll.Persistence, opts Options, onUpdate func(Update)) *Sequencer {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	if opts.DumpPath == "" {
		opts.DumpPath = "panic_dump.json"
	}

	return &Sequencer{
		inbox:      make(chan event.Event, opts.InboxSize),
		done:       make(chan struct{}),
		store:      store,
		reconciler: rec,
		selection:  sel,
		scroll:     sp,
		view:       viewport.NewEngine(store, sel, opts.RowHeight, opts.Overscan, opts.Metrics),
		metrics:    opts.Metrics,
		dumpPath:   opts.DumpPath,
		height:     opts.ViewportHeight,
		onUpdate:   onUpdate,
	}
}

// Inbox returns the event channel. The rendering surface sends events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Dispatch queues ev for processing. It blocks while the inbox is full and
// returns false once the sequencer has stopped.
func (s *Sequencer) Dispatch(ev event.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Run restores persisted view state, emits the first frame and then
// processes events until ctx is done. This MUST be run in a single goroutine.
// A closed feed channel is treated as the end of the feed, not of the loop.
func (s *Sequencer) Run(ctx context.Context, feed <-chan domain.OddsChangeEvent) {
	slog.Info("Sequencer started", slog.Int("rows", s.store.Len()))
	defer close(s.done)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	s.process(s.restore)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev, ok := <-feed:
			if !ok {
				slog.Info("Feed closed")
				feed = nil
				continue
			}
			s.process(func() { s.handleOddsChange(ev) })
		case ev := <-s.inbox:
			s.process(func() { s.processEvent(ev) })
		}
	}
}

// process runs fn under the write lock and delivers the updates it produced afterwards,
// so the boundary callback may read Snapshot.
func (s *Sequencer) process(fn func()) {
	s.mu.Lock()
	func() {
		defer s.mu.Unlock()
		fn()
	}()

	updates := s.pending
	s.pending = nil
	if s.onUpdate == nil {
		return
	}
	for _, u := range updates {
		s.onUpdate(u)
	}
}

func (s *Sequencer) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.selection.Load(ctx); err != nil {
		slog.Warn("Selection not restored", slog.Any("error", err))
	}

	offset, err := s.scroll.Load(ctx)
	if err != nil {
		slog.Warn("Scroll offset not restored", slog.Any("error", err))
	}
	s.restored, s.restorePending = offset, true
	s.setOffset(offset)
	slog.Info("View state restored", slog.Int("offset", s.offset), slog.Int("selected", len(s.selection.Snapshot())))

	s.emitFrame()
}

func (s *Sequencer) processEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.Resized:
		s.height = max(e.Height, 0)
		offset := s.offset
		if s.restorePending {
			offset = s.restored
			s.restorePending = false
		}
		s.setOffset(offset)
		s.emitFrame()
		s.saveScroll()
	case *event.Scrolled:
		s.scrollTo(e.Offset)
	case *event.ScrolledBy:
		s.scrollTo(s.offset + e.Delta)
		event.ReleaseScrolledBy(e)
	case *event.CellClicked:
		s.handleClick(e)
	case *event.RowsRendered:
		if !s.scroll.Settled() {
			s.scroll.MarkRendered()
			slog.Info("First frame rendered", slog.Int("start", e.Start), slog.Int("end", e.End))
		}
	case *event.SelectionCleared:
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.selection.Clear(ctx); err != nil {
			slog.Warn("Failed to clear persisted selection", slog.Any("error", err))
			s.metrics.RecordError()
		}
		s.view.InvalidateAll()
		s.emitFrame()
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (s *Sequencer) scrollTo(offset int) {
	s.restorePending = false
	prev := s.offset
	s.setOffset(offset)
	if s.offset == prev {
		return
	}
	s.emitFrame()
	s.saveScroll()
}

// setOffset clamps offset to [0, MaxOffset].
func (s *Sequencer) setOffset(offset int) {
	maxOffset := viewport.MaxOffset(s.height, s.view.RowHeight(), s.store.Len())
	s.offset = max(0, min(offset, maxOffset))
}

func (s *Sequencer) saveScroll() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := s.scroll.Save(ctx, s.offset); err != nil {
		slog.Warn("Failed to save scroll offset", slog.Any("error", err))
		s.metrics.RecordError()
	}
}

func (s *Sequencer) handleClick(e *event.CellClicked) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	idx, ok := s.store.IndexOf(e.MatchID)
	if !ok {
		slog.Debug("Click on unknown match", slog.String("id", e.MatchID))
		return
	}

	col, selected, err := s.selection.Toggle(ctx, e.MatchID, e.Column)
	if err != nil {
		slog.Warn("Selection change not persisted", slog.String("id", e.MatchID), slog.Any("error", err))
		s.metrics.RecordError()
	}
	slog.Debug("Selection toggled", slog.String("id", e.MatchID), slog.String("column", string(col)), slog.Bool("selected", selected))

	s.emitRow(idx)
}

func (s *Sequencer) handleOddsChange(ev domain.OddsChangeEvent) {
	idx, ok := s.reconciler.Apply(ev)
	if !ok {
		return
	}
	s.emitRow(idx)
}

func (s *Sequencer) emitRow(idx int) {
	row, visible := s.view.Invalidate(idx)
	if !visible {
		return
	}
	u := s.frameHeader(UpdateRow)
	u.Row = row
	s.pending = append(s.pending, u)
}

func (s *Sequencer) emitFrame() {
	s.view.Update(s.offset, s.height)
	u := s.frameHeader(UpdateFrame)
	u.Rows = s.view.Rows()
	s.pending = append(s.pending, u)
}

func (s *Sequencer) frameHeader(kind UpdateKind) Update {
	return Update{
		Kind:      kind,
		Window:    s.view.Window(),
		Offset:    s.offset,
		MaxOffset: s.view.MaxOffset(),
		Height:    s.height,
		RowHeight: s.view.RowHeight(),
		Total:     s.store.Len(),
	}
}

// Snapshot returns the current view state (external read).
func (s *Sequencer) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Sequencer) snapshotLocked() State {
	return State{
		Offset:   s.offset,
		Height:   s.height,
		Window:   s.view.Window(),
		Total:    s.store.Len(),
		Settled:  s.scroll.Settled(),
		Selected: s.selection.Snapshot(),
	}
}

// DumpState writes the entire view state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	b, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
