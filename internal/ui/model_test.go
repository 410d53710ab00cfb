package ui

import (
	"strings"
	"testing"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/engine"
	"odds_grid/internal/event"
	"odds_grid/internal/viewport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const testRowHeight = 30

type recorder struct {
	events []event.Event
}

func (r *recorder) Dispatch(ev event.Event) bool {
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) last() event.Event {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func testRows(n int) []viewport.RowView {
	d := decimal.RequireFromString("2")
	o := domain.Odds{WinHome: d, Draw: d, WinAway: d, HomeOrDraw: d, AwayOrDraw: d}

	rows := make([]viewport.RowView, n)
	for i := range rows {
		m := domain.Match{
			ID:            string(rune('a' + i)),
			Sport:         domain.SportSoccer,
			StartDateTime: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
			TeamHome:      "Home" + string(rune('A'+i)),
			TeamAway:      "Away" + string(rune('A'+i)),
			Baseline:      o,
			Current:       o,
		}
		rows[i] = viewport.Materialize(i, m, nil)
	}
	return rows
}

// ready returns a model sized to 10 body lines showing rows [0, 20) of 20.
func ready(t *testing.T) (Model, *recorder) {
	t.Helper()
	rec := &recorder{}

	var model tea.Model = NewModel(nil, testRowHeight)
	model, _ = model.Update(ReadyMsg{Dispatcher: rec})
	model, _ = model.Update(tea.WindowSizeMsg{Width: 160, Height: 10 + chromeTop + chromeBottom})
	model, _ = model.Update(updateMsg{update: engine.Update{
		Kind:      engine.UpdateFrame,
		Window:    viewport.Window{Start: 0, End: 20},
		MaxOffset: 10 * testRowHeight,
		Height:    10 * testRowHeight,
		RowHeight: testRowHeight,
		Total:     20,
		Rows:      testRows(20),
	}})
	rec.events = nil
	return model.(Model), rec
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "pgdown":
		msg = tea.KeyMsg{Type: tea.KeyPgDown}
	case "end":
		msg = tea.KeyMsg{Type: tea.KeyEnd}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	model, cmd := m.Update(msg)
	return model.(Model), cmd
}

func TestModel_ResizeInRowUnits(t *testing.T) {
	rec := &recorder{}
	var model tea.Model = NewModel(nil, testRowHeight)

	// Size before the sequencer is ready is remembered and sent on ready
	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 24})
	if len(rec.events) != 0 {
		t.Fatal("nothing should be dispatched before ready")
	}
	model.Update(ReadyMsg{Dispatcher: rec})

	ev, ok := rec.last().(*event.Resized)
	if !ok {
		t.Fatalf("expected Resized, got %T", rec.last())
	}
	if want := (24 - chromeTop - chromeBottom) * testRowHeight; ev.Height != want {
		t.Errorf("Resized height = %d, want %d", ev.Height, want)
	}
}

func TestModel_FirstFrameAcknowledged(t *testing.T) {
	rec := &recorder{}
	var model tea.Model = NewModel(nil, testRowHeight)
	model, _ = model.Update(ReadyMsg{Dispatcher: rec})

	if !strings.Contains(model.View(), "Loading") {
		t.Error("expected loading view before the first frame")
	}

	frame := engine.Update{
		Kind:   engine.UpdateFrame,
		Window: viewport.Window{Start: 0, End: 5},
		Total:  5,
		Rows:   testRows(5),
	}
	model, cmd := model.Update(updateMsg{update: frame})
	if cmd == nil {
		t.Fatal("expected an acknowledgement command after the first frame")
	}

	model, _ = model.Update(renderedMsg{start: 0, end: 5})
	ack, ok := rec.last().(*event.RowsRendered)
	if !ok || ack.Start != 0 || ack.End != 5 {
		t.Fatalf("expected RowsRendered{0,5}, got %#v", rec.last())
	}

	// Later frames are not acknowledged again
	m := model.(Model)
	if m.apply(frame) != nil {
		t.Error("only the first frame should be acknowledged")
	}
}

func TestModel_AckWaitsForDispatcher(t *testing.T) {
	rec := &recorder{}
	var model tea.Model = NewModel(nil, testRowHeight)

	// The first frame can arrive before the sequencer is reachable
	model, _ = model.Update(updateMsg{update: engine.Update{
		Kind:   engine.UpdateFrame,
		Window: viewport.Window{Start: 0, End: 5},
		Total:  5,
		Rows:   testRows(5),
	}})
	model, _ = model.Update(renderedMsg{start: 0, end: 5})

	model, cmd := model.Update(ReadyMsg{Dispatcher: rec})
	if cmd == nil {
		t.Fatal("expected the pending acknowledgement to be rescheduled on ready")
	}
	model, _ = model.Update(cmd())

	count := 0
	for _, ev := range rec.events {
		if ack, ok := ev.(*event.RowsRendered); ok {
			count++
			if ack.Start != 0 || ack.End != 5 {
				t.Errorf("RowsRendered = [%d, %d), want [0, 5)", ack.Start, ack.End)
			}
		}
	}
	if count != 1 {
		t.Fatalf("RowsRendered dispatched %d times, want 1", count)
	}

	// Acknowledged once: later frames schedule nothing
	m := model.(Model)
	if m.apply(engine.Update{Kind: engine.UpdateFrame, Total: 5, Rows: testRows(5)}) != nil {
		t.Error("frame after the acknowledgement should not schedule another")
	}
}

func TestModel_Keys(t *testing.T) {
	t.Run("page down scrolls by one screen", func(t *testing.T) {
		m, rec := ready(t)
		press(m, "pgdown")
		ev, ok := rec.last().(*event.ScrolledBy)
		if !ok || ev.Delta != 10*testRowHeight {
			t.Fatalf("expected ScrolledBy{%d}, got %#v", 10*testRowHeight, rec.last())
		}
	})

	t.Run("end jumps to max offset", func(t *testing.T) {
		m, rec := ready(t)
		press(m, "end")
		ev, ok := rec.last().(*event.Scrolled)
		if !ok || ev.Offset != 10*testRowHeight {
			t.Fatalf("expected Scrolled{%d}, got %#v", 10*testRowHeight, rec.last())
		}
	})

	t.Run("cursor scrolls at the bottom edge", func(t *testing.T) {
		m, rec := ready(t)
		for i := 0; i < 9; i++ {
			m, _ = press(m, "down")
		}
		if len(rec.events) != 0 {
			t.Fatalf("no scroll expected while the cursor stays on screen, got %d events", len(rec.events))
		}
		press(m, "down")
		ev, ok := rec.last().(*event.ScrolledBy)
		if !ok || ev.Delta != testRowHeight {
			t.Fatalf("expected ScrolledBy{%d}, got %#v", testRowHeight, rec.last())
		}
	})

	t.Run("enter clicks the cursor cell", func(t *testing.T) {
		m, rec := ready(t)
		m, _ = press(m, "down")
		m, _ = press(m, "right")
		m, _ = press(m, "right")
		press(m, "enter")

		ev, ok := rec.last().(*event.CellClicked)
		if !ok {
			t.Fatalf("expected CellClicked, got %T", rec.last())
		}
		if ev.MatchID != "b" || ev.Column != domain.ColumnWinAway {
			t.Errorf("clicked %s/%s, want b/odd2", ev.MatchID, ev.Column)
		}
	})

	t.Run("column cursor is clamped", func(t *testing.T) {
		m, _ := ready(t)
		for i := 0; i < 10; i++ {
			m, _ = press(m, "right")
		}
		if m.cursorCol != len(domain.OddsColumns)-1 {
			t.Errorf("cursorCol = %d, want %d", m.cursorCol, len(domain.OddsColumns)-1)
		}
		m, _ = press(m, "left")
		if m.cursorCol != len(domain.OddsColumns)-2 {
			t.Errorf("cursorCol = %d after left", m.cursorCol)
		}
	})

	t.Run("c clears the selection", func(t *testing.T) {
		m, rec := ready(t)
		press(m, "c")
		if _, ok := rec.last().(*event.SelectionCleared); !ok {
			t.Fatalf("expected SelectionCleared, got %T", rec.last())
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m, _ := ready(t)
		_, cmd := press(m, "q")
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestModel_MouseWheelAndClick(t *testing.T) {
	m, rec := ready(t)

	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	ev, ok := rec.last().(*event.ScrolledBy)
	if !ok || ev.Delta != 3*testRowHeight {
		t.Fatalf("expected ScrolledBy{%d}, got %#v", 3*testRowHeight, rec.last())
	}

	// Third body line, second odds cell
	m.Update(tea.MouseMsg{
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
		X:      prefixWidth + cellWidth + 2,
		Y:      chromeTop + 2,
	})
	click, ok := rec.last().(*event.CellClicked)
	if !ok || click.MatchID != "c" || click.Column != domain.ColumnDraw {
		t.Fatalf("expected CellClicked{c, oddX}, got %#v", rec.last())
	}
}

func TestModel_RowUpdateRendersChange(t *testing.T) {
	m, _ := ready(t)

	row := m.rows[1]
	row.Match.Current.WinHome = decimal.RequireFromString("2.1")
	row = viewport.Materialize(1, row.Match, nil)

	model, _ := m.Update(updateMsg{update: engine.Update{
		Kind:   engine.UpdateRow,
		Window: m.window,
		Total:  m.total,
		Row:    row,
	}})

	view := model.View()
	if !strings.Contains(view, "2.10 +5.00%") {
		t.Errorf("view should show the changed cell with its percent:\n%s", view)
	}
	if !strings.Contains(view, "HomeB") {
		t.Error("view should list visible teams")
	}
}
