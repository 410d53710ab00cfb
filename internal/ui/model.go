package ui

import (
	"fmt"
	"strings"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/engine"
	"odds_grid/internal/event"
	"odds_grid/internal/viewport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Grid layout in terminal cells. One match occupies one line.
const (
	chromeTop    = 2 // title + column header
	chromeBottom = 2 // status + help
	sportWidth   = 11
	startWidth   = 12
	teamWidth    = 22
	scoreWidth   = 8
	cellWidth    = 16
	prefixWidth  = sportWidth + startWidth + 2*teamWidth + scoreWidth
)

// renderDelay leaves the renderer time to flush a frame before it is acknowledged.
const renderDelay = 50 * time.Millisecond

// Dispatcher accepts UI events for the sequencer.
type Dispatcher interface {
	Dispatch(ev event.Event) bool
}

// ReadyMsg is sent once the dataset is loaded and the sequencer is running.
type ReadyMsg struct {
	Dispatcher Dispatcher
}

type updateMsg struct {
	update engine.Update
}

type updatesClosedMsg struct{}

type renderedMsg struct {
	start, end int
}

// Model is the terminal rendering surface of the grid.
type Model struct {
	updates   <-chan engine.Update
	dispatch  Dispatcher
	rowHeight int

	spinner spinner.Model
	help    help.Model

	width  int
	height int

	rows      []viewport.RowView
	window    viewport.Window
	offset    int
	maxOffset int
	total     int

	cursorRow int
	cursorCol int

	framed       bool
	acknowledged bool
}

// NewModel creates the surface. Updates from the sequencer arrive on updates,
// which the caller fills from the sequencer's update callback.
func NewModel(updates <-chan engine.Update, rowHeight int) Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accent)

	if rowHeight <= 0 {
		rowHeight = 1
	}

	return Model{
		updates:   updates,
		rowHeight: rowHeight,
		spinner:   spin,
		help:      help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

func waitForUpdate(ch <-chan engine.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg{update: u}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReadyMsg:
		m.dispatch = msg.Dispatcher
		m.sendResize()
		// A frame drawn before the sequencer was reachable is acknowledged now.
		if m.framed && !m.acknowledged {
			return m, m.acknowledge()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sendResize()
		return m, nil

	case updateMsg:
		cmd := m.apply(msg.update)
		return m, tea.Batch(cmd, waitForUpdate(m.updates))

	case updatesClosedMsg:
		return m, nil

	case renderedMsg:
		if !m.send(&event.RowsRendered{BaseEvent: event.Now(), Start: msg.start, End: msg.end}) {
			m.acknowledged = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.framed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// apply folds one sequencer update into the model.
func (m *Model) apply(u engine.Update) tea.Cmd {
	m.window = u.Window
	m.offset = u.Offset
	m.maxOffset = u.MaxOffset
	m.total = u.Total

	switch u.Kind {
	case engine.UpdateFrame:
		m.rows = u.Rows
		m.clampCursor()
		m.framed = true
	case engine.UpdateRow:
		if i := u.Row.Index - m.window.Start; i >= 0 && i < len(m.rows) {
			m.rows[i] = u.Row
		}
	}

	if m.framed && !m.acknowledged && m.dispatch != nil {
		return m.acknowledge()
	}
	return nil
}

// acknowledge schedules the rows-rendered ack for the current window.
// It stays pending until the dispatch succeeds.
func (m *Model) acknowledge() tea.Cmd {
	m.acknowledged = true
	start, end := m.window.Start, m.window.End
	return tea.Tick(renderDelay, func(time.Time) tea.Msg {
		return renderedMsg{start: start, end: end}
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	if !m.framed {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.Left):
		m.cursorCol = max(m.cursorCol-1, 0)
	case key.Matches(msg, keys.Right):
		m.cursorCol = min(m.cursorCol+1, len(domain.OddsColumns)-1)
	case key.Matches(msg, keys.PageUp):
		m.scrollBy(-m.bodyLines() * m.rowHeight)
	case key.Matches(msg, keys.PageDown):
		m.scrollBy(m.bodyLines() * m.rowHeight)
	case key.Matches(msg, keys.Home):
		m.cursorRow = 0
		m.send(&event.Scrolled{BaseEvent: event.Now(), Offset: 0})
	case key.Matches(msg, keys.End):
		m.cursorRow = max(m.total-1, 0)
		m.send(&event.Scrolled{BaseEvent: event.Now(), Offset: m.maxOffset})
	case key.Matches(msg, keys.Pick):
		m.click(m.cursorRow, m.cursorCol)
	case key.Matches(msg, keys.Clear):
		m.send(&event.SelectionCleared{BaseEvent: event.Now()})
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.framed || msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-3 * m.rowHeight)
	case tea.MouseButtonWheelDown:
		m.scrollBy(3 * m.rowHeight)
	case tea.MouseButtonLeft:
		line := msg.Y - chromeTop
		if line < 0 || line >= m.bodyLines() || msg.X < prefixWidth {
			return m, nil
		}
		col := (msg.X - prefixWidth) / cellWidth
		if col >= len(domain.OddsColumns) {
			return m, nil
		}
		row := m.firstVisible() + line
		m.cursorRow, m.cursorCol = row, col
		m.click(row, col)
	}
	return m, nil
}

// moveCursor moves the row cursor and scrolls one row when it leaves the screen.
func (m *Model) moveCursor(delta int) {
	if m.total == 0 {
		return
	}
	m.cursorRow = max(0, min(m.cursorRow+delta, m.total-1))

	first := m.firstVisible()
	switch {
	case m.cursorRow < first:
		m.scrollBy((m.cursorRow - first) * m.rowHeight)
	case m.cursorRow >= first+m.bodyLines():
		m.scrollBy((m.cursorRow - first - m.bodyLines() + 1) * m.rowHeight)
	}
}

func (m *Model) scrollBy(delta int) {
	if delta == 0 {
		return
	}
	ev := event.AcquireScrolledBy()
	ev.Delta = delta
	if !m.send(ev) {
		event.ReleaseScrolledBy(ev)
	}
}

func (m *Model) click(row, col int) {
	r, ok := m.rowAt(row)
	if !ok {
		return
	}
	m.send(&event.CellClicked{
		BaseEvent: event.Now(),
		MatchID:   r.Match.ID,
		Column:    domain.OddsColumns[col],
	})
}

func (m *Model) sendResize() {
	if m.height == 0 {
		return
	}
	m.send(&event.Resized{BaseEvent: event.Now(), Height: m.bodyLines() * m.rowHeight})
}

func (m *Model) send(ev event.Event) bool {
	if m.dispatch == nil {
		return false
	}
	return m.dispatch.Dispatch(ev)
}

// clampCursor keeps the cursor on screen after the window moved.
func (m *Model) clampCursor() {
	first := m.firstVisible()
	last := min(first+m.bodyLines(), m.total) - 1
	if last < first {
		m.cursorRow = first
		return
	}
	m.cursorRow = max(first, min(m.cursorRow, last))
}

func (m Model) bodyLines() int {
	return max(m.height-chromeTop-chromeBottom, 1)
}

func (m Model) firstVisible() int {
	return m.offset / m.rowHeight
}

func (m Model) rowAt(index int) (viewport.RowView, bool) {
	i := index - m.window.Start
	if i < 0 || i >= len(m.rows) {
		return viewport.RowView{}, false
	}
	return m.rows[i], true
}

func (m Model) View() string {
	if !m.framed {
		return fmt.Sprintf("\n %s Loading matches...\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Live Odds"))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(header()))
	b.WriteString("\n")

	first := m.firstVisible()
	for line := 0; line < m.bodyLines(); line++ {
		r, ok := m.rowAt(first + line)
		if !ok {
			b.WriteString("\n")
			continue
		}
		b.WriteString(m.renderRow(r))
		b.WriteString("\n")
	}

	if m.total == 0 {
		b.WriteString(statusStyle.Render("No matches"))
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d-%d of %d", first+1, min(first+m.bodyLines(), m.total), m.total)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func header() string {
	var b strings.Builder
	b.WriteString(pad("Sport", sportWidth))
	b.WriteString(pad("Start", startWidth))
	b.WriteString(pad("Home", teamWidth))
	b.WriteString(pad("Away", teamWidth))
	b.WriteString(pad("Score", scoreWidth))
	for _, c := range domain.OddsColumns {
		b.WriteString(pad(c.Label(), cellWidth))
	}
	return b.String()
}

func (m Model) renderRow(r viewport.RowView) string {
	match := r.Match

	var b strings.Builder
	b.WriteString(pad(string(match.Sport), sportWidth))
	b.WriteString(pad(match.StartDateTime.Local().Format("01-02 15:04"), startWidth))
	b.WriteString(pad(match.TeamHome, teamWidth))
	b.WriteString(pad(match.TeamAway, teamWidth))
	b.WriteString(pad(fmt.Sprintf("%d:%d", match.ScoreHome, match.ScoreAway), scoreWidth))

	for i, cell := range r.Cells {
		b.WriteString(m.renderCell(cell, r.Index == m.cursorRow && i == m.cursorCol))
	}
	return b.String()
}

func (m Model) renderCell(c viewport.CellView, cursor bool) string {
	text := c.Value.StringFixed(2)
	if c.Changed {
		sign := ""
		if c.ChangePct.IsPositive() {
			sign = "+"
		}
		text += " " + sign + c.ChangePct.StringFixed(2) + "%"
	}
	text = pad(text, cellWidth-1)

	style := cellStyle
	switch {
	case c.Selected:
		style = selectedStyle
	case c.Changed && c.ChangePct.IsPositive():
		style = upStyle
	case c.Changed && c.ChangePct.IsNegative():
		style = downStyle
	}
	if cursor {
		style = style.Inherit(cursorStyle)
	}
	return style.Render(text) + " "
}

// pad truncates or right-pads s to exactly width runes.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width-1]) + " "
	}
	return s + strings.Repeat(" ", width-len(r))
}
