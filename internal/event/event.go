package event

import (
	"time"

	"odds_grid/internal/domain"
)

// Type tags UI events sent to the sequencer.
type Type uint8

const (
	TypeResized Type = iota + 1
	TypeScrolled
	TypeScrolledBy
	TypeCellClicked
	TypeRowsRendered
	TypeSelectionCleared
)

func (t Type) String() string {
	switch t {
	case TypeResized:
		return "resized"
	case TypeScrolled:
		return "scrolled"
	case TypeScrolledBy:
		return "scrolled_by"
	case TypeCellClicked:
		return "cell_clicked"
	case TypeRowsRendered:
		return "rows_rendered"
	case TypeSelectionCleared:
		return "selection_cleared"
	default:
		return "unknown"
	}
}

// Event is anything the rendering surface sends to the sequencer.
type Event interface {
	GetType() Type
	GetTs() int64
}

// BaseEvent carries the creation time in unix microseconds.
type BaseEvent struct {
	Ts int64 `json:"ts"`
}

func (e BaseEvent) GetTs() int64 { return e.Ts }

// Now returns a BaseEvent stamped with the current time.
func Now() BaseEvent {
	return BaseEvent{Ts: time.Now().UnixMicro()}
}

// Resized reports a new viewport height in pixels.
type Resized struct {
	BaseEvent
	Height int `json:"height"`
}

func (*Resized) GetType() Type { return TypeResized }

// Scrolled sets an absolute scroll offset.
type Scrolled struct {
	BaseEvent
	Offset int `json:"offset"`
}

func (*Scrolled) GetType() Type { return TypeScrolled }

// ScrolledBy moves the scroll offset by a signed pixel delta.
type ScrolledBy struct {
	BaseEvent
	Delta int `json:"delta"`
}

func (*ScrolledBy) GetType() Type { return TypeScrolledBy }

// CellClicked is a click on one odds cell.
type CellClicked struct {
	BaseEvent
	MatchID string            `json:"matchId"`
	Column  domain.OddsColumn `json:"column"`
}

func (*CellClicked) GetType() Type { return TypeCellClicked }

// RowsRendered acknowledges that the surface has painted a frame.
type RowsRendered struct {
	BaseEvent
	Start int `json:"start"`
	End   int `json:"end"`
}

func (*RowsRendered) GetType() Type { return TypeRowsRendered }

// SelectionCleared drops every pinned cell.
type SelectionCleared struct {
	BaseEvent
}

func (*SelectionCleared) GetType() Type { return TypeSelectionCleared }
