package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sport identifies the discipline a match belongs to.
type Sport string

const (
	SportBaseball   Sport = "baseball"
	SportBasketball Sport = "basketball"
	SportFootball   Sport = "football"
	SportSoccer     Sport = "soccer"
)

// Sports lists every supported sport in generation order.
var Sports = []Sport{SportBaseball, SportBasketball, SportFootball, SportSoccer}

// Valid reports whether s is one of the supported sports.
func (s Sport) Valid() bool {
	switch s {
	case SportBaseball, SportBasketball, SportFootball, SportSoccer:
		return true
	default:
		return false
	}
}

// OddsColumn is the key of one of the five odds cells in a row.
type OddsColumn string

const (
	ColumnWinHome    OddsColumn = "odd1"
	ColumnDraw       OddsColumn = "oddX"
	ColumnWinAway    OddsColumn = "odd2"
	ColumnHomeOrDraw OddsColumn = "odd1X"
	ColumnAwayOrDraw OddsColumn = "odd2X"
)

// OddsColumns is the fixed display order of the odds cells.
var OddsColumns = [5]OddsColumn{ColumnWinHome, ColumnDraw, ColumnWinAway, ColumnHomeOrDraw, ColumnAwayOrDraw}

// Valid reports whether c names one of the five odds cells.
func (c OddsColumn) Valid() bool {
	switch c {
	case ColumnWinHome, ColumnDraw, ColumnWinAway, ColumnHomeOrDraw, ColumnAwayOrDraw:
		return true
	default:
		return false
	}
}

// Label returns the short header used by the grid.
func (c OddsColumn) Label() string {
	switch c {
	case ColumnWinHome:
		return "1"
	case ColumnDraw:
		return "x"
	case ColumnWinAway:
		return "2"
	case ColumnHomeOrDraw:
		return "1X"
	case ColumnAwayOrDraw:
		return "2X"
	default:
		return "?"
	}
}

// ParseOddsColumn converts a persisted column key back to an OddsColumn.
func ParseOddsColumn(s string) (OddsColumn, error) {
	c := OddsColumn(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidColumn, s)
	}
	return c, nil
}

// Odds is the fixed set of five decimal odds of a match.
type Odds struct {
	WinHome    decimal.Decimal `json:"odd1" gorm:"type:text"`
	Draw       decimal.Decimal `json:"oddX" gorm:"type:text"`
	WinAway    decimal.Decimal `json:"odd2" gorm:"type:text"`
	HomeOrDraw decimal.Decimal `json:"odd1X" gorm:"type:text"`
	AwayOrDraw decimal.Decimal `json:"odd2X" gorm:"type:text"`
}

// Get returns the value of a single column.
func (o Odds) Get(c OddsColumn) decimal.Decimal {
	switch c {
	case ColumnWinHome:
		return o.WinHome
	case ColumnDraw:
		return o.Draw
	case ColumnWinAway:
		return o.WinAway
	case ColumnHomeOrDraw:
		return o.HomeOrDraw
	case ColumnAwayOrDraw:
		return o.AwayOrDraw
	default:
		return decimal.Zero
	}
}

// Equal compares all five values numerically.
func (o Odds) Equal(other Odds) bool {
	for _, c := range OddsColumns {
		if !o.Get(c).Equal(other.Get(c)) {
			return false
		}
	}
	return true
}

// Validate checks that every value is strictly positive.
func (o Odds) Validate() error {
	for _, c := range OddsColumns {
		if !o.Get(c).IsPositive() {
			return fmt.Errorf("%w: %s = %s", ErrNonPositiveOdds, c, o.Get(c).String())
		}
	}
	return nil
}

// Match is a single sporting event row.
// Baseline odds are set at creation and never change; Current starts equal
// to Baseline and only the reconciler writes it afterwards.
type Match struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Sport         Sport     `gorm:"index" json:"sport"`
	StartDateTime time.Time `gorm:"index" json:"startDateTime"`
	TeamHome      string    `json:"teamHome"`
	TeamAway      string    `json:"teamAway"`
	ScoreHome     int       `json:"scoreHome"`
	ScoreAway     int       `json:"scoreAway"`

	Baseline Odds `gorm:"embedded;embeddedPrefix:baseline_" json:"baseline"`
	Current  Odds `gorm:"embedded;embeddedPrefix:current_" json:"current"`
}

// Validate checks the record invariants.
func (m *Match) Validate() error {
	if m.ID == "" {
		return errors.New("match ID must not be empty")
	}
	if !m.Sport.Valid() {
		return fmt.Errorf("unknown sport %q", m.Sport)
	}
	if m.TeamHome == m.TeamAway {
		return fmt.Errorf("home and away team must differ: %s", m.TeamHome)
	}
	if m.ScoreHome < 0 || m.ScoreAway < 0 {
		return errors.New("scores must not be negative")
	}
	if err := m.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	if err := m.Current.Validate(); err != nil {
		return fmt.Errorf("current: %w", err)
	}
	return nil
}

// IsChanged reports whether the current value of c differs from baseline.
func (m *Match) IsChanged(c OddsColumn) bool {
	return !m.Current.Get(c).Equal(m.Baseline.Get(c))
}

// ChangePct returns the signed relative change of c against baseline, in percent.
func (m *Match) ChangePct(c OddsColumn) decimal.Decimal {
	base := m.Baseline.Get(c)
	if base.IsZero() {
		return decimal.Zero
	}
	return m.Current.Get(c).Sub(base).Div(base).Mul(decimal.NewFromInt(100)).Round(2)
}

// OddsChangeEvent is one update from the live feed. It is applied, never stored.
type OddsChangeEvent struct {
	MatchID string `json:"id"`
	Odds    Odds   `json:"changedOdds"`
}
