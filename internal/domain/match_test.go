package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testOdds(v1, vx, v2, v1x, v2x string) Odds {
	return Odds{
		WinHome:    decimal.RequireFromString(v1),
		Draw:       decimal.RequireFromString(vx),
		WinAway:    decimal.RequireFromString(v2),
		HomeOrDraw: decimal.RequireFromString(v1x),
		AwayOrDraw: decimal.RequireFromString(v2x),
	}
}

func testMatch() Match {
	o := testOdds("2", "4", "4", "1.33", "2")
	return Match{
		ID:            "a",
		Sport:         SportSoccer,
		StartDateTime: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
		TeamHome:      "Arsenal",
		TeamAway:      "Chelsea",
		ScoreHome:     1,
		ScoreAway:     0,
		Baseline:      o,
		Current:       o,
	}
}

func TestParseOddsColumn(t *testing.T) {
	tests := []struct {
		in      string
		want    OddsColumn
		wantErr bool
	}{
		{"odd1", ColumnWinHome, false},
		{"oddX", ColumnDraw, false},
		{"odd2", ColumnWinAway, false},
		{"odd1X", ColumnHomeOrDraw, false},
		{"odd2X", ColumnAwayOrDraw, false},
		{"oddx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOddsColumn(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColumn) {
					t.Errorf("expected ErrInvalidColumn, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseOddsColumn(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOddsColumn_Label(t *testing.T) {
	want := []string{"1", "x", "2", "1X", "2X"}
	for i, c := range OddsColumns {
		if c.Label() != want[i] {
			t.Errorf("%s label = %q, want %q", c, c.Label(), want[i])
		}
	}
}

func TestOdds_Validate(t *testing.T) {
	if err := testOdds("2", "4", "4", "1.33", "2").Validate(); err != nil {
		t.Errorf("valid odds rejected: %v", err)
	}

	err := testOdds("2", "0", "4", "1.33", "2").Validate()
	if !errors.Is(err, ErrNonPositiveOdds) {
		t.Errorf("expected ErrNonPositiveOdds, got %v", err)
	}
}

func TestOdds_Equal(t *testing.T) {
	a := testOdds("2", "4", "4", "1.33", "2")
	b := testOdds("2.00", "4.0", "4", "1.33", "2")
	if !a.Equal(b) {
		t.Error("numerically equal odds should compare equal")
	}
	b.Draw = decimal.RequireFromString("4.01")
	if a.Equal(b) {
		t.Error("different odds should not compare equal")
	}
}

func TestMatch_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Match)
		ok     bool
	}{
		{"valid", func(*Match) {}, true},
		{"empty id", func(m *Match) { m.ID = "" }, false},
		{"unknown sport", func(m *Match) { m.Sport = "curling" }, false},
		{"same teams", func(m *Match) { m.TeamAway = m.TeamHome }, false},
		{"negative score", func(m *Match) { m.ScoreAway = -1 }, false},
		{"zero current", func(m *Match) { m.Current.WinHome = decimal.Zero }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMatch()
			tt.mutate(&m)
			err := m.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMatch_ChangePct(t *testing.T) {
	m := testMatch()
	m.Current.WinHome = decimal.RequireFromString("1.85")

	if !m.IsChanged(ColumnWinHome) {
		t.Error("odd1 should be reported as changed")
	}
	if m.IsChanged(ColumnDraw) {
		t.Error("oddX should not be reported as changed")
	}

	// (1.85 - 2) / 2 = -7.5%
	if got := m.ChangePct(ColumnWinHome); !got.Equal(decimal.RequireFromString("-7.5")) {
		t.Errorf("ChangePct = %s, want -7.5", got)
	}
	if got := m.ChangePct(ColumnDraw); !got.IsZero() {
		t.Errorf("ChangePct of unchanged column = %s, want 0", got)
	}
}
