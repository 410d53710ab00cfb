package odds

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"odds_grid/internal/domain"
)

// minChance keeps generated probabilities away from zero so 1/p stays finite.
const minChance = 0.001

var one = decimal.NewFromInt(1)

// Chances holds the two independently drawn outcome probabilities.
// The away-win probability is whatever remains.
type Chances struct {
	WinHome float64
	Draw    float64
}

// WinAway returns 1 - WinHome - Draw.
func (c Chances) WinAway() float64 {
	return 1 - c.WinHome - c.Draw
}

// GenerateChances draws WinHome ~ U[0,1) and Draw ~ U[0, 1-WinHome).
// Draws that would leave any probability below minChance are repeated.
func GenerateChances(r *rand.Rand) Chances {
	for {
		home := r.Float64()
		c := Chances{WinHome: home, Draw: r.Float64() * (1 - home)}
		if c.WinHome >= minChance && c.Draw >= minChance && c.WinAway() >= minChance {
			return c
		}
	}
}

// FromChances converts probabilities into the five rounded odds.
// Combined odds are derived from the probability sums.
func FromChances(c Chances) (domain.Odds, error) {
	if c.WinHome+c.Draw > 1 {
		return domain.Odds{}, fmt.Errorf("%w: winHome %.4f + draw %.4f > 1", domain.ErrInvalidChances, c.WinHome, c.Draw)
	}
	away := c.WinAway()
	if c.WinHome <= 0 || c.Draw <= 0 || away <= 0 {
		return domain.Odds{}, fmt.Errorf("%w: probabilities must be positive (%.4f, %.4f, %.4f)",
			domain.ErrInvalidChances, c.WinHome, c.Draw, away)
	}

	return domain.Odds{
		WinHome:    toOdd(c.WinHome),
		Draw:       toOdd(c.Draw),
		WinAway:    toOdd(away),
		HomeOrDraw: toOdd(c.WinHome + c.Draw),
		AwayOrDraw: toOdd(away + c.Draw),
	}, nil
}

// Generate draws fresh chances and converts them.
func Generate(r *rand.Rand) domain.Odds {
	o, err := FromChances(GenerateChances(r))
	if err != nil {
		// GenerateChances only yields valid inputs.
		panic(fmt.Sprintf("ODDS_SYNTHESIS_INVARIANT: %v", err))
	}
	return o
}

func toOdd(p float64) decimal.Decimal {
	return one.Div(decimal.NewFromFloat(p)).Round(2)
}
