package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/odds"

	"github.com/google/uuid"
)

// DefaultMatches is the dataset size generated on first start.
const DefaultMatches = 11_000

const scoreDeviationMultiplier = 2

var averageScore = map[domain.Sport]float64{
	domain.SportSoccer:     1.36,
	domain.SportBasketball: 107.4,
	domain.SportBaseball:   4.1,
	domain.SportFootball:   22.4,
}

// Distribution is the number of matches to generate per sport.
type Distribution map[domain.Sport]int

// Total returns the number of matches the distribution produces.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// MixedDistribution splits n evenly over the sports; the remainder goes to soccer.
func MixedDistribution(n int) Distribution {
	if n < 0 {
		n = 0
	}
	per := n / len(domain.Sports)
	d := make(Distribution, len(domain.Sports))
	for _, s := range domain.Sports {
		d[s] = per
	}
	d[domain.SportSoccer] += n % len(domain.Sports)
	return d
}

// Generate synthesizes matches for dist, ordered ascending by id.
// Current odds start equal to baseline.
func Generate(r *rand.Rand, dist Distribution, now time.Time) []domain.Match {
	matches := make([]domain.Match, 0, dist.Total())

	for _, sport := range domain.Sports {
		pool := clubs(sport)
		for i := 0; i < dist[sport]; i++ {
			home, away := pickTeams(r, pool)
			o := odds.Generate(r)

			matches = append(matches, domain.Match{
				ID:            uuid.NewString(),
				Sport:         sport,
				StartDateTime: randomStart(r, now),
				TeamHome:      home,
				TeamAway:      away,
				ScoreHome:     teamScore(r, sport),
				ScoreAway:     teamScore(r, sport),
				Baseline:      o,
				Current:       o,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

func pickTeams(r *rand.Rand, pool []string) (string, string) {
	for {
		home := pool[r.IntN(len(pool))]
		away := pool[r.IntN(len(pool))]
		if home != away {
			return home, away
		}
	}
}

// randomStart keeps the current year; month/day overflow normalizes like a calendar roll.
func randomStart(r *rand.Rand, now time.Time) time.Time {
	return time.Date(now.Year(), time.Month(r.IntN(12)+1), r.IntN(31)+1, r.IntN(24), 0, 0, 0, now.Location())
}

func teamScore(r *rand.Rand, s domain.Sport) int {
	return int(math.Round(r.Float64() * averageScore[s] * r.Float64() * scoreDeviationMultiplier))
}
