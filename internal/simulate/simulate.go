// Package simulate generates illustrative, non-authoritative data: a
// scenario projection table driven by random noise, and a synthetic
// historical dataset for environments without a real source. Nothing here is
// used by the forecast path.
package simulate

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simulator draws scenario projections from a seeded source, so the same
// seed and dataset always give the same table.
type Simulator struct {
	History domain.YearRange
	Targets domain.YearRange
	rng     *rand.Rand
}

// NewSimulator returns a Simulator seeded with seed.
func NewSimulator(history, targets domain.YearRange, seed uint64) *Simulator {
	return &Simulator{
		History: history,
		Targets: targets,
		rng:     rand.New(rand.NewPCG(seed, seed)),
	}
}

// Project produces one simulated row per (group with baseline, target year),
// sorted like the forecast output. Groups without an in-window baseline are
// skipped.
func (s *Simulator) Project(ds domain.Dataset) []domain.Projection {
	groups := ds.Groups()
	keys := make([]domain.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rule := domain.StdDevRule{Factor: alertStdDevFactor}
	out := make([]domain.Projection, 0, len(keys)*len(s.Targets.Years()))
	for _, k := range keys {
		b, err := domain.ComputeBaseline(groups[k], s.History)
		if err != nil {
			continue
		}
		for _, year := range s.Targets.Years() {
			predicted, outbreak := s.draw(k, year, b.Mean)
			out = append(out, domain.Projection{
				ID:                 domain.ProjectionID(k, year),
				Year:               year,
				Department:         k.Department,
				Sex:                k.Sex,
				PredictedCases:     predicted,
				HistoricalBaseline: b.Mean,
				IsAlert:            outbreak || domain.IsAlert(rule, predicted, b),
				Model:              domain.ModelSimulated,
			})
		}
	}
	return out
}

// draw returns the simulated case count and whether an outbreak was applied.
func (s *Simulator) draw(k domain.GroupKey, year int, mean float64) (int, bool) {
	yf := yearFactor(year)
	df := departmentFactor(k.Department)
	sf := sexFactors[string(k.Sex)]

	base := mean * yf.base * df.base * sf.base
	noise := distuv.Normal{Mu: 0, Sigma: yf.variance + df.variance + sf.variance, Src: s.rng}
	predicted := max(1, int(math.Round(base*(1+noise.Rand()))))

	if outbreakDepartments[k.Department] && year >= outbreakFromYear {
		if s.rng.Float64() < outbreakProbability {
			mult := distuv.Uniform{Min: outbreakMin, Max: outbreakMax, Src: s.rng}
			return int(float64(predicted) * mult.Rand()), true
		}
	}
	return predicted, false
}
