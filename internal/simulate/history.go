package simulate

import (
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// HistoryOptions shapes the synthetic historical dataset.
type HistoryOptions struct {
	Departments []string
	Years       domain.YearRange
	// Noise is the relative standard deviation applied to each yearly value.
	Noise float64
	Seed  uint64
}

// female to male case ratio applied to each department's base level.
const femaleRatio = 0.35

// History synthesizes a linear trend plus noise for every department and
// both sexes. Rows are ordered by department, sex, year.
func History(opts HistoryOptions) []domain.HistoricalRecord {
	depts := opts.Departments
	if len(depts) == 0 {
		depts = Departments
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	level := distuv.Uniform{Min: 20, Max: 400, Src: rng}
	growth := distuv.Uniform{Min: -0.02, Max: 0.08, Src: rng}
	noise := distuv.Normal{Mu: 0, Sigma: opts.Noise, Src: rng}

	years := opts.Years.Years()
	out := make([]domain.HistoricalRecord, 0, len(depts)*2*len(years))
	for _, dept := range depts {
		male := level.Rand()
		slope := growth.Rand()
		for _, sex := range []domain.Sex{domain.SexFemale, domain.SexMale} {
			base := male
			if sex == domain.SexFemale {
				base *= femaleRatio
			}
			for i, year := range years {
				v := base * (1 + slope*float64(i)) * (1 + noise.Rand())
				out = append(out, domain.HistoricalRecord{
					Year:          year,
					Department:    dept,
					Sex:           sex,
					ObservedCases: math.Max(0, math.Round(v)),
				})
			}
		}
	}
	return out
}
