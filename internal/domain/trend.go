package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Trend is a fitted line cases = Intercept + Slope*(year-Origin). Origin is
// the earliest observed year, which keeps the intercept on the data's scale.
//
// Constant is set when the group had fewer than two distinct years. The line
// is then flat at the mean of the observed values.
type Trend struct {
	Origin    int     `json:"origin"`
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	RSquared  float64 `json:"r_squared"` // 0 for constant trends and flat series
	Points    int     `json:"points"`
	Constant  bool    `json:"constant"`
}

// At evaluates the trend at year.
func (t Trend) At(year int) float64 {
	return t.Intercept + t.Slope*float64(year-t.Origin)
}

// FitTrend fits ordinary least squares year -> ObservedCases over every record
// in the group. With a single distinct year the slope is undefined and the
// returned trend is a constant at the observed mean. Returns ErrNoRecords for
// an empty group.
func FitTrend(records []HistoricalRecord) (Trend, error) {
	if len(records) == 0 {
		return Trend{}, ErrNoRecords
	}

	origin := records[0].Year
	distinct := make(map[int]struct{}, len(records))
	for _, r := range records {
		if r.Year < origin {
			origin = r.Year
		}
		distinct[r.Year] = struct{}{}
	}

	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	for i, r := range records {
		xs[i] = float64(r.Year - origin)
		ys[i] = r.ObservedCases
	}

	if len(distinct) < 2 {
		return Trend{
			Origin:    origin,
			Intercept: stat.Mean(ys, nil),
			Points:    len(records),
			Constant:  true,
		}, nil
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		r2 = 0
	}
	return Trend{
		Origin:    origin,
		Intercept: alpha,
		Slope:     beta,
		RSquared:  r2,
		Points:    len(records),
	}, nil
}
