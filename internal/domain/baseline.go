package domain

import (
	"gonum.org/v1/gonum/stat"
)

// Baseline summarizes a group's observed cases inside the historical window.
type Baseline struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // sample standard deviation, 0 with a single observation
	N      int     `json:"n"`
}

// ComputeBaseline returns the arithmetic mean (and sample standard deviation)
// of ObservedCases for the records whose year falls inside window. Records
// outside the window never influence the result. Returns ErrNoBaseline when
// no record qualifies.
func ComputeBaseline(records []HistoricalRecord, window YearRange) (Baseline, error) {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if window.Contains(r.Year) {
			values = append(values, r.ObservedCases)
		}
	}
	if len(values) == 0 {
		return Baseline{}, ErrNoBaseline
	}

	b := Baseline{
		Mean: stat.Mean(values, nil),
		N:    len(values),
	}
	if len(values) > 1 {
		b.StdDev = stat.StdDev(values, nil)
	}
	return b, nil
}
