package domain

import (
	"math"
	"sort"
	"time"
)

// Model labels how a projection was produced. Values match the Modelo column.
type Model string

const (
	ModelLinear    Model = "lineal"
	ModelConstant  Model = "constante"
	ModelSimulated Model = "simulado"
)

// Status classifies the outcome for a whole group.
type Status string

const (
	StatusTrend        Status = "trend"
	StatusConstant     Status = "constant"
	StatusInsufficient Status = "insufficient_data"
)

// Projection is one projected (group, year) row. It is never mutated after
// the engine creates it; a new run replaces the whole set.
type Projection struct {
	ID                 string  `json:"id"`
	Year               int     `json:"year"`
	Department         string  `json:"department"`
	Sex                Sex     `json:"sex"`
	PredictedCases     int     `json:"predicted_cases"`
	HistoricalBaseline float64 `json:"historical_baseline"`
	IsAlert            bool    `json:"is_alert"`
	Model              Model   `json:"model"`
}

// Key returns the group the projection belongs to.
func (p Projection) Key() GroupKey {
	return GroupKey{Department: p.Department, Sex: p.Sex}
}

// GroupSummary reports how a group was handled. Baseline and Trend are nil
// when they could not be computed.
type GroupSummary struct {
	Key          GroupKey  `json:"key"`
	Status       Status    `json:"status"`
	Observations int       `json:"observations"`
	Baseline     *Baseline `json:"baseline,omitempty"`
	Trend        *Trend    `json:"trend,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// Result is the engine output: one projection per (forecastable group, target
// year) and one summary per group seen in the input.
type Result struct {
	Projections []Projection   `json:"projections"`
	Groups      []GroupSummary `json:"groups"`
}

// CountByStatus tallies the group summaries.
func (r Result) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, g := range r.Groups {
		counts[g.Status]++
	}
	return counts
}

// Alerts counts alerting projections.
func (r Result) Alerts() int {
	n := 0
	for _, p := range r.Projections {
		if p.IsAlert {
			n++
		}
	}
	return n
}

// Forecaster is the forecast-and-alert engine. The zero value is not usable;
// all three fields are required.
type Forecaster struct {
	History YearRange
	Targets YearRange
	Rule    AlertRule
}

// Forecast runs every group of ds through ProjectGroup. Groups are visited in
// department, sex order so the output is stable across runs.
func (f Forecaster) Forecast(ds Dataset) Result {
	groups := ds.Groups()
	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	res := Result{
		Projections: make([]Projection, 0, len(keys)*len(f.Targets.Years())),
		Groups:      make([]GroupSummary, 0, len(keys)),
	}
	for _, k := range keys {
		summary, projections := f.ProjectGroup(k, groups[k])
		res.Groups = append(res.Groups, summary)
		res.Projections = append(res.Projections, projections...)
	}
	return res
}

// ProjectGroup computes the baseline and trend of a single group and
// evaluates the trend at every target year. A group without an in-window
// baseline yields a StatusInsufficient summary and no projections.
func (f Forecaster) ProjectGroup(key GroupKey, records []HistoricalRecord) (GroupSummary, []Projection) {
	summary := GroupSummary{Key: key, Observations: len(records)}

	baseline, err := ComputeBaseline(records, f.History)
	if err != nil {
		summary.Status = StatusInsufficient
		summary.Reason = err.Error()
		return summary, nil
	}
	summary.Baseline = &baseline

	trend, err := FitTrend(records)
	if err != nil {
		summary.Status = StatusInsufficient
		summary.Reason = err.Error()
		return summary, nil
	}
	summary.Trend = &trend

	model := ModelLinear
	summary.Status = StatusTrend
	if trend.Constant {
		model = ModelConstant
		summary.Status = StatusConstant
	}

	years := f.Targets.Years()
	projections := make([]Projection, 0, len(years))
	for _, year := range years {
		predicted := ClampCases(trend.At(year))
		projections = append(projections, Projection{
			ID:                 ProjectionID(key, year),
			Year:               year,
			Department:         key.Department,
			Sex:                key.Sex,
			PredictedCases:     predicted,
			HistoricalBaseline: baseline.Mean,
			IsAlert:            IsAlert(f.Rule, predicted, baseline),
			Model:              model,
		})
	}
	return summary, projections
}

// ClampCases rounds v to the nearest integer (halves away from zero),
// clamps negatives and NaN to zero, and saturates at math.MaxInt.
func ClampCases(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(math.Round(v))
}

// Run is a completed forecast with its provenance. Observed carries the
// accepted historical rows so sinks that serve history can refresh it in the
// same step; it is not part of the serialized run.
type Run struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Rule        string             `json:"rule"`
	History     YearRange          `json:"history"`
	Targets     YearRange          `json:"targets"`
	Result      Result             `json:"result"`
	Observed    []HistoricalRecord `json:"-"`
}

// NewRun stamps a result with its content-derived ID and the current time.
func (f Forecaster) NewRun(res Result) Run {
	return Run{
		ID:          RunID(res.Projections),
		GeneratedAt: clock.Now().UTC(),
		Rule:        f.Rule.String(),
		History:     f.History,
		Targets:     f.Targets,
		Result:      res,
	}
}
