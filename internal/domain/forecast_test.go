package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDeptLima     = "Lima"
	testDeptAmazonas = "Amazonas"
)

var (
	testHistory = YearRange{Start: 2015, End: 2024}
	testTargets = YearRange{Start: 2025, End: 2030}
)

func testForecaster() Forecaster {
	return Forecaster{History: testHistory, Targets: testTargets, Rule: MultiplierRule{Factor: 1.1}}
}

func series(dept string, sex Sex, start int, values ...float64) []HistoricalRecord {
	recs := make([]HistoricalRecord, len(values))
	for i, v := range values {
		recs[i] = HistoricalRecord{Year: start + i, Department: dept, Sex: sex, ObservedCases: v}
	}
	return recs
}

// olsFit is the textbook closed form, independent of the gonum implementation.
func olsFit(recs []HistoricalRecord) (intercept, slope float64) {
	n := float64(len(recs))
	var sx, sy, sxy, sx2 float64
	for _, r := range recs {
		x := float64(r.Year)
		sx += x
		sy += r.ObservedCases
		sxy += x * r.ObservedCases
		sx2 += x * x
	}
	slope = (n*sxy - sx*sy) / (n*sx2 - sx*sx)
	intercept = (sy - slope*sx) / n
	return intercept, slope
}

func TestFitTrend_ReproducesOLSFittedValues(t *testing.T) {
	recs := series(testDeptLima, SexMale, 2015, 10, 12, 17, 15, 21, 26, 24, 30, 29, 35)

	trend, err := FitTrend(recs)
	require.NoError(t, err)
	assert.False(t, trend.Constant)
	assert.Equal(t, len(recs), trend.Points)

	a, b := olsFit(recs)
	for _, r := range recs {
		want := a + b*float64(r.Year)
		assert.InDelta(t, want, trend.At(r.Year), 1e-6, "year %d", r.Year)
	}
}

func TestFitTrend_UnorderedInput(t *testing.T) {
	ordered := series(testDeptLima, SexFemale, 2015, 5, 9, 11, 16)
	shuffled := []HistoricalRecord{ordered[2], ordered[0], ordered[3], ordered[1]}

	t1, err := FitTrend(ordered)
	require.NoError(t, err)
	t2, err := FitTrend(shuffled)
	require.NoError(t, err)

	assert.InDelta(t, t1.At(2030), t2.At(2030), 1e-9)
}

func TestFitTrend_SinglePointIsConstant(t *testing.T) {
	recs := []HistoricalRecord{{Year: 2020, Department: testDeptAmazonas, Sex: SexMale, ObservedCases: 50}}

	trend, err := FitTrend(recs)
	require.NoError(t, err)
	assert.True(t, trend.Constant)
	for _, y := range testTargets.Years() {
		assert.InDelta(t, 50.0, trend.At(y), 1e-12)
	}
}

func TestFitTrend_RepeatedSingleYearUsesMean(t *testing.T) {
	recs := []HistoricalRecord{
		{Year: 2020, Department: testDeptAmazonas, Sex: SexMale, ObservedCases: 40},
		{Year: 2020, Department: testDeptAmazonas, Sex: SexMale, ObservedCases: 60},
	}

	trend, err := FitTrend(recs)
	require.NoError(t, err)
	assert.True(t, trend.Constant)
	assert.InDelta(t, 50.0, trend.At(2027), 1e-12)
}

func TestFitTrend_Empty(t *testing.T) {
	_, err := FitTrend(nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestComputeBaseline(t *testing.T) {
	recs := series(testDeptLima, SexMale, 2013, 1000, 2000, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100)

	b, err := ComputeBaseline(recs, testHistory)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, b.Mean, 1e-12)
	assert.Equal(t, 10, b.N)
	assert.InDelta(t, 30.276503540974915, b.StdDev, 1e-9)

	t.Run("out of window records do not matter", func(t *testing.T) {
		changed := append([]HistoricalRecord(nil), recs...)
		changed[0].ObservedCases = 0
		changed[1].ObservedCases = 99999
		changed = append(changed, HistoricalRecord{Year: 2026, Department: testDeptLima, Sex: SexMale, ObservedCases: 7})

		b2, err := ComputeBaseline(changed, testHistory)
		require.NoError(t, err)
		assert.Equal(t, b, b2)
	})

	t.Run("single observation has zero spread", func(t *testing.T) {
		b, err := ComputeBaseline(recs[2:3], testHistory)
		require.NoError(t, err)
		assert.Equal(t, Baseline{Mean: 10, N: 1}, b)
	})

	t.Run("nothing in window", func(t *testing.T) {
		_, err := ComputeBaseline(recs[:2], testHistory)
		assert.True(t, errors.Is(err, ErrNoBaseline))
	})
}

func TestProjectGroup_LinearRise(t *testing.T) {
	recs := series(testDeptLima, SexMale, 2015, 100, 110, 120, 130, 140, 150, 160, 170, 180, 190)

	summary, projections := testForecaster().ProjectGroup(recs[0].Key(), recs)

	assert.Equal(t, StatusTrend, summary.Status)
	require.NotNil(t, summary.Baseline)
	assert.InDelta(t, 145.0, summary.Baseline.Mean, 1e-9)
	require.Len(t, projections, 6)

	want := []int{200, 210, 220, 230, 240, 250}
	for i, p := range projections {
		assert.Equal(t, 2025+i, p.Year)
		assert.Equal(t, want[i], p.PredictedCases)
		assert.Equal(t, ModelLinear, p.Model)
		assert.InDelta(t, 145.0, p.HistoricalBaseline, 1e-9)
		assert.True(t, p.IsAlert, "%d > 159.5", p.PredictedCases)
	}
	require.NotNil(t, summary.Trend)
	assert.InDelta(t, 1.0, summary.Trend.RSquared, 1e-9)
}

func TestFitTrend_RSquared(t *testing.T) {
	flat, err := FitTrend(series(testDeptLima, SexMale, 2015, 7, 7, 7))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, flat.RSquared, 0)

	noisy, err := FitTrend(series(testDeptLima, SexMale, 2015, 10, 12, 17, 15, 21, 26, 24, 30, 29, 35))
	require.NoError(t, err)
	assert.Greater(t, noisy.RSquared, 0.9)
	assert.Less(t, noisy.RSquared, 1.0)
}

func TestProjectGroup_SingleRecordDegraded(t *testing.T) {
	recs := []HistoricalRecord{{Year: 2020, Department: testDeptAmazonas, Sex: SexFemale, ObservedCases: 50}}

	summary, projections := testForecaster().ProjectGroup(recs[0].Key(), recs)

	assert.Equal(t, StatusConstant, summary.Status)
	require.Len(t, projections, 6)
	for _, p := range projections {
		assert.Equal(t, 50, p.PredictedCases)
		assert.Equal(t, ModelConstant, p.Model)
		assert.False(t, p.IsAlert)
	}
}

func TestProjectGroup_ClampsNegativeExtrapolation(t *testing.T) {
	recs := series(testDeptLima, SexFemale, 2015, 90, 80, 70, 60, 50, 40, 30, 20, 10, 5)

	_, projections := testForecaster().ProjectGroup(recs[0].Key(), recs)

	require.NotEmpty(t, projections)
	a, b := olsFit(recs)
	require.Less(t, a+b*2030, 0.0, "fixture must extrapolate below zero")
	for _, p := range projections {
		assert.GreaterOrEqual(t, p.PredictedCases, 0)
	}
	assert.Equal(t, 0, projections[len(projections)-1].PredictedCases)
}

func TestProjectGroup_NoBaselineIsInsufficient(t *testing.T) {
	recs := series(testDeptLima, SexMale, 2005, 10, 20, 30)

	summary, projections := testForecaster().ProjectGroup(recs[0].Key(), recs)

	assert.Equal(t, StatusInsufficient, summary.Status)
	assert.Nil(t, summary.Baseline)
	assert.Equal(t, 3, summary.Observations)
	assert.Contains(t, summary.Reason, "historical window")
	assert.Empty(t, projections)
}

func TestIsAlert_StrictBoundary(t *testing.T) {
	rule := MultiplierRule{Factor: 1.1}
	b := Baseline{Mean: 100}

	assert.True(t, IsAlert(rule, 111, b))
	assert.False(t, IsAlert(rule, 110, b))
}

func TestIsAlert_StdDevRule(t *testing.T) {
	rule := StdDevRule{Factor: 1.5}
	b := Baseline{Mean: 100, StdDev: 10}

	assert.InDelta(t, 115.0, rule.Threshold(b), 1e-12)
	assert.False(t, IsAlert(rule, 115, b))
	assert.True(t, IsAlert(rule, 116, b))
}

func TestNewAlertRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		want    AlertRule
		wantErr string
	}{
		{"multiplier", "multiplier", MultiplierRule{Factor: 1.2}, ""},
		{"stddev", "stddev", StdDevRule{Factor: 1.5}, ""},
		{"case insensitive", " StdDev ", StdDevRule{Factor: 1.5}, ""},
		{"unknown", "zscore", nil, "unknown alert rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAlertRule(tt.rule, 1.2, 1.5)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewAlertRule(RuleMultiplier, 0, 1.5)
	require.Error(t, err)
	_, err = NewAlertRule(RuleStdDev, 1.1, -1)
	require.Error(t, err)
}

func TestClampCases(t *testing.T) {
	assert.Equal(t, 0, ClampCases(-3.7))
	assert.Equal(t, 0, ClampCases(math.NaN()))
	assert.Equal(t, 3, ClampCases(2.5))
	assert.Equal(t, 2, ClampCases(2.49))
	assert.Equal(t, 200, ClampCases(199.99999999))
	assert.Equal(t, math.MaxInt, ClampCases(1e300))
	assert.Equal(t, math.MaxInt, ClampCases(math.Inf(1)))
	assert.Equal(t, math.MaxInt, ClampCases(float64(math.MaxInt)))
}

func TestForecast_HugeCaseCountsStayNonNegative(t *testing.T) {
	raws := []RawRecord{
		{Line: 2, Year: "2022", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "900000000"},
		{Line: 3, Year: "2023", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "1e300"},
		{Line: 4, Year: "2024", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "1000000000"},
	}
	ds := ParseRecords(raws)
	require.Len(t, ds.Rejected, 1)
	assert.Equal(t, 3, ds.Rejected[0].Line)

	res := testForecaster().Forecast(ds)
	require.Len(t, res.Projections, 6)
	for _, p := range res.Projections {
		assert.GreaterOrEqual(t, p.PredictedCases, 0)
		assert.True(t, p.IsAlert, "year %d", p.Year)
	}
}

func TestForecast_OutputShapeAndOrder(t *testing.T) {
	var ds Dataset
	ds.Records = append(ds.Records, series(testDeptLima, SexMale, 2015, 1, 2, 3)...)
	ds.Records = append(ds.Records, series(testDeptAmazonas, SexFemale, 2015, 4, 5)...)
	ds.Records = append(ds.Records, series(testDeptAmazonas, SexMale, 2015, 6)...)

	res := testForecaster().Forecast(ds)

	require.Len(t, res.Groups, 3)
	assert.Len(t, res.Projections, 3*6)
	assert.Equal(t, GroupKey{testDeptAmazonas, SexFemale}, res.Groups[0].Key)
	assert.Equal(t, GroupKey{testDeptAmazonas, SexMale}, res.Groups[1].Key)
	assert.Equal(t, GroupKey{testDeptLima, SexMale}, res.Groups[2].Key)

	counts := res.CountByStatus()
	assert.Equal(t, 2, counts[StatusTrend])
	assert.Equal(t, 1, counts[StatusConstant])
}

func TestForecast_Idempotent(t *testing.T) {
	ds := ParseRecords([]RawRecord{
		{Line: 2, Year: "2015", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "120"},
		{Line: 3, Year: "2016", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "131"},
		{Line: 4, Year: "2017", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "118"},
		{Line: 5, Year: "2015", Department: testDeptAmazonas, Sex: "Femenino", EstimatedCases: "12"},
		{Line: 6, Year: "2016", Department: testDeptAmazonas, Sex: "Femenino", EstimatedCases: "15"},
	})
	f := testForecaster()

	first := f.Forecast(ds)
	second := f.Forecast(ds)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("forecast not idempotent (-first +second):\n%s", diff)
	}
	assert.Equal(t, RunID(first.Projections), RunID(second.Projections))
}

func TestForecast_AllRowsRejectedSurfacesInsufficient(t *testing.T) {
	ds := ParseRecords([]RawRecord{
		{Line: 2, Year: "2015", Department: testDeptLima, Sex: "Masculino", EstimatedCases: "10"},
		{Line: 3, Year: "x", Department: "Tumbes", Sex: "Femenino", EstimatedCases: "4"},
		{Line: 4, Year: "2016", Department: "Tumbes", Sex: "Femenino", EstimatedCases: "n/a"},
	})

	res := testForecaster().Forecast(ds)

	require.Len(t, res.Groups, 2)
	tumbes := res.Groups[1]
	assert.Equal(t, GroupKey{"Tumbes", SexFemale}, tumbes.Key)
	assert.Equal(t, StatusInsufficient, tumbes.Status)
	assert.Equal(t, 0, tumbes.Observations)
	for _, p := range res.Projections {
		assert.NotEqual(t, "Tumbes", p.Department)
	}
}

func TestNewRun(t *testing.T) {
	fixed := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	f := testForecaster()
	res := f.Forecast(Dataset{Records: series(testDeptLima, SexMale, 2015, 1, 2)})
	run := f.NewRun(res)

	assert.Equal(t, fixed, run.GeneratedAt)
	assert.Equal(t, "multiplier(1.1)", run.Rule)
	assert.Equal(t, RunID(res.Projections), run.ID)
	assert.Len(t, run.ID, 16)
}

func TestProjectionID(t *testing.T) {
	k := GroupKey{Department: testDeptLima, Sex: SexMale}
	assert.Equal(t, ProjectionID(k, 2025), ProjectionID(k, 2025))
	assert.NotEqual(t, ProjectionID(k, 2025), ProjectionID(k, 2026))
	assert.NotEqual(t, ProjectionID(k, 2025), ProjectionID(GroupKey{testDeptLima, SexFemale}, 2025))
	assert.Len(t, ProjectionID(k, 2025), 16)
}
