package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

// minVariableShare is the share of groups expected to change year over year.
const minVariableShare = 0.5

// maxReported caps how many offending rows a phase lists.
const maxReported = 20

// phase tracks pass/fail for a validation phase. Advisory phases collect
// warnings in notes and never fail.
type phase struct {
	name     string
	advisory bool
	errors   []string
	notes    []string
}

func (p *phase) errorf(format string, args ...any) {
	switch {
	case len(p.errors) < maxReported:
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	case len(p.errors) == maxReported:
		p.errors = append(p.errors, "further errors omitted")
	}
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return p.advisory || len(p.errors) == 0 }

func (p *phase) status() string {
	switch {
	case len(p.errors) > 0 && !p.advisory:
		return fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
	case p.advisory && len(p.errors) > 0:
		return "\033[33mWARN\033[0m"
	default:
		return "\033[32mPASS\033[0m"
	}
}

// row is a projection line with typed fields.
type row struct {
	line      int
	year      int
	key       domain.GroupKey
	predicted int
	baseline  float64
	alert     bool
}

// validateSchema types every row. Rows that fail to parse are reported and
// left out of the later phases.
func validateSchema(rows []csvfile.ProjectionRow) (*phase, []row) {
	p := &phase{name: "Schema"}
	if len(rows) == 0 {
		p.errorf("table has no data rows")
		return p, nil
	}

	parsed := make([]row, 0, len(rows))
	for _, r := range rows {
		out, err := parseRow(r)
		if err != nil {
			p.errorf("line %d: %v", r.Line, err)
			continue
		}
		parsed = append(parsed, out)
	}
	return p, parsed
}

func parseRow(r csvfile.ProjectionRow) (row, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return row{}, fmt.Errorf("%s %q is not an integer", csvfile.ColYear, r.Year)
	}
	dept := strings.TrimSpace(r.Department)
	if dept == "" {
		return row{}, fmt.Errorf("empty %s", csvfile.ColDepartment)
	}
	sex, err := domain.ParseSex(r.Sex)
	if err != nil {
		return row{}, fmt.Errorf("%s %q is not Masculino or Femenino", csvfile.ColSex, r.Sex)
	}
	predicted, err := strconv.Atoi(strings.TrimSpace(r.Predicted))
	if err != nil {
		return row{}, fmt.Errorf("%s %q is not an integer", csvfile.ColPredicted, r.Predicted)
	}
	baseline, err := strconv.ParseFloat(strings.TrimSpace(r.Baseline), 64)
	if err != nil || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return row{}, fmt.Errorf("%s %q is not a number", csvfile.ColBaseline, r.Baseline)
	}
	alert, err := csvfile.ParseAlert(r.Alert)
	if err != nil {
		return row{}, err
	}
	switch domain.Model(strings.TrimSpace(r.Model)) {
	case "", domain.ModelLinear, domain.ModelConstant, domain.ModelSimulated:
	default:
		return row{}, fmt.Errorf("unknown %s %q", csvfile.ColModel, r.Model)
	}
	return row{
		line:      r.Line,
		year:      year,
		key:       domain.GroupKey{Department: dept, Sex: sex},
		predicted: predicted,
		baseline:  baseline,
		alert:     alert,
	}, nil
}

// groupRows buckets rows by group, each bucket ordered by year.
func groupRows(rows []row) map[domain.GroupKey][]row {
	groups := make(map[domain.GroupKey][]row)
	for _, r := range rows {
		groups[r.key] = append(groups[r.key], r)
	}
	for k := range groups {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return g[i].year < g[j].year })
	}
	return groups
}

func sortedKeys(groups map[domain.GroupKey][]row) []domain.GroupKey {
	keys := make([]domain.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func validateInvariants(rows []row, targets domain.YearRange) *phase {
	p := &phase{name: "Invariants"}

	for _, r := range rows {
		if r.predicted < 0 {
			p.errorf("line %d: negative %s %d", r.line, csvfile.ColPredicted, r.predicted)
		}
		if !targets.Contains(r.year) {
			p.errorf("line %d: year %d outside %s", r.line, r.year, targets)
		}
	}

	groups := groupRows(rows)
	want := len(targets.Years())
	for _, k := range sortedKeys(groups) {
		g := groups[k]
		if len(g) != want {
			p.errorf("%s: %d rows, want %d", k, len(g), want)
		}
		seen := make(map[int]bool, len(g))
		for _, r := range g {
			if seen[r.year] {
				p.errorf("%s: duplicate year %d (line %d)", k, r.year, r.line)
			}
			seen[r.year] = true
			if r.baseline != g[0].baseline {
				p.errorf("%s: %s %.1f on line %d differs from %.1f", k, csvfile.ColBaseline, r.baseline, r.line, g[0].baseline)
			}
		}
	}
	return p
}

func validateVariability(rows []row) *phase {
	p := &phase{name: "Variability", advisory: true}
	groups := groupRows(rows)
	if len(groups) == 0 {
		return p
	}

	variable := 0
	for _, k := range sortedKeys(groups) {
		g := groups[k]
		for i := 1; i < len(g); i++ {
			if g[i].predicted != g[i-1].predicted {
				variable++
				break
			}
		}
	}
	share := float64(variable) / float64(len(groups))
	p.notef("%d of %d groups vary year over year (%.1f%%)", variable, len(groups), share*100)
	if share < minVariableShare {
		p.errorf("only %.1f%% of groups vary year over year, expected at least %.0f%%", share*100, minVariableShare*100)
	}
	return p
}

func validateAlerts(rows []row) *phase {
	p := &phase{name: "Alerts", advisory: true}
	if len(rows) == 0 {
		return p
	}

	alerts := 0
	byYear := make(map[int]int)
	for _, r := range rows {
		if r.alert {
			alerts++
			byYear[r.year]++
		}
	}
	p.notef("%d of %d rows alert (%.1f%%)", alerts, len(rows), float64(alerts)/float64(len(rows))*100)
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		p.notef("%d: %d alerts", y, byYear[y])
	}
	if alerts == 0 {
		p.errorf("no alerts in the table")
	}
	return p
}
