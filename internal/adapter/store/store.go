// Package store keeps the latest forecast run in memory for the query API.
// Each run replaces the previous snapshot wholesale; readers never see a
// partially loaded run.
package store

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

// ErrNoRun is returned by queries before the first run has been loaded.
var ErrNoRun = errors.New("no forecast run loaded yet")

// ProjectionFilter narrows a projection query. Zero fields match everything.
type ProjectionFilter struct {
	Year       int
	Department string
	Sex        domain.Sex
}

func (f ProjectionFilter) match(p domain.Projection) bool {
	if f.Year != 0 && p.Year != f.Year {
		return false
	}
	if f.Department != "" && p.Department != f.Department {
		return false
	}
	if f.Sex != "" && p.Sex != f.Sex {
		return false
	}
	return true
}

// Options lists the distinct values a client can filter by.
type Options struct {
	Departments []string     `json:"departments"`
	Sexes       []domain.Sex `json:"sexes"`
	Years       []int        `json:"years"`
}

// RunInfo is the provenance of the loaded snapshot.
type RunInfo struct {
	ID          string           `json:"id"`
	GeneratedAt string           `json:"generated_at"`
	Rule        string           `json:"rule"`
	History     domain.YearRange `json:"history"`
	Targets     domain.YearRange `json:"targets"`
}

type snapshot struct {
	run     domain.Run
	history map[domain.GroupKey][]domain.HistoricalRecord
	options Options
}

// Store implements pipeline.Loader and serves read queries.
type Store struct {
	current atomic.Pointer[snapshot]
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "store" }

// Load swaps in the run as the current snapshot.
func (s *Store) Load(_ context.Context, run domain.Run) error {
	s.current.Store(buildSnapshot(run))
	return nil
}

func buildSnapshot(run domain.Run) *snapshot {
	history := make(map[domain.GroupKey][]domain.HistoricalRecord)
	for _, r := range run.Observed {
		history[r.Key()] = append(history[r.Key()], r)
	}
	for k := range history {
		records := history[k]
		sort.SliceStable(records, func(i, j int) bool { return records[i].Year < records[j].Year })
	}

	depts := make(map[string]struct{})
	sexes := make(map[domain.Sex]struct{})
	for _, g := range run.Result.Groups {
		depts[g.Key.Department] = struct{}{}
		sexes[g.Key.Sex] = struct{}{}
	}
	opts := Options{
		Departments: make([]string, 0, len(depts)),
		Sexes:       make([]domain.Sex, 0, len(sexes)),
		Years:       run.Targets.Years(),
	}
	for d := range depts {
		opts.Departments = append(opts.Departments, d)
	}
	for sx := range sexes {
		opts.Sexes = append(opts.Sexes, sx)
	}
	sort.Strings(opts.Departments)
	sort.Slice(opts.Sexes, func(i, j int) bool { return opts.Sexes[i] < opts.Sexes[j] })

	return &snapshot{run: run, history: history, options: opts}
}

func (s *Store) load() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoRun
	}
	return snap, nil
}

// Run returns the provenance of the current snapshot.
func (s *Store) Run() (RunInfo, error) {
	snap, err := s.load()
	if err != nil {
		return RunInfo{}, err
	}
	r := snap.run
	return RunInfo{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Rule:        r.Rule,
		History:     r.History,
		Targets:     r.Targets,
	}, nil
}

// Projections returns the matching rows in output order.
func (s *Store) Projections(f ProjectionFilter) ([]domain.Projection, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Projection, 0)
	for _, p := range snap.run.Result.Projections {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// History returns the observed rows of one group ordered by year.
func (s *Store) History(key domain.GroupKey) ([]domain.HistoricalRecord, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	records := snap.history[key]
	out := make([]domain.HistoricalRecord, len(records))
	copy(out, records)
	return out, nil
}

// Groups returns every group summary of the current run.
func (s *Store) Groups() ([]domain.GroupSummary, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.GroupSummary, len(snap.run.Result.Groups))
	copy(out, snap.run.Result.Groups)
	return out, nil
}

// Options returns the filterable values of the current run.
func (s *Store) Options() (Options, error) {
	snap, err := s.load()
	if err != nil {
		return Options{}, err
	}
	return snap.options, nil
}
