package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"github.com/couchcryptid/hiv-forecast-service/internal/observability"
)

// ErrEmptyDataset is returned when the source yields no usable rows at all.
var ErrEmptyDataset = errors.New("historical dataset is empty")

// Extractor reads the raw historical table from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawRecord, error)
}

// Loader writes a completed run to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, run domain.Run) error
}

// Pipeline orchestrates a single extract-forecast-load pass.
type Pipeline struct {
	extractor  Extractor
	forecaster domain.Forecaster
	loaders    []Loader
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, f domain.Forecaster, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:  e,
		forecaster: f,
		loaders:    loaders,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no forecast run has completed yet")
	}
	return nil
}

// Run extracts the source, forecasts every group, and loads the result into
// every loader. Source errors abort the run. Every loader is attempted even
// when an earlier one fails; their errors are joined.
func (p *Pipeline) Run(ctx context.Context) (domain.Run, error) {
	start := time.Now()
	p.logger.Info("forecast run started",
		"history", p.forecaster.History.String(),
		"targets", p.forecaster.Targets.String(),
		"rule", p.forecaster.Rule.String(),
	)

	run, err := p.run(ctx)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.LastRunSuccess.Set(0)
		return run, err
	}

	p.metrics.LastRunSuccess.Set(1)
	p.ready.Store(true)
	p.logger.Info("forecast run completed",
		"run_id", run.ID,
		"projections", len(run.Result.Projections),
		"alerts", run.Result.Alerts(),
		"duration", time.Since(start),
	)
	return run, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.Run, error) {
	raws, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Run{}, fmt.Errorf("extract: %w", err)
	}

	ds := domain.ParseRecords(raws)
	p.metrics.RecordsLoaded.Add(float64(len(ds.Records)))
	p.metrics.RecordsRejected.Add(float64(len(ds.Rejected)))
	for _, r := range ds.Rejected {
		p.logger.Warn("row rejected", "line", r.Line, "error", r.Err)
	}
	if len(ds.Keys) == 0 {
		return domain.Run{}, ErrEmptyDataset
	}

	res := p.forecaster.Forecast(ds)
	p.observe(res)

	run := p.forecaster.NewRun(res)
	run.Observed = ds.Records

	if err := p.load(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// observe logs degraded groups and records per-run counters.
func (p *Pipeline) observe(res domain.Result) {
	for _, g := range res.Groups {
		p.metrics.Groups.WithLabelValues(string(g.Status)).Inc()
		switch g.Status {
		case domain.StatusConstant:
			p.logger.Warn("constant projection, fewer than two distinct years",
				"department", g.Key.Department,
				"sex", g.Key.Sex,
				"status", g.Status,
				"observations", g.Observations,
			)
		case domain.StatusInsufficient:
			p.logger.Warn("group skipped",
				"department", g.Key.Department,
				"sex", g.Key.Sex,
				"status", g.Status,
				"reason", g.Reason,
			)
		}
	}
	p.metrics.Projections.Add(float64(len(res.Projections)))
	p.metrics.Alerts.Add(float64(res.Alerts()))
}

func (p *Pipeline) load(ctx context.Context, run domain.Run) error {
	var errs []error
	for _, l := range p.loaders {
		if err := l.Load(ctx, run); err != nil {
			p.logger.Error("load failed", "sink", l.Name(), "error", err)
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			errs = append(errs, fmt.Errorf("load %s: %w", l.Name(), err))
			continue
		}
		p.logger.Debug("run loaded", "sink", l.Name(), "run_id", run.ID)
	}
	return errors.Join(errs...)
}
