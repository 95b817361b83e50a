package csvfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

// Source reads the historical table from a local file.
// It implements pipeline.Extractor.
type Source struct {
	path string
}

// NewSource creates a file-backed historical source.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Extract opens and decodes the file. A missing or unreadable file is
// returned as an error; no substitute data is produced.
func (s *Source) Extract(_ context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open historical table: %w", err)
	}
	defer f.Close()

	records, err := DecodeHistorical(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

// Sink writes the projection table to a local file.
// It implements pipeline.Loader.
type Sink struct {
	path   string
	logger *slog.Logger
}

// NewSink creates a file-backed projection sink.
func NewSink(path string, logger *slog.Logger) *Sink {
	return &Sink{path: path, logger: logger}
}

func (s *Sink) Name() string { return "csv" }

// Load replaces the output file with the run's projections. The table is
// written to a temporary file in the same directory and renamed into place,
// so readers never observe a partial table.
func (s *Sink) Load(_ context.Context, run domain.Run) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".projections-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := EncodeProjections(tmp, run.Result.Projections); err != nil {
		tmp.Close()
		return fmt.Errorf("encode projections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	s.logger.Info("projection table written", "path", s.path, "rows", len(run.Result.Projections), "run_id", run.ID)
	return nil
}
