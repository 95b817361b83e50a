// Command simulate writes illustrative, non-authoritative data. It can
// synthesize a historical dataset for environments without a real source,
// and it can produce a random-noise scenario projection table labeled
// Modelo=simulado. Output is reproducible for a given seed.
//
// Usage:
//
//	go run ./cmd/simulate \
//	  -history-out data/DATASET_VIH.csv \
//	  -projections-out data/predicciones_simuladas.csv \
//	  -seed 42
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"github.com/couchcryptid/hiv-forecast-service/internal/simulate"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	input := flag.String("input", "", "historical CSV to simulate projections from (defaults to the generated history)")
	historyOut := flag.String("history-out", "", "output path for a synthetic historical CSV")
	projectionsOut := flag.String("projections-out", "", "output path for the simulated projection CSV")
	seed := flag.Uint64("seed", 42, "random seed")
	noise := flag.Float64("noise", 0.1, "relative noise of synthetic history values")
	departments := flag.String("departments", "", "comma-separated departments for synthetic history (default: all)")
	historyStart := flag.Int("history-start", 2015, "first historical year")
	historyEnd := flag.Int("history-end", 2024, "last historical year")
	targetStart := flag.Int("target-start", 2025, "first projected year")
	targetEnd := flag.Int("target-end", 2030, "last projected year")
	flag.Parse()

	if *historyOut == "" && *projectionsOut == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -history-out, -projections-out is required")
	}
	if *projectionsOut != "" && *input == "" && *historyOut == "" {
		return fmt.Errorf("-projections-out needs -input or -history-out")
	}

	history := domain.YearRange{Start: *historyStart, End: *historyEnd}
	targets := domain.YearRange{Start: *targetStart, End: *targetEnd}
	if history.Start > history.End || targets.Start > targets.End {
		return fmt.Errorf("year ranges must have start <= end")
	}

	var generated []byte
	if *historyOut != "" {
		records := simulate.History(simulate.HistoryOptions{
			Departments: splitList(*departments),
			Years:       history,
			Noise:       *noise,
			Seed:        *seed,
		})
		var buf bytes.Buffer
		if err := csvfile.EncodeHistorical(&buf, records); err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		if err := os.WriteFile(*historyOut, buf.Bytes(), 0o644); err != nil { //nolint:gosec // output fixture
			return fmt.Errorf("write history: %w", err)
		}
		generated = buf.Bytes()
		log.Printf("synthetic history: %d records -> %s", len(records), *historyOut)
	}

	if *projectionsOut == "" {
		return nil
	}

	var raws []domain.RawRecord
	var err error
	if *input != "" {
		raws, err = readHistory(*input)
	} else {
		raws, err = csvfile.DecodeHistorical(bytes.NewReader(generated))
	}
	if err != nil {
		return err
	}

	ds := domain.ParseRecords(raws)
	if len(ds.Rejected) > 0 {
		log.Printf("skipped %d malformed rows", len(ds.Rejected))
	}

	projections := simulate.NewSimulator(history, targets, *seed).Project(ds)

	var buf bytes.Buffer
	if err := csvfile.EncodeProjections(&buf, projections); err != nil {
		return fmt.Errorf("encode projections: %w", err)
	}
	if err := os.WriteFile(*projectionsOut, buf.Bytes(), 0o644); err != nil { //nolint:gosec // output fixture
		return fmt.Errorf("write projections: %w", err)
	}

	alerts := 0
	for _, p := range projections {
		if p.IsAlert {
			alerts++
		}
	}
	log.Printf("simulated projections: %d rows, %d alerts -> %s", len(projections), alerts, *projectionsOut)
	return nil
}

func readHistory(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	raws, err := csvfile.DecodeHistorical(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return raws, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
