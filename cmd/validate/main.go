// Command validate checks the integrity of a produced projection table:
// column presence and types, value ranges, per-group consistency, the share
// of groups whose projection varies year over year, and the alert ratio.
// Variability and alert phases only warn; any other failure exits 1.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -input predicciones_alerta_vih_2025_2030.csv \
//	  -target-start 2025 -target-end 2030
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

func main() {
	input := flag.String("input", "predicciones_alerta_vih_2025_2030.csv", "projection CSV to validate")
	targetStart := flag.Int("target-start", 2025, "first projected year")
	targetEnd := flag.Int("target-end", 2030, "last projected year")
	flag.Parse()

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open projections: %v\n", err)
		os.Exit(1)
	}

	targets := domain.YearRange{Start: *targetStart, End: *targetEnd}
	code := run(f, targets, os.Stdout)
	f.Close()
	if code != 0 {
		os.Exit(code)
	}
}

func run(r io.Reader, targets domain.YearRange, out io.Writer) int {
	fmt.Fprintln(out, "=== Projection Table Validation ===")
	fmt.Fprintln(out)

	rows, err := csvfile.DecodeProjections(r)
	if err != nil {
		fmt.Fprintf(out, "FATAL: decode projections: %v\n", err)
		return 1
	}

	schema, parsed := validateSchema(rows)
	phases := []*phase{
		schema,
		validateInvariants(parsed, targets),
		validateVariability(parsed),
		validateAlerts(parsed),
	}

	allPassed := true
	for _, p := range phases {
		fmt.Fprintf(out, "  %-28s %s\n", p.name, p.status())
		if !p.passed() {
			allPassed = false
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d read, %d parsed, %d groups\n", len(rows), len(parsed), len(groupRows(parsed)))

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Fprintf(out, "  %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}
