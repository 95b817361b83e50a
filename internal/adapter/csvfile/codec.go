// Package csvfile reads the historical case table and writes the projection
// table in the CSV layout shared with the dashboards.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

// Historical table columns.
const (
	ColYear           = "Anio"
	ColDepartment     = "Departamento"
	ColSex            = "Sexo"
	ColEstimatedCases = "CasosEstimados"
)

// Projection table columns, in output order.
const (
	ColPredicted = "CasosEstimados_Predichos"
	ColBaseline  = "PromHist"
	ColAlert     = "Alerta"
	ColModel     = "Modelo"
)

// ProjectionHeader is the header row written by EncodeProjections.
var ProjectionHeader = []string{ColYear, ColDepartment, ColSex, ColPredicted, ColBaseline, ColAlert, ColModel}

// DecodeHistorical reads a historical table. Columns are located by header
// name so their order is free; extra columns are ignored. A missing column is
// an error, while a short or unparseable row is passed through and left to
// domain.ParseRecords to reject. A row the CSV reader cannot split (a stray
// quote, for example) comes back with Err set instead of aborting the table.
func DecodeHistorical(r io.Reader) ([]domain.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty historical table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header, ColYear, ColDepartment, ColSex, ColEstimatedCases)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			records = append(records, domain.RawRecord{Line: parseErr.StartLine, Err: parseErr.Err})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read historical table: %w", err)
		}
		if isBlank(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		records = append(records, domain.RawRecord{
			Line:           line,
			Year:           cell(row, idx, ColYear),
			Department:     cell(row, idx, ColDepartment),
			Sex:            cell(row, idx, ColSex),
			EstimatedCases: cell(row, idx, ColEstimatedCases),
		})
	}
	return records, nil
}

// EncodeHistorical writes records in the historical layout. Used by the
// synthetic data generator.
func EncodeHistorical(w io.Writer, records []domain.HistoricalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColYear, ColDepartment, ColSex, ColEstimatedCases}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{
			strconv.Itoa(r.Year),
			r.Department,
			string(r.Sex),
			strconv.FormatFloat(r.ObservedCases, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeProjections writes the projection table. PromHist is rounded to one
// decimal and Alerta uses the True/False spelling the dashboards expect.
func EncodeProjections(w io.Writer, projections []domain.Projection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProjectionHeader); err != nil {
		return err
	}
	for i := range projections {
		if err := cw.Write(projectionRow(projections[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func projectionRow(p domain.Projection) []string {
	return []string{
		strconv.Itoa(p.Year),
		p.Department,
		string(p.Sex),
		strconv.Itoa(p.PredictedCases),
		FormatBaseline(p.HistoricalBaseline),
		formatAlert(p.IsAlert),
		string(p.Model),
	}
}

// FormatBaseline renders a baseline with one decimal.
func FormatBaseline(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}

func formatAlert(alert bool) string {
	if alert {
		return "True"
	}
	return "False"
}

// ProjectionRow is a decoded projection table row. Fields stay strings so
// validators can report exactly what was written.
type ProjectionRow struct {
	Line       int
	Year       string
	Department string
	Sex        string
	Predicted  string
	Baseline   string
	Alert      string
	Model      string
}

// DecodeProjections reads a projection table. Modelo is optional so files
// produced before that column existed still load.
func DecodeProjections(r io.Reader) ([]ProjectionRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty projection table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, ColYear, ColDepartment, ColSex, ColPredicted, ColBaseline, ColAlert)
	if err != nil {
		return nil, err
	}

	var rows []ProjectionRow
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read projection table: %w", err)
		}
		if isBlank(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, ProjectionRow{
			Line:       line,
			Year:       cell(row, idx, ColYear),
			Department: cell(row, idx, ColDepartment),
			Sex:        cell(row, idx, ColSex),
			Predicted:  cell(row, idx, ColPredicted),
			Baseline:   cell(row, idx, ColBaseline),
			Alert:      cell(row, idx, ColAlert),
			Model:      cell(row, idx, ColModel),
		})
	}
	return rows, nil
}

// ParseAlert accepts the spellings pandas and Go emit for booleans.
func ParseAlert(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value %q", ColAlert, value)
	}
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	return idx, nil
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
