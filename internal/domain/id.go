package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ProjectionID derives a stable ID from department|sex|year, so re-running a
// forecast yields the same message keys downstream.
func ProjectionID(key GroupKey, year int) string {
	input := fmt.Sprintf("%s|%s|%d", key.Department, key.Sex, year)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// RunID hashes the full projection table. Identical inputs and configuration
// produce the same run ID.
func RunID(projections []Projection) string {
	h := sha256.New()
	for _, p := range projections {
		h.Write([]byte(p.ID))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.Itoa(p.PredictedCases)))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatFloat(p.HistoricalBaseline, 'g', -1, 64)))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatBool(p.IsAlert)))
		h.Write([]byte{'|'})
		h.Write([]byte(p.Model))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
