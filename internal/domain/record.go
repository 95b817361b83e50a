package domain

import (
	"fmt"
	"strings"
)

// Sex is the closed set of values accepted in the Sexo column.
type Sex string

const (
	SexMale   Sex = "Masculino"
	SexFemale Sex = "Femenino"
)

// ParseSex normalizes a Sexo cell. Accepts the full Spanish labels in any
// case plus the single-letter forms "M" and "F".
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "masculino", "m":
		return SexMale, nil
	case "femenino", "f":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("%w: unknown sex %q", ErrMalformedRecord, value)
	}
}

// GroupKey identifies a (department, sex) series.
type GroupKey struct {
	Department string `json:"department"`
	Sex        Sex    `json:"sex"`
}

func (k GroupKey) String() string {
	return k.Department + "|" + string(k.Sex)
}

// Less orders keys by department, then sex.
func (k GroupKey) Less(other GroupKey) bool {
	if k.Department != other.Department {
		return k.Department < other.Department
	}
	return k.Sex < other.Sex
}

// RawRecord is one row of the historical table as read from the source,
// before any type conversion. Line is the 1-based line number in the file.
// Err is set when the row could not be decoded at all; its fields are then
// empty.
type RawRecord struct {
	Line           int    `json:"-"`
	Year           string `json:"Anio"`
	Department     string `json:"Departamento"`
	Sex            string `json:"Sexo"`
	EstimatedCases string `json:"CasosEstimados"`
	Err            error  `json:"-"`
}

// HistoricalRecord is a parsed, validated row of the historical table.
type HistoricalRecord struct {
	Year          int     `json:"year"`
	Department    string  `json:"department"`
	Sex           Sex     `json:"sex"`
	ObservedCases float64 `json:"observed_cases"`
}

// Key returns the group this record belongs to.
func (r HistoricalRecord) Key() GroupKey {
	return GroupKey{Department: r.Department, Sex: r.Sex}
}

// YearRange is a closed interval of years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether year lies inside the range, bounds included.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Years lists every year of the range in ascending order.
func (r YearRange) Years() []int {
	if r.End < r.Start {
		return nil
	}
	years := make([]int, 0, r.End-r.Start+1)
	for y := r.Start; y <= r.End; y++ {
		years = append(years, y)
	}
	return years
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
