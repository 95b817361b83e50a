package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RejectedRecord is an input row excluded from the dataset.
type RejectedRecord struct {
	Line int
	Err  error
}

// Dataset is the parsed historical table. Keys holds every group seen in the
// input, including groups whose rows were all rejected.
type Dataset struct {
	Records  []HistoricalRecord
	Keys     []GroupKey
	Rejected []RejectedRecord
}

// MaxCases bounds a single observed case count. Larger values are rejected
// as malformed rather than extrapolated.
const MaxCases = 1e9

// ParseRecord converts a raw row. Year must be an integer (a trailing ".0" is
// tolerated), cases a finite number in [0, MaxCases]. A row the decoder could
// not split into fields is rejected with its decode error.
func ParseRecord(raw RawRecord) (HistoricalRecord, error) {
	if raw.Err != nil {
		return HistoricalRecord{}, fmt.Errorf("%w: %v", ErrMalformedRecord, raw.Err)
	}
	key, err := parseKey(raw)
	if err != nil {
		return HistoricalRecord{}, err
	}

	year, err := parseYear(raw.Year)
	if err != nil {
		return HistoricalRecord{}, err
	}

	cases, err := parseCases(raw.EstimatedCases)
	if err != nil {
		return HistoricalRecord{}, err
	}

	return HistoricalRecord{
		Year:          year,
		Department:    key.Department,
		Sex:           key.Sex,
		ObservedCases: cases,
	}, nil
}

// ParseRecords converts every raw row and collects the group keys present in
// the input. Rows with a valid department and sex register their group even
// when the year or case count is malformed.
func ParseRecords(raws []RawRecord) Dataset {
	var ds Dataset
	seen := make(map[GroupKey]struct{})

	for _, raw := range raws {
		if key, err := parseKey(raw); err == nil {
			seen[key] = struct{}{}
		}

		rec, err := ParseRecord(raw)
		if err != nil {
			ds.Rejected = append(ds.Rejected, RejectedRecord{Line: raw.Line, Err: err})
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	ds.Keys = make([]GroupKey, 0, len(seen))
	for k := range seen {
		ds.Keys = append(ds.Keys, k)
	}
	sort.Slice(ds.Keys, func(i, j int) bool { return ds.Keys[i].Less(ds.Keys[j]) })

	return ds
}

// Groups buckets the dataset's records by key. Every key in ds.Keys is
// present in the result, possibly with no records.
func (ds Dataset) Groups() map[GroupKey][]HistoricalRecord {
	groups := make(map[GroupKey][]HistoricalRecord, len(ds.Keys))
	for _, k := range ds.Keys {
		groups[k] = nil
	}
	for _, rec := range ds.Records {
		groups[rec.Key()] = append(groups[rec.Key()], rec)
	}
	for k := range groups {
		recs := groups[k]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Year < recs[j].Year })
	}
	return groups
}

func parseKey(raw RawRecord) (GroupKey, error) {
	dept := strings.TrimSpace(raw.Department)
	if dept == "" {
		return GroupKey{}, fmt.Errorf("%w: empty department", ErrMalformedRecord)
	}
	sex, err := ParseSex(raw.Sex)
	if err != nil {
		return GroupKey{}, err
	}
	return GroupKey{Department: dept, Sex: sex}, nil
}

func parseYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	if y, err := strconv.Atoi(value); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: year %q is not an integer", ErrMalformedRecord, value)
	}
	return int(f), nil
}

func parseCases(value string) (float64, error) {
	value = strings.TrimSpace(value)
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: case count %q is not a number", ErrMalformedRecord, value)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative case count %q", ErrMalformedRecord, value)
	}
	if v > MaxCases {
		return 0, fmt.Errorf("%w: case count %q exceeds %g", ErrMalformedRecord, value, float64(MaxCases))
	}
	return v, nil
}
