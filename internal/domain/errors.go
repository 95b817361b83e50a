package domain

import "errors"

var (
	// ErrMalformedRecord marks an input row that could not be converted into a
	// HistoricalRecord.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoBaseline is returned when a group has no record inside the
	// historical window. Callers must treat it as "no baseline available",
	// never as zero.
	ErrNoBaseline = errors.New("no records inside historical window")

	// ErrNoRecords is returned when a trend is requested for an empty group.
	ErrNoRecords = errors.New("group has no records")
)
