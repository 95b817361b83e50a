package domain

import "github.com/jonboulle/clockwork"

// clock stamps Run.GeneratedAt and nothing else. Projections and run IDs are
// content-derived, so swapping it only changes the recorded timestamp.
var clock = clockwork.NewRealClock()

// SetClock replaces the run timestamp source; nil restores wall time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
