// Package clock provides the time source and fixed-timezone display
// formatting used across the tracker.
package clock

import (
	"fmt"
	"time"
)

// Clock is the time source injected into components that stamp events.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the OS clock, normalized to UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// displayLayout renders day/month/year with a 12-hour clock, e.g.
// "02/09/2026, 3:04:05 PM".
const displayLayout = "02/01/2006, 3:04:05 PM"

// Formatter renders instants in one named timezone for human display.
type Formatter struct {
	loc *time.Location
}

// NewFormatter loads the named zone (e.g. "Asia/Kolkata").
func NewFormatter(zone string) (*Formatter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return &Formatter{loc: loc}, nil
}

// Display returns t rendered in the formatter's zone.
func (f *Formatter) Display(t time.Time) string {
	return t.In(f.loc).Format(displayLayout)
}
