package syncer

import (
	"fmt"
	"time"

	"github.com/agritracer/harvestsync/internal/record"
)

// InvalidWindowError reports a window bound that does not parse as a
// calendar date. It is detected before any network or database interaction.
type InvalidWindowError struct {
	Bound string // "start" or "end"
	Input string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid %s date %q: expected YYYY-MM-DD", e.Bound, e.Input)
}

// Window is the inclusive [Start, End] date range bounding one sync run.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(record.DateLayout), w.End.Format(record.DateLayout))
}

// ParseWindow resolves CLI date bounds into a Window. An empty bound
// defaults to now's calendar date: omitting both means "sync today", not a
// historical backfill. A bound that does not parse as YYYY-MM-DD yields an
// *InvalidWindowError.
func ParseWindow(startStr, endStr string, now time.Time) (Window, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	w := Window{Start: today, End: today}

	if startStr != "" {
		t, err := time.Parse(record.DateLayout, startStr)
		if err != nil {
			return Window{}, &InvalidWindowError{Bound: "start", Input: startStr}
		}
		w.Start = t
	}
	if endStr != "" {
		t, err := time.Parse(record.DateLayout, endStr)
		if err != nil {
			return Window{}, &InvalidWindowError{Bound: "end", Input: endStr}
		}
		w.End = t
	}

	return w, nil
}
