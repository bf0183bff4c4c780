package syncer

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindow_DefaultsToToday(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 12, 0, time.UTC)

	w, err := ParseWindow("", "", now)
	if err != nil {
		t.Fatalf("ParseWindow() failed: %v", err)
	}

	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) || !w.End.Equal(want) {
		t.Errorf("window = %v, want both bounds %v", w, want)
	}
}

func TestParseWindow_ExplicitBounds(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	w, err := ParseWindow("2024-06-01", "2024-06-07", now)
	if err != nil {
		t.Fatalf("ParseWindow() failed: %v", err)
	}
	if got := w.String(); got != "2024-06-01 to 2024-06-07" {
		t.Errorf("window = %q, want 2024-06-01 to 2024-06-07", got)
	}
}

func TestParseWindow_PartialBounds(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	w, err := ParseWindow("2024-06-01", "", now)
	if err != nil {
		t.Fatalf("ParseWindow() failed: %v", err)
	}
	if got := w.End.Format("2006-01-02"); got != "2024-06-15" {
		t.Errorf("end = %s, want today", got)
	}
}

func TestParseWindow_InvalidFormat(t *testing.T) {
	now := time.Now()

	for _, tc := range []struct{ start, end, bound string }{
		{"06/01/2024", "", "start"},
		{"", "2024-13-40", "end"},
		{"tomorrow", "", "start"},
	} {
		_, err := ParseWindow(tc.start, tc.end, now)
		if err == nil {
			t.Errorf("ParseWindow(%q, %q) succeeded, want error", tc.start, tc.end)
			continue
		}

		var invalid *InvalidWindowError
		if !errors.As(err, &invalid) {
			t.Errorf("error is %T, want *InvalidWindowError", err)
			continue
		}
		if invalid.Bound != tc.bound {
			t.Errorf("Bound = %q, want %q", invalid.Bound, tc.bound)
		}
	}
}
