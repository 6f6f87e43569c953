package report

import (
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	start, end, err := ParseWindow("2020.02.01-2020.03.15")
	if err != nil {
		t.Fatalf("ParseWindow failed: %v", err)
	}

	if want := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	// End is inclusive: the last instant of the end date.
	if !end.After(time.Date(2020, 3, 15, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end %v should cover the whole end date", end)
	}
	if !end.Before(time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end %v should not reach the next day", end)
	}
}

func TestParseWindow_Invalid(t *testing.T) {
	for _, window := range []string{
		"",
		"2020.02.01",
		"2020.02.01-garbage",
		"02.01.2020-03.15.2020",
		"2020.03.15-2020.02.01", // end before start
	} {
		if _, _, err := ParseWindow(window); err == nil {
			t.Errorf("ParseWindow(%q) should fail", window)
		}
	}
}
