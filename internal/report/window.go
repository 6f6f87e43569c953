package report

import (
	"fmt"
	"strings"
	"time"
)

const windowLayout = "2006.01.02"

// ParseWindow parses a date window of the form YYYY.MM.DD-YYYY.MM.DD.
// The end date is inclusive: the returned end timestamp is the final
// instant of that day.
func ParseWindow(window string) (start, end time.Time, err error) {
	parts := strings.SplitN(window, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window %q: want YYYY.MM.DD-YYYY.MM.DD", window)
	}

	start, err = time.ParseInLocation(windowLayout, parts[0], time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start %q: %w", parts[0], err)
	}
	end, err = time.ParseInLocation(windowLayout, parts[1], time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end %q: %w", parts[1], err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s precedes start %s", parts[1], parts[0])
	}

	end = end.Add(24*time.Hour - time.Nanosecond)
	return start, end, nil
}
