package feed

import (
	"fmt"
	"time"
)

const absoluteLayout = "Jan 2, 2006 3:04 PM"

// FormatRelative renders t as seen from now. Timestamps a week or more in
// the past fall back to an absolute date.
func FormatRelative(t, now time.Time) string {
	elapsed := now.Sub(t)
	switch {
	case elapsed < time.Minute:
		return "Just now"
	case elapsed < time.Hour:
		return plural(int(elapsed/time.Minute), "minute")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed/time.Hour), "hour")
	case elapsed < 7*24*time.Hour:
		return plural(int(elapsed/(24*time.Hour)), "day")
	default:
		return t.Format(absoluteLayout)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
