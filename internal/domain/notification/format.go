package notification

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// TimeAgo renders t relative to now for inbox display.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	switch days := int(diff / day); {
	case days == 0:
		if mins := int(diff / time.Minute); mins < 1 {
			return "Just now"
		} else if mins < 60 {
			return plural(mins, "minute") + " ago"
		}
		return plural(int(diff/time.Hour), "hour") + " ago"
	case days == 1:
		return "Yesterday at " + t.Format("3:04 PM")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// DateGroup buckets t into Today, Yesterday or its calendar date.
func DateGroup(t, now time.Time) string {
	switch int(now.Sub(t) / day) {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
