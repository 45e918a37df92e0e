package cmd

import (
	"fmt"
	"time"
)

// formatTTL renders a Redis TTL the way `cache keys`/`cache stats`
// display it: seconds under a minute, minutes under an hour, hours
// beyond that, or "No expiry" for a negative TTL.
func formatTTL(ttl time.Duration) string {
	if ttl < 0 {
		return "No expiry"
	}
	if ttl < time.Minute {
		return fmt.Sprintf("%ds", int(ttl.Seconds()))
	}
	if ttl < time.Hour {
		return fmt.Sprintf("%dm", int(ttl.Minutes()))
	}
	return fmt.Sprintf("%.1fh", ttl.Hours())
}

func humanizeModTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	ago := time.Since(t)
	return fmt.Sprintf("%s (%s ago)", t.Format("2006-01-02 15:04"), ago.Round(time.Minute))
}
