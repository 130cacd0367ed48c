// Package format renders backend values for terminal and digest output.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// RelativeTime describes t relative to now, e.g. "5 minutes ago".
// Anything older than a week is shown as a date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
	return t.Format("2006-01-02")
}

// Number abbreviates large counts: 999, 1.2K, 3.4M
func Number(n int64) string {
	switch {
	case n >= 1_000_000 || n <= -1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000 || n <= -1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// Truncate shortens s to at most n runes, appending "..." when cut
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

var sourceLabels = map[string]string{
	"twitter": "Twitter",
	"youtube": "YouTube",
	"blog":    "Blog/RSS",
}

var sourceColors = map[string]string{
	"twitter": "#1DA1F2",
	"youtube": "#FF0000",
	"blog":    "#FF8C00",
}

// SourceLabel returns the display name of a content source
func SourceLabel(source string) string {
	if l, ok := sourceLabels[source]; ok {
		return l
	}
	return source
}

// SourceColor returns the brand color of a content source
func SourceColor(source string) string {
	if c, ok := sourceColors[source]; ok {
		return c
	}
	return "#6B7280"
}

// ImportanceLabel buckets an AI importance score
func ImportanceLabel(score *float64) string {
	switch {
	case score == nil:
		return "unrated"
	case *score >= 0.8:
		return "important"
	case *score >= 0.5:
		return "normal"
	}
	return "low"
}

// Duration formats a duration in a human-friendly way (e.g., "2 days, 3 hours and 45 minutes").
// Seconds are only shown when the duration is under a minute.
func Duration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 && seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
