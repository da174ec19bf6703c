package format

import "fmt"

// FmtLatency formats a millisecond latency, switching to seconds past 10s.
func FmtLatency(ms float64) string {
	if ms >= 10_000 {
		return fmt.Sprintf("%.1fs", ms/1000.0)
	}
	return fmt.Sprintf("%.0fms", ms)
}

// FmtPct formats a ratio as a percentage with one decimal.
// A zero denominator renders as "n/a".
func FmtPct(num, den int) string {
	if den == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(num)/float64(den))
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
// The cut lands on a rune boundary.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
