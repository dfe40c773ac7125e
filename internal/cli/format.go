// Package cli provides formatting, table rendering, and JSON views for
// terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD cost value to two decimals, widening only
// for very large amounts.
func FormatCost(cost float64) string {
	if cost >= 1000 {
		return "$" + FormatNumber(int64(math.Round(cost)))
	}
	return fmt.Sprintf("$%.2f", cost)
}

// FormatMinutes formats a minute count into a human-readable duration.
// e.g., 125.4 -> "2h 5m", 45.2 -> "45m", 0.5 -> "<1m"
func FormatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "0m"
	}
	total := int64(minutes)
	if total == 0 {
		return "<1m"
	}

	hours := total / 60
	mins := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormatTimeRange renders a block's span as "15:04 - 20:04".
func FormatTimeRange(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + " - " + end.In(loc).Format("15:04")
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatRate formats a tokens-per-minute burn rate.
func FormatRate(tokensPerMinute float64) string {
	return fmt.Sprintf("%.1f tok/min", tokensPerMinute)
}
