package utils

import "fmt"

// FormatPercent renders part over total as a percentage string with one
// decimal place, matching what the mobile clients render verbatim. A zero
// total yields "0.0" instead of NaN.
func FormatPercent(part, total int64) string {
	if total == 0 {
		return "0.0"
	}

	return fmt.Sprintf("%.1f", float64(part)*100/float64(total))
}
