package timer

import "fmt"

// FormatClock renders seconds as MM:SS with two-digit fields.
// Negative input renders as 00:00. Minutes are not capped at 59.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
