package core

import (
	"strconv"
	"time"
)

// CheckFormTiming validates the hidden form-load timestamp (milliseconds
// since epoch) against the submission time. The check fails open: a missing
// or malformed timestamp passes, for clients that never rendered the field.
func CheckFormTiming(raw string, now time.Time, minTime, maxAge time.Duration) Verdict {
	if raw == "" {
		return NotSpam
	}

	loadMillis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Malformed timestamp is anomalous but not conclusive
		return NotSpam
	}

	elapsed := now.Sub(time.UnixMilli(loadMillis))

	if elapsed < minTime {
		return Verdict{IsSpam: true, Reason: "Form submitted too quickly. Please try again."}
	}

	if elapsed > maxAge {
		return Verdict{IsSpam: true, Reason: "Form session expired. Please reload the page and try again."}
	}

	return NotSpam
}
