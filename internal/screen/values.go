package screen

import (
	"strings"
	"time"
)

// compactDate strips everything but digits from a raw report date, yielding
// the yyyymmdd form regardless of which separator the provider used.
func compactDate(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// parseDate parses a compacted yyyymmdd date.
func parseDate(raw string) (time.Time, bool) {
	s := compactDate(raw)
	if len(s) != 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// isAnnual reports whether a report date is a fiscal year end (12-31).
func isAnnual(raw string) bool {
	return strings.HasSuffix(compactDate(raw), "1231")
}

// reportYear extracts the four-digit year from a report date, or 0.
func reportYear(raw string) int {
	s := compactDate(raw)
	if len(s) < 4 {
		return 0
	}
	year := 0
	for _, r := range s[:4] {
		year = year*10 + int(r-'0')
	}
	return year
}
