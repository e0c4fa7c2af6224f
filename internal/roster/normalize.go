package roster

import (
	"strings"
	"time"
)

// Normalize uppercases s and strips every character outside A-Z0-9.
// Used for fuzzy matching of header names and status text. Total: empty
// input yields the empty string.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDate converts "DD-MM-YYYY" or "DD/MM/YYYY" to "YYYY-MM-DD".
// Malformed input is not an error — the second return is false and the
// caller treats the value as absent.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.ReplaceAll(s, "/", "-")
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", false
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) != 2 || len(month) != 2 || len(year) != 4 {
		return "", false
	}
	for _, p := range parts {
		for _, r := range p {
			if r < '0' || r > '9' {
				return "", false
			}
		}
	}
	return year + "-" + month + "-" + day, true
}

// DeriveStatus classifies a valid-till date against today. Both dates are
// ISO strings, so lexical and calendar comparison are equivalent.
func DeriveStatus(validTill, today string) Status {
	if validTill == "" {
		return StatusUnknown
	}
	if validTill >= today {
		return StatusValid
	}
	return StatusExpired
}

// DeriveStatusNow is DeriveStatus against the wall clock.
func DeriveStatusNow(validTill string) Status {
	return DeriveStatus(validTill, Today())
}

// Today returns the current UTC date as an ISO string.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
