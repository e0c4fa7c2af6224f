package ingest

import (
	"strings"

	"github.com/c137req/crewbase/internal/roster"
)

// SheetKind identifies which of the four known header shapes a sheet carries.
type SheetKind string

const (
	KindRoster      SheetKind = "roster"       // service data: pay, dates, retirement
	KindGrading     SheetKind = "grading"      // LI grading: cli id/name, current grade
	KindContact     SheetKind = "contact"      // call-serve and permanent addresses
	KindRouteMatrix SheetKind = "route_matrix" // route qualification matrix
	KindUnknown     SheetKind = "unknown"
)

// Classify decides the sheet shape from its header row. Checks run in fixed
// priority order — a grading header wins even when roster markers are also
// present.
func Classify(headers []string) SheetKind {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = roster.Normalize(h)
	}

	if _any(norm, "CURRENTGRADE") || _any(norm, "CLIID") {
		return KindGrading
	}
	if _any(norm, "PRESENTPAY") || _any(norm, "RETIREMENT") {
		return KindRoster
	}
	if _any(norm, "CALLSERVE") || _any(norm, "PERMANENT") {
		return KindContact
	}
	for _, h := range headers {
		if _is_route_header(h) {
			return KindRouteMatrix
		}
	}
	return KindUnknown
}

// IsHeaderRow reports whether a raw row declares the header: some cell whose
// normalized form contains "CREWID". Detection may re-trigger later in a
// sheet, though in practice each sheet declares headers once.
func IsHeaderRow(row []string) bool {
	for _, cell := range row {
		if strings.Contains(roster.Normalize(cell), "CREWID") {
			return true
		}
	}
	return false
}

func _any(norm []string, token string) bool {
	for _, h := range norm {
		if strings.Contains(h, token) {
			return true
		}
	}
	return false
}

// route-section column headers look like "SECTION-CODE 12345": a hyphen
// somewhere, at least 3 digits at the end. no upper bound — longer route
// numbers still end in a 3-digit run.
func _is_route_header(h string) bool {
	h = strings.TrimSpace(h)
	if !strings.Contains(h, "-") {
		return false
	}
	digits := 0
	for i := len(h) - 1; i >= 0; i-- {
		if h[i] < '0' || h[i] > '9' {
			break
		}
		digits++
	}
	return digits >= 3
}
