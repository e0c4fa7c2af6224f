package ingest

import (
	"regexp"
	"strings"

	"github.com/c137req/crewbase/internal/roster"
)

// SkipStats counts soft-failed values during extraction. Malformed dates and
// unrecognized qualification cells are expected gaps in real source files,
// not errors — but the counts are kept so ingestion quality is observable.
type SkipStats struct {
	MissingCrewID  int // data rows dropped for lack of a crew id
	BadDates       int // date cells that failed to parse
	UnmatchedCells int // qualification cells that matched no known pattern
	NotValid       int // qualifications filtered as EXPIRED/UNKNOWN
}

type _row_ctx struct {
	headers []string
	cols    *ColumnMap
	index   map[string]int // header label → column index
}

func _new_row_ctx(headers []string, cols *ColumnMap) *_row_ctx {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return &_row_ctx{headers: headers, cols: cols, index: idx}
}

// _get reads the cell under a mapped header label, "" when unmapped or the
// row is short.
func (rc *_row_ctx) _get(row []string, label string) string {
	if label == "" {
		return ""
	}
	i, ok := rc.index[label]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (rc *_row_ctx) _crew_id(row []string) string {
	return rc._get(row, rc.cols.CrewID)
}

// _extract_crew builds the partial crew record for a single-record shape.
// Date fields soft-fail through ParseDate; failures are counted, never raised.
func (rc *_row_ctx) _extract_crew(row []string, kind SheetKind, stats *SkipStats) roster.CrewMaster {
	rec := roster.CrewMaster{CrewID: rc._crew_id(row)}

	parse_date := func(label string) string {
		raw := rc._get(row, label)
		if raw == "" {
			return ""
		}
		iso, ok := roster.ParseDate(raw)
		if !ok {
			stats.BadDates++
			return ""
		}
		return iso
	}

	switch kind {
	case KindRoster:
		rec.CrewName = rc._get(row, rc.cols.CrewName)
		rec.Designation = rc._get(row, rc.cols.Designation)
		rec.Level = rc._get(row, rc.cols.Level)
		rec.Cadre = rc._get(row, rc.cols.Cadre)
		rec.EmpNo = rc._get(row, rc.cols.EmpNo)
		rec.PresentPay = rc._get(row, rc.cols.PresentPay)
		rec.BirthDate = parse_date(rc.cols.BirthDate)
		rec.AppointDate = parse_date(rc.cols.AppointDate)
		rec.PromotionDate = parse_date(rc.cols.PromotionDate)
		rec.IncrmntDueDate = parse_date(rc.cols.IncrmntDue)
		rec.RetirementDate = parse_date(rc.cols.RetirementDate)
	case KindGrading:
		rec.CliID = rc._get(row, rc.cols.CliID)
		rec.CliName = rc._get(row, rc.cols.CliName)
		rec.CurrentGrade = rc._get(row, rc.cols.CurrentGrade)
	case KindContact:
		rec.Mobile = rc._get(row, rc.cols.Mobile)
		rec.CallServeAddress = rc._get(row, rc.cols.CallServe)
		rec.PermanentAddress = rc._get(row, rc.cols.PermanentAddr)
	}
	return rec
}

// qualification cells read "Y/31-12-2025" or "Y*/31-12-2025"; anything else
// is "no qualification recorded".
var _qual_cell_re = regexp.MustCompile(`Y\*?/(\d{2}-\d{2}-\d{4})`)

// _extract_routes scans the hyphenated columns of a route-matrix row and
// returns the VALID qualifications. Cells marked "N", empty cells, unparsable
// cells, and qualifications already expired are all skipped.
func (rc *_row_ctx) _extract_routes(row []string, crew_id, source_file, today string, stats *SkipStats) []roster.RouteQualification {
	var quals []roster.RouteQualification
	for i, label := range rc.headers {
		if !strings.Contains(label, "-") {
			continue
		}
		if i >= len(row) {
			break
		}
		cell := strings.TrimSpace(row[i])
		if cell == "" || cell == "N" {
			continue
		}

		m := _qual_cell_re.FindStringSubmatch(cell)
		if m == nil {
			stats.UnmatchedCells++
			continue
		}
		valid_till, ok := roster.ParseDate(m[1])
		if !ok {
			stats.BadDates++
			continue
		}
		status := roster.DeriveStatus(valid_till, today)
		if status != roster.StatusValid {
			stats.NotValid++
			continue
		}

		section, route_no := _split_route_label(label)
		quals = append(quals, roster.RouteQualification{
			CrewID:      crew_id,
			SectionCode: section,
			RouteNo:     route_no,
			ValidTill:   valid_till,
			Status:      status,
			SourceFile:  source_file,
		})
	}
	return quals
}

// _split_route_label splits "ABC-DEF 12345" on the first space into section
// code and route number. Labels like "ABC-12345" carry the route number after
// the hyphen instead, so without a space the first hyphen splits.
func _split_route_label(label string) (string, string) {
	label = strings.TrimSpace(label)
	if section, route_no, found := strings.Cut(label, " "); found {
		return section, strings.TrimSpace(route_no)
	}
	section, route_no, _ := strings.Cut(label, "-")
	return section, route_no
}
