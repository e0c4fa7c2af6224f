package ingest

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/c137req/crewbase/internal/roster"
)

// ColumnMap resolves canonical crew fields to the actual header label of a
// sheet. An empty value means the field has no column in this sheet.
type ColumnMap struct {
	CrewID         string
	CrewName       string
	Designation    string
	Level          string
	Cadre          string
	EmpNo          string
	PresentPay     string
	BirthDate      string
	AppointDate    string
	PromotionDate  string
	IncrmntDue     string
	RetirementDate string

	CliID        string
	CliName      string
	CurrentGrade string

	Mobile        string
	CallServe     string
	PermanentAddr string
}

// headers are searched left to right; the first header whose normalized form
// contains any of the field's synonyms wins the field. Matching is substring
// containment on normalized text, so "CREWNAME_X" matches "CREWNAME".
// Permissive on purpose — header labels drift between source files.
var _field_synonyms = []struct {
	field    string
	synonyms []string
	assign   func(*ColumnMap, string)
}{
	{"crew_id", []string{"CREWID"}, func(m *ColumnMap, h string) { m.CrewID = h }},
	{"crew_name", []string{"CREWNAME", "NAME"}, func(m *ColumnMap, h string) { m.CrewName = h }},
	{"designation", []string{"CREWDESG", "DESIG"}, func(m *ColumnMap, h string) { m.Designation = h }},
	{"level", []string{"LEVEL"}, func(m *ColumnMap, h string) { m.Level = h }},
	{"cadre", []string{"CADRE"}, func(m *ColumnMap, h string) { m.Cadre = h }},
	{"emp_no", []string{"EMPNO"}, func(m *ColumnMap, h string) { m.EmpNo = h }},
	{"present_pay", []string{"PRESENTPAY"}, func(m *ColumnMap, h string) { m.PresentPay = h }},
	{"birth_date", []string{"BIRTH"}, func(m *ColumnMap, h string) { m.BirthDate = h }},
	{"appoint_date", []string{"APPOINT"}, func(m *ColumnMap, h string) { m.AppointDate = h }},
	{"promotion_date", []string{"PROMOTION"}, func(m *ColumnMap, h string) { m.PromotionDate = h }},
	{"incrmnt_due_date", []string{"INCRMNT"}, func(m *ColumnMap, h string) { m.IncrmntDue = h }},
	{"retirement_date", []string{"RETIREMENT"}, func(m *ColumnMap, h string) { m.RetirementDate = h }},
	{"cli_id", []string{"CLIID"}, func(m *ColumnMap, h string) { m.CliID = h }},
	{"cli_name", []string{"CLINAME"}, func(m *ColumnMap, h string) { m.CliName = h }},
	{"current_grade", []string{"CURRENTGRADE"}, func(m *ColumnMap, h string) { m.CurrentGrade = h }},
	{"mobile", []string{"MOBILE"}, func(m *ColumnMap, h string) { m.Mobile = h }},
	{"call_serve_address", []string{"CALLSERVE"}, func(m *ColumnMap, h string) { m.CallServe = h }},
	{"permanent_address", []string{"PERMANENT"}, func(m *ColumnMap, h string) { m.PermanentAddr = h }},
}

// MapColumns builds the field → header lookup for a detected header row.
// When more than one header matches a field's winning synonym the first is
// taken and the ambiguity is logged — source files have been seen carrying
// similarly-named but distinct columns.
func MapColumns(headers []string, log *logrus.Logger) *ColumnMap {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = roster.Normalize(h)
	}

	m := &ColumnMap{}
	for _, fs := range _field_synonyms {
		label, extra := _find_col(headers, norm, fs.synonyms)
		if label == "" {
			continue
		}
		if len(extra) > 0 && log != nil {
			log.WithFields(logrus.Fields{
				"field":  fs.field,
				"chosen": label,
				"also":   strings.Join(extra, ", "),
			}).Warn("ambiguous column match, taking first")
		}
		fs.assign(m, label)
	}
	return m
}

// _find_col returns the winning header label (leftmost header containing any
// synonym) plus the later labels that would also have matched.
func _find_col(headers, norm []string, synonyms []string) (string, []string) {
	var matched []string
	for i, h := range norm {
		for _, syn := range synonyms {
			if strings.Contains(h, roster.Normalize(syn)) {
				matched = append(matched, headers[i])
				break
			}
		}
	}
	if len(matched) == 0 {
		return "", nil
	}
	return matched[0], matched[1:]
}
