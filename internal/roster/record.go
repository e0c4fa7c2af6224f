package roster

import "strings"

// Status classifies a route qualification against the current date.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusExpired Status = "EXPIRED"
	StatusUnknown Status = "UNKNOWN"
)

// CrewMaster is a single entry in the crew master table. Every field except
// CrewID is optional — each source sheet shape supplies a different subset,
// and absent fields must never overwrite previously stored values.
type CrewMaster struct {
	// Crew ID — alphabetic lobby prefix + numeric suffix, e.g. "RPH3020".
	CrewID string `json:"crew_id"`

	// Service / roster fields
	CrewName       string `json:"crew_name,omitempty"`
	Designation    string `json:"designation,omitempty"`
	Level          string `json:"level,omitempty"`
	Cadre          string `json:"cadre,omitempty"`
	EmpNo          string `json:"emp_no,omitempty"`
	PresentPay     string `json:"present_pay,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`      // ISO YYYY-MM-DD
	AppointDate    string `json:"appoint_date,omitempty"`    // ISO YYYY-MM-DD
	PromotionDate  string `json:"promotion_date,omitempty"`  // ISO YYYY-MM-DD
	IncrmntDueDate string `json:"incrmnt_due_date,omitempty"`
	RetirementDate string `json:"retirement_date,omitempty"`

	// Grading fields (external LI system)
	CliID        string `json:"cli_id,omitempty"`
	CliName      string `json:"cli_name,omitempty"`
	CurrentGrade string `json:"current_grade,omitempty"`

	// Contact fields
	Mobile           string `json:"mobile,omitempty"`
	CallServeAddress string `json:"call_serve_address,omitempty"`
	PermanentAddress string `json:"permanent_address,omitempty"`

	// Set by the store on every write.
	LastUpdated string `json:"last_updated,omitempty"`
}

// Empty reports whether the record carries no data beyond the key.
func (c CrewMaster) Empty() bool {
	return c.CrewName == "" && c.Designation == "" && c.Level == "" &&
		c.Cadre == "" && c.EmpNo == "" && c.PresentPay == "" &&
		c.BirthDate == "" && c.AppointDate == "" && c.PromotionDate == "" &&
		c.IncrmntDueDate == "" && c.RetirementDate == "" &&
		c.CliID == "" && c.CliName == "" && c.CurrentGrade == "" &&
		c.Mobile == "" && c.CallServeAddress == "" && c.PermanentAddress == ""
}

// RouteQualification records that a crew member is certified on a route
// section until a given date. The (CrewID, SectionCode, RouteNo) triple is
// unique; re-ingestion overwrites ValidTill/Status/SourceFile.
type RouteQualification struct {
	CrewID      string `json:"crew_id"`
	SectionCode string `json:"section_code"`
	RouteNo     string `json:"route_no"`
	ValidTill   string `json:"valid_till,omitempty"` // ISO YYYY-MM-DD, may be empty
	Status      Status `json:"status"`
	SourceFile  string `json:"source_file,omitempty"`
}

// Lobby returns the leading alphabetic prefix of a crew ID ("RPH3020" → "RPH").
func Lobby(crewID string) string {
	return alphaPrefix(crewID)
}

// Division returns the leading alphabetic prefix of a CLI ID ("HWH3463" → "HWH").
func Division(cliID string) string {
	return alphaPrefix(cliID)
}

func alphaPrefix(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, r := range s {
		if r < 'A' || r > 'Z' {
			return s[:i]
		}
	}
	return s
}
