package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"

	"github.com/c137req/crewbase/internal/roster"
)

// Suggestion is one autocomplete hit.
type Suggestion struct {
	CrewID      string `json:"crew_id"`
	CrewName    string `json:"crew_name"`
	Designation string `json:"designation"`
	Mobile      string `json:"mobile"`
}

// Profile is a full crew record with its route qualifications.
type Profile struct {
	roster.CrewMaster
	Routes []roster.RouteQualification `json:"routes"`
}

// Suggest searches crew id, name, designation and mobile for q, ranking
// prefix matches first. Lobby filters on the crew-id alphabetic prefix,
// division on the cli-id prefix; both are exact prefix-part matches, checked
// in Go because sqlite has no regex substring extraction.
func (s *Store) Suggest(ctx context.Context, q, lobby, desig, division string, limit int) ([]Suggestion, error) {
	if q == "" {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = 12
	}

	contains := "%" + q + "%"
	prefix := q + "%"

	query := `
		SELECT crew_id,
		       COALESCE(crew_name,''),
		       COALESCE(designation,''),
		       COALESCE(mobile,''),
		       COALESCE(cli_id,'')
		FROM crew_master
		WHERE (crew_id LIKE ?1 OR crew_name LIKE ?1 OR designation LIKE ?1 OR mobile LIKE ?1)`
	args := []any{contains, prefix}
	if desig != "" {
		query += " AND designation = ?3"
		args = append(args, desig)
	}
	query += `
		ORDER BY CASE
			WHEN crew_id LIKE ?2 THEN 1
			WHEN crew_name LIKE ?2 THEN 2
			WHEN designation LIKE ?2 THEN 3
			WHEN mobile LIKE ?2 THEN 4
			ELSE 5
		END, crew_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("suggest query failed: %w", err)
	}
	defer rows.Close()

	out := []Suggestion{}
	for rows.Next() {
		var sg Suggestion
		var cli_id string
		if err := rows.Scan(&sg.CrewID, &sg.CrewName, &sg.Designation, &sg.Mobile, &cli_id); err != nil {
			return nil, fmt.Errorf("suggest scan failed: %w", err)
		}
		if lobby != "" && roster.Lobby(sg.CrewID) != lobby {
			continue
		}
		if division != "" && roster.Division(cli_id) != division {
			continue
		}
		out = append(out, sg)
		if len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// Lobbies returns the distinct crew-id alphabetic prefixes, optionally
// restricted to crews whose cli_id mentions the division. One- and
// zero-letter prefixes are junk rows and filtered out.
func (s *Store) Lobbies(ctx context.Context, division string) ([]string, error) {
	query := "SELECT DISTINCT crew_id FROM crew_master WHERE crew_id IS NOT NULL"
	var args []any
	if division != "" {
		query += " AND cli_id LIKE ?"
		args = append(args, "%"+division+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lobby query failed: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var crew_id string
		if err := rows.Scan(&crew_id); err != nil {
			return nil, fmt.Errorf("lobby scan failed: %w", err)
		}
		if l := roster.Lobby(crew_id); len(l) >= 2 {
			seen[l] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lobbies := make([]string, 0, len(seen))
	for l := range seen {
		lobbies = append(lobbies, l)
	}
	sort.Strings(lobbies)
	return lobbies, nil
}

// Designations returns the distinct non-empty designations, sorted.
func (s *Store) Designations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT designation FROM crew_master WHERE designation IS NOT NULL AND designation <> '' ORDER BY designation")
	if err != nil {
		return nil, fmt.Errorf("designation query failed: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("designation scan failed: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Meta bundles the dropdown data for the search UI.
type Meta struct {
	Designations []string `json:"designations"`
	Lobbies      []string `json:"lobbies"`
}

var _crew_id_re = regexp.MustCompile(`[0-9]{4}$`)

// FetchMeta returns designations plus the lobbies of well-formed crew ids
// (alphabetic prefix + 4-digit suffix).
func (s *Store) FetchMeta(ctx context.Context) (*Meta, error) {
	desigs, err := s.Designations(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT crew_id FROM crew_master WHERE crew_id IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("meta query failed: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var crew_id string
		if err := rows.Scan(&crew_id); err != nil {
			return nil, fmt.Errorf("meta scan failed: %w", err)
		}
		if !_crew_id_re.MatchString(crew_id) {
			continue
		}
		if l := roster.Lobby(crew_id); l != "" {
			seen[l] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lobbies := make([]string, 0, len(seen))
	for l := range seen {
		lobbies = append(lobbies, l)
	}
	sort.Strings(lobbies)

	return &Meta{Designations: desigs, Lobbies: lobbies}, nil
}

// Profile loads the full crew record and its route qualifications, newest
// valid-till first, nulls last. Returns (nil, nil) when the crew id is
// unknown.
func (s *Store) Profile(ctx context.Context, crewID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT crew_id,
		       COALESCE(crew_name,''), COALESCE(designation,''), COALESCE(level,''),
		       COALESCE(cadre,''), COALESCE(emp_no,''), COALESCE(present_pay,''),
		       COALESCE(birth_date,''), COALESCE(appoint_date,''), COALESCE(promotion_date,''),
		       COALESCE(incrmnt_due_date,''), COALESCE(retirement_date,''),
		       COALESCE(cli_id,''), COALESCE(cli_name,''), COALESCE(current_grade,''),
		       COALESCE(mobile,''), COALESCE(call_serve_address,''), COALESCE(permanent_address,''),
		       COALESCE(last_updated,'')
		FROM crew_master WHERE crew_id = ?`, crewID)

	var p Profile
	err := row.Scan(
		&p.CrewID,
		&p.CrewName, &p.Designation, &p.Level,
		&p.Cadre, &p.EmpNo, &p.PresentPay,
		&p.BirthDate, &p.AppointDate, &p.PromotionDate,
		&p.IncrmntDueDate, &p.RetirementDate,
		&p.CliID, &p.CliName, &p.CurrentGrade,
		&p.Mobile, &p.CallServeAddress, &p.PermanentAddress,
		&p.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section_code, route_no, COALESCE(valid_till,''), COALESCE(status,'')
		FROM crew_route_learning
		WHERE crew_id = ?
		ORDER BY (valid_till IS NULL), valid_till DESC`, crewID)
	if err != nil {
		return nil, fmt.Errorf("route query failed: %w", err)
	}
	defer rows.Close()

	p.Routes = []roster.RouteQualification{}
	for rows.Next() {
		q := roster.RouteQualification{CrewID: crewID}
		var status string
		if err := rows.Scan(&q.SectionCode, &q.RouteNo, &q.ValidTill, &status); err != nil {
			return nil, fmt.Errorf("route scan failed: %w", err)
		}
		q.Status = roster.Status(status)
		p.Routes = append(p.Routes, q)
	}
	return &p, rows.Err()
}
