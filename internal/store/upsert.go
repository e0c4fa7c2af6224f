package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/c137req/crewbase/internal/roster"
)

// DefaultBatchSize is the route-qualification queue depth that triggers a
// flush. Batching is purely for throughput — semantics are identical to one
// upsert per tuple.
const DefaultBatchSize = 500

// SheetWriter issues the upserts for one sheet inside one transaction.
// Commit flushes any queued qualifications first; any error leaves the
// caller to Rollback, which discards every write of the sheet.
type SheetWriter struct {
	tx         *sql.Tx
	batch      []roster.RouteQualification
	batch_size int
}

// BeginSheet opens the per-sheet transaction on a checked-out connection.
func (s *Store) BeginSheet(ctx context.Context, conn *sql.Conn) (*SheetWriter, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sheet transaction: %w", err)
	}
	return &SheetWriter{tx: tx, batch_size: DefaultBatchSize}, nil
}

// crew_master columns in insert order, paired with their value extractors.
var _crew_cols = []struct {
	name string
	get  func(roster.CrewMaster) string
}{
	{"crew_id", func(c roster.CrewMaster) string { return c.CrewID }},
	{"crew_name", func(c roster.CrewMaster) string { return c.CrewName }},
	{"designation", func(c roster.CrewMaster) string { return c.Designation }},
	{"level", func(c roster.CrewMaster) string { return c.Level }},
	{"cadre", func(c roster.CrewMaster) string { return c.Cadre }},
	{"emp_no", func(c roster.CrewMaster) string { return c.EmpNo }},
	{"present_pay", func(c roster.CrewMaster) string { return c.PresentPay }},
	{"birth_date", func(c roster.CrewMaster) string { return c.BirthDate }},
	{"appoint_date", func(c roster.CrewMaster) string { return c.AppointDate }},
	{"promotion_date", func(c roster.CrewMaster) string { return c.PromotionDate }},
	{"incrmnt_due_date", func(c roster.CrewMaster) string { return c.IncrmntDueDate }},
	{"retirement_date", func(c roster.CrewMaster) string { return c.RetirementDate }},
	{"cli_id", func(c roster.CrewMaster) string { return c.CliID }},
	{"cli_name", func(c roster.CrewMaster) string { return c.CliName }},
	{"current_grade", func(c roster.CrewMaster) string { return c.CurrentGrade }},
	{"mobile", func(c roster.CrewMaster) string { return c.Mobile }},
	{"call_serve_address", func(c roster.CrewMaster) string { return c.CallServeAddress }},
	{"permanent_address", func(c roster.CrewMaster) string { return c.PermanentAddress }},
}

// UpsertCrew inserts or partially updates one crew record. Only non-empty
// fields are written, so a sheet that carries a subset of columns never
// clobbers values set by earlier sheets. No-op when nothing beyond the key
// is present.
func (w *SheetWriter) UpsertCrew(ctx context.Context, rec roster.CrewMaster) error {
	if rec.CrewID == "" || rec.Empty() {
		return nil
	}

	var cols []string
	var vals []any
	var updates []string
	for _, c := range _crew_cols {
		v := c.get(rec)
		if v == "" {
			continue
		}
		cols = append(cols, c.name)
		vals = append(vals, v)
		if c.name != "crew_id" {
			updates = append(updates, c.name+"=excluded."+c.name)
		}
	}
	updates = append(updates, "last_updated=CURRENT_TIMESTAMP")

	query := fmt.Sprintf(
		"INSERT INTO crew_master (%s) VALUES (%s) ON CONFLICT (crew_id) DO UPDATE SET %s",
		strings.Join(cols, ","),
		_placeholders(len(cols)),
		strings.Join(updates, ","),
	)
	if _, err := w.tx.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("failed to upsert crew %s: %w", rec.CrewID, err)
	}
	return nil
}

// QueueRoute adds a qualification tuple to the batch, flushing when the
// queue reaches the batch size.
func (w *SheetWriter) QueueRoute(ctx context.Context, q roster.RouteQualification) error {
	w.batch = append(w.batch, q)
	if len(w.batch) >= w.batch_size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes the queued qualifications as one multi-row upsert.
func (w *SheetWriter) Flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO crew_route_learning (crew_id,section_code,route_no,valid_till,status,source_file) VALUES ")
	vals := make([]any, 0, len(w.batch)*6)
	for i, q := range w.batch {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?,?,?,?)")
		var valid_till any
		if q.ValidTill != "" {
			valid_till = q.ValidTill
		}
		vals = append(vals, q.CrewID, q.SectionCode, q.RouteNo, valid_till, string(q.Status), q.SourceFile)
	}
	b.WriteString(" ON CONFLICT (crew_id,section_code,route_no) DO UPDATE SET" +
		" valid_till=excluded.valid_till, status=excluded.status, source_file=excluded.source_file")

	if _, err := w.tx.ExecContext(ctx, b.String(), vals...); err != nil {
		return fmt.Errorf("failed to flush %d route qualifications: %w", len(w.batch), err)
	}
	w.batch = w.batch[:0]
	return nil
}

// Queued reports how many qualifications are waiting for the next flush.
func (w *SheetWriter) Queued() int {
	return len(w.batch)
}

// Commit flushes the remainder and commits the sheet. A failed flush rolls
// the transaction back before returning, so the connection is always
// releasable afterwards.
func (w *SheetWriter) Commit(ctx context.Context) error {
	if err := w.Flush(ctx); err != nil {
		w.tx.Rollback()
		return err
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sheet: %w", err)
	}
	return nil
}

// Rollback discards every write of the sheet.
func (w *SheetWriter) Rollback() error {
	return w.tx.Rollback()
}

func _placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
