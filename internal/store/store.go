// Package store persists crew master records and route qualifications in
// sqlite and answers the search/autocomplete queries over them.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const _schema = `
CREATE TABLE IF NOT EXISTS crew_master (
	crew_id            TEXT PRIMARY KEY,
	crew_name          TEXT,
	designation        TEXT,
	level              TEXT,
	cadre              TEXT,
	emp_no             TEXT,
	present_pay        TEXT,
	birth_date         TEXT,
	appoint_date       TEXT,
	promotion_date     TEXT,
	incrmnt_due_date   TEXT,
	retirement_date    TEXT,
	cli_id             TEXT,
	cli_name           TEXT,
	current_grade      TEXT,
	mobile             TEXT,
	call_serve_address TEXT,
	permanent_address  TEXT,
	last_updated       TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS crew_route_learning (
	crew_id      TEXT NOT NULL,
	section_code TEXT NOT NULL,
	route_no     TEXT NOT NULL,
	valid_till   TEXT,
	status       TEXT,
	source_file  TEXT,
	PRIMARY KEY (crew_id, section_code, route_no)
);
`

// Store wraps the sqlite database backing the crew system.
type Store struct {
	db  *sql.DB
	log *logrus.Logger
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// WAL lets search queries read while an ingestion transaction writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	if _, err := db.Exec(_schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Conn checks a connection out of the pool. The ingestion path holds one for
// the duration of an entire file and releases it in a defer.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}
