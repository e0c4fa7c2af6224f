// Package ingest drives the spreadsheet-to-relational pipeline: sheet
// classification, column mapping, row extraction and the per-sheet upsert
// transactions.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/c137req/crewbase/internal/roster"
	"github.com/c137req/crewbase/internal/store"
)

// BatchFile names one uploaded file: the path on disk and the name the user
// gave it, which is recorded as qualification provenance.
type BatchFile struct {
	Path     string
	OrigName string
}

// Ingestor processes upload batches, one at a time, strictly sequentially:
// files in order, sheets within a file in order, rows within a sheet in
// order. The only suspension points are store calls.
type Ingestor struct {
	store    *store.Store
	progress *Progress
	log      *logrus.Logger
}

func New(st *store.Store, pr *Progress, log *logrus.Logger) *Ingestor {
	return &Ingestor{store: st, progress: pr, log: log}
}

// Progress exposes the batch tracker for the polling endpoint.
func (ing *Ingestor) Progress() *Progress {
	return ing.progress
}

// Run ingests a batch of files. Fails fast with ErrBusy when another batch
// is active. Any store error aborts the current file and the remaining files
// of the batch; soft gaps in the data never do.
func (ing *Ingestor) Run(ctx context.Context, files []BatchFile) error {
	if len(files) == 0 {
		return fmt.Errorf("no files supplied")
	}

	// reserve the batch slot before touching the files: two overlapping
	// uploads would otherwise interleave their counters
	if err := ing.progress.Begin(); err != nil {
		return err
	}

	total, err := ing.EstimateRows(files)
	if err != nil {
		ing.progress.Finish(false)
		return err
	}
	ing.progress.SetTotal(total)

	for _, f := range files {
		ing.progress.SetFile(f.OrigName)
		ing.log.WithField("file", f.OrigName).Info("processing file")
		if err := ing.IngestFile(ctx, f.Path, f.OrigName); err != nil {
			ing.progress.Finish(false)
			return fmt.Errorf("ingestion of %s failed: %w", f.OrigName, err)
		}
	}

	ing.progress.Finish(true)
	return nil
}

// EstimateRows sums the raw row counts across every sheet of every file.
// Header-only and filtered rows are still counted, so the total is an upper
// bound on what Step will reach.
func (ing *Ingestor) EstimateRows(files []BatchFile) (int, error) {
	total := 0
	for _, f := range files {
		sheets, err := _read_workbook(f.Path)
		if err != nil {
			return 0, err
		}
		for _, sh := range sheets {
			total += len(sh.rows)
		}
	}
	return total, nil
}

// IngestFile processes every sheet of one workbook. A connection is held for
// the whole file and released regardless of outcome; each sheet gets its own
// transaction, rolled back entirely on the first store error.
func (ing *Ingestor) IngestFile(ctx context.Context, path, origName string) error {
	sheets, err := _read_workbook(path)
	if err != nil {
		return err
	}

	conn, err := ing.store.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, sh := range sheets {
		if len(sh.rows) == 0 {
			continue
		}

		w, err := ing.store.BeginSheet(ctx, conn)
		if err != nil {
			return err
		}

		stats, err := ing._process_sheet(ctx, w, sh.rows, origName)
		if err != nil {
			w.Rollback()
			ing.log.WithFields(logrus.Fields{
				"file":  origName,
				"sheet": sh.name,
			}).WithError(err).Error("sheet failed, rolled back")
			return err
		}
		if err := w.Commit(ctx); err != nil {
			ing.log.WithFields(logrus.Fields{
				"file":  origName,
				"sheet": sh.name,
			}).WithError(err).Error("sheet commit failed, rolled back")
			return err
		}

		ing.log.WithFields(logrus.Fields{
			"file":            origName,
			"sheet":           sh.name,
			"missing_crew_id": stats.MissingCrewID,
			"bad_dates":       stats.BadDates,
			"unmatched_cells": stats.UnmatchedCells,
			"not_valid":       stats.NotValid,
		}).Info("sheet complete")
	}
	return nil
}

func (ing *Ingestor) _process_sheet(ctx context.Context, w *store.SheetWriter, rows [][]string, origName string) (*SkipStats, error) {
	stats := &SkipStats{}
	today := roster.Today()

	var kind SheetKind = KindUnknown
	var rc *_row_ctx

	for _, raw := range rows {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = strings.TrimSpace(cell)
		}

		// header detection: a row mentioning CREWID re-declares the
		// headers from that point forward
		if IsHeaderRow(row) {
			kind = Classify(row)
			rc = _new_row_ctx(row, MapColumns(row, ing.log))
			ing.log.WithField("type", kind).Debug("header detected")
			continue
		}
		if rc == nil {
			continue
		}

		crew_id := rc._crew_id(row)
		if crew_id == "" {
			stats.MissingCrewID++
			continue
		}

		switch kind {
		case KindRoster, KindGrading, KindContact:
			rec := rc._extract_crew(row, kind, stats)
			if err := w.UpsertCrew(ctx, rec); err != nil {
				return stats, err
			}
		case KindRouteMatrix:
			for _, q := range rc._extract_routes(row, crew_id, origName, today, stats) {
				if err := w.QueueRoute(ctx, q); err != nil {
					return stats, err
				}
			}
		}

		ing.progress.Step()
	}
	return stats, nil
}

// --- workbook reading ---

type _sheet struct {
	name string
	rows [][]string
}

// _read_workbook loads all sheets of an xlsx file, or wraps a csv file as a
// one-sheet workbook. Empty cells come back as empty strings; row 1 is the
// first row, no implicit header skipping.
func _read_workbook(path string) ([]_sheet, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return _read_csv(path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var sheets []_sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		sheets = append(sheets, _sheet{name: name, rows: rows})
	}
	return sheets, nil
}

func _read_csv(path string) ([]_sheet, error) {
	raw, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer raw.Close()

	reader := csv.NewReader(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return []_sheet{{name: filepath.Base(path), rows: rows}}, nil
}
