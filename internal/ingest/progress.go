package ingest

import (
	"errors"
	"sync"
)

// ErrBusy is returned when an upload batch is started while another is still
// running. Ingestion is strictly one batch at a time.
var ErrBusy = errors.New("an ingestion batch is already running")

// Progress tracks the state of the current upload batch. Written by the
// single ingestion goroutine, read by polling requests; all access goes
// through the mutex so pollers always see a consistent snapshot.
type Progress struct {
	mu sync.Mutex

	active      bool
	total       int
	processed   int
	currentFile string
	done        bool
}

// ProgressSnapshot is a point-in-time copy of the batch state.
type ProgressSnapshot struct {
	Active      bool   `json:"active"`
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	CurrentFile string `json:"currentFile"`
	Done        bool   `json:"done"`
}

func NewProgress() *Progress {
	return &Progress{}
}

// Begin reserves the batch slot and resets the counters. Fails with ErrBusy
// while a previous batch is still active.
func (p *Progress) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return ErrBusy
	}
	p.active = true
	p.done = false
	p.total = 0
	p.processed = 0
	p.currentFile = ""
	return nil
}

// SetTotal records the estimated row total once the batch's files have been
// counted.
func (p *Progress) SetTotal(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
}

// SetFile records the file currently being processed.
func (p *Progress) SetFile(name string) {
	p.mu.Lock()
	p.currentFile = name
	p.mu.Unlock()
}

// Step increments the processed-row counter. Called once per data row;
// header rows and rows without a crew id do not count.
func (p *Progress) Step() {
	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
}

// Finish clears the active flag. ok=false marks an aborted batch: pollers
// see active=false, done=false and can tell the batch did not complete.
func (p *Progress) Finish(ok bool) {
	p.mu.Lock()
	p.active = false
	p.done = ok
	p.mu.Unlock()
}

// Snapshot returns a value copy for the progress endpoint.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressSnapshot{
		Active:      p.active,
		Total:       p.total,
		Processed:   p.processed,
		CurrentFile: p.currentFile,
		Done:        p.done,
	}
}
