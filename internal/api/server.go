// Package api exposes the upload, progress and search endpoints over the
// ingested crew data.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/c137req/crewbase/internal/ingest"
	"github.com/c137req/crewbase/internal/store"
)

type _config struct {
	bind        string
	max_body    int64
	rate_rpm    int
	cors        string
	scratch_dir string
}

type _server struct {
	cfg     _config
	srv     *http.Server
	ln      net.Listener
	started time.Time
	limiter *_rate_limiter
	log     *logrus.Logger

	store *store.Store
	ing   *ingest.Ingestor
}

// Options configures the HTTP server.
type Options struct {
	Bind       string
	MaxBody    int64  // request body cap in bytes, 0 disables
	RateRPM    int    // per-ip requests per minute, 0 disables
	CORSOrigin string // allowed origin, "" disables CORS headers
	ScratchDir string // where uploaded files are staged
}

// NewServer creates a configured server. does not start listening.
func NewServer(opts Options, st *store.Store, ing *ingest.Ingestor, log *logrus.Logger) *_server {
	s := &_server{
		cfg: _config{
			bind:        opts.Bind,
			max_body:    opts.MaxBody,
			rate_rpm:    opts.RateRPM,
			cors:        opts.CORSOrigin,
			scratch_dir: opts.ScratchDir,
		},
		log:   log,
		store: st,
		ing:   ing,
	}

	if opts.RateRPM > 0 {
		s.limiter = _new_rate_limiter(opts.RateRPM)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s._handle_upload)
	mux.HandleFunc("GET /progress", s._handle_progress)
	mux.HandleFunc("GET /suggest", s._handle_suggest)
	mux.HandleFunc("GET /lobbies", s._handle_lobbies)
	mux.HandleFunc("GET /designations", s._handle_designations)
	mux.HandleFunc("GET /meta", s._handle_meta)
	mux.HandleFunc("GET /search", s._handle_search)
	mux.HandleFunc("GET /health", s._handle_health)

	s.srv = &http.Server{
		Handler:           s._build_chain(mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
		// no write timeout: an upload batch legitimately runs for minutes
	}

	return s
}

// Listen creates the listener. call before Serve.
func (s *_server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.bind)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the listener address.
func (s *_server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.bind
}

// Serve starts serving on the existing listener. blocks until shutdown.
func (s *_server) Serve() error {
	s.started = time.Now()
	return s.srv.Serve(s.ln)
}

// Shutdown gracefully stops the server.
func (s *_server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// --- handlers ---

type _upload_resp struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *_server) _handle_upload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		_write_json(w, http.StatusBadRequest, _upload_resp{Error: "expected multipart form data"})
		return
	}

	files, err := s._stage_uploads(reader)
	defer func() {
		for _, f := range files {
			os.Remove(f.Path)
		}
	}()
	if err != nil {
		s.log.WithError(err).Error("upload staging failed")
		_write_json(w, http.StatusBadRequest, _upload_resp{Error: "failed to read uploaded files"})
		return
	}
	if len(files) == 0 {
		_write_json(w, http.StatusBadRequest, _upload_resp{Error: "No files uploaded"})
		return
	}

	// deliberately not r.Context(): a client disconnect must not cancel
	// store writes mid-file. pollers follow /progress either way.
	if err := s.ing.Run(context.Background(), files); err != nil {
		if errors.Is(err, ingest.ErrBusy) {
			_write_json(w, http.StatusConflict, _upload_resp{Error: "an upload is already in progress"})
			return
		}
		s.log.WithError(err).Error("upload failed")
		// no structured per-file detail is retained; pollers see active=false
		_write_json(w, http.StatusInternalServerError, _upload_resp{Error: "Failed to process uploaded files"})
		return
	}

	_write_json(w, http.StatusOK, _upload_resp{
		Success: true,
		Message: _plural(len(files), "file processed successfully", "files processed successfully"),
	})
}

// _stage_uploads copies every "files" part to the scratch dir. Returns what
// was staged even on error so the caller can clean up.
func (s *_server) _stage_uploads(reader *multipart.Reader) ([]ingest.BatchFile, error) {
	var files []ingest.BatchFile
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, err
		}
		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		dst := filepath.Join(s.cfg.scratch_dir, uuid.New().String()+filepath.Ext(part.FileName()))
		out, err := os.Create(dst)
		if err != nil {
			part.Close()
			return files, err
		}
		_, err = io.Copy(out, part)
		out.Close()
		part.Close()
		if err != nil {
			os.Remove(dst)
			return files, err
		}
		files = append(files, ingest.BatchFile{Path: dst, OrigName: filepath.Base(part.FileName())})
	}
}

func (s *_server) _handle_progress(w http.ResponseWriter, r *http.Request) {
	_write_json(w, http.StatusOK, s.ing.Progress().Snapshot())
}

func (s *_server) _handle_suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.store.Suggest(r.Context(),
		q.Get("q"), q.Get("lobby"), q.Get("desig"), q.Get("division"), 12)
	if err != nil {
		s.log.WithError(err).Error("suggest failed")
		_write_json(w, http.StatusInternalServerError, []store.Suggestion{})
		return
	}
	_write_json(w, http.StatusOK, out)
}

func (s *_server) _handle_lobbies(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Lobbies(r.Context(), r.URL.Query().Get("division"))
	if err != nil {
		s.log.WithError(err).Error("lobbies failed")
		_write_json(w, http.StatusInternalServerError, []string{})
		return
	}
	_write_json(w, http.StatusOK, out)
}

func (s *_server) _handle_designations(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Designations(r.Context())
	if err != nil {
		s.log.WithError(err).Error("designations failed")
		_write_json(w, http.StatusInternalServerError, []string{})
		return
	}
	_write_json(w, http.StatusOK, out)
}

func (s *_server) _handle_meta(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.FetchMeta(r.Context())
	if err != nil {
		s.log.WithError(err).Error("meta failed")
		_write_json(w, http.StatusInternalServerError, store.Meta{
			Designations: []string{},
			Lobbies:      []string{},
		})
		return
	}
	_write_json(w, http.StatusOK, out)
}

func (s *_server) _handle_search(w http.ResponseWriter, r *http.Request) {
	crew_id := r.URL.Query().Get("q")
	if crew_id == "" {
		_write_json(w, http.StatusOK, nil)
		return
	}
	p, err := s.store.Profile(r.Context(), crew_id)
	if err != nil {
		s.log.WithError(err).Error("search failed")
		_write_json(w, http.StatusInternalServerError, nil)
		return
	}
	_write_json(w, http.StatusOK, p) // null when unknown
}

type _health_resp struct {
	OK     bool    `json:"ok"`
	Uptime float64 `json:"uptime_seconds"`
}

func (s *_server) _handle_health(w http.ResponseWriter, r *http.Request) {
	_write_json(w, http.StatusOK, _health_resp{OK: true, Uptime: time.Since(s.started).Seconds()})
}

// --- helpers ---

func _write_json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func _plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
