package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/c137req/crewbase/internal/ingest"
	"github.com/c137req/crewbase/internal/roster"
	"github.com/c137req/crewbase/internal/store"
)

func _test_server(t *testing.T) (*_server, *store.Store) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ing := ingest.New(st, ingest.NewProgress(), log)
	s := NewServer(Options{
		Bind:       "127.0.0.1:0",
		MaxBody:    10 << 20,
		ScratchDir: t.TempDir(),
	}, st, ing, log)
	return s, st
}

func _do(s *_server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func _seed_crew(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	conn, err := st.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	w, err := st.BeginSheet(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, w.UpsertCrew(ctx, roster.CrewMaster{
		CrewID: "RPH3020", CrewName: "A K SHARMA", Designation: "LP(G)", Mobile: "9830000000",
	}))
	require.NoError(t, w.QueueRoute(ctx, roster.RouteQualification{
		CrewID: "RPH3020", SectionCode: "ABC-DEF", RouteNo: "12345",
		ValidTill: "2099-12-31", Status: roster.StatusValid, SourceFile: "lr.xlsx",
	}))
	require.NoError(t, w.Commit(ctx))
}

// _upload_body builds a multipart body with one xlsx "files" part.
func _upload_body(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Crew ID", "Crew Name", "Present Pay"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"HWH2040", "B DAS", "35400"}))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "roster.xlsx")
	require.NoError(t, err)
	require.NoError(t, f.Write(part))
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadEndToEnd(t *testing.T) {
	s, st := _test_server(t)

	body, ctype := _upload_body(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := _do(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp _upload_resp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "1 file processed successfully", resp.Message)

	p, err := st.Profile(context.Background(), "HWH2040")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "B DAS", p.CrewName)
}

func TestUploadSurvivesClientDisconnect(t *testing.T) {
	s, st := _test_server(t)

	body, ctype := _upload_body(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/upload", body).WithContext(ctx)
	req.Header.Set("Content-Type", ctype)
	rec := _do(s, req)

	// the batch is not tied to the request context, so the ingestion runs to
	// completion even though the client is gone
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p, err := st.Profile(context.Background(), "HWH2040")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "B DAS", p.CrewName)
}

func TestUploadNoFiles(t *testing.T) {
	s, _ := _test_server(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "nothing attached"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := _do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadNotMultipart(t *testing.T) {
	s, _ := _test_server(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := _do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadBusy(t *testing.T) {
	s, _ := _test_server(t)
	require.NoError(t, s.ing.Progress().Begin())
	defer s.ing.Progress().Finish(true)

	body, ctype := _upload_body(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := _do(s, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProgressEndpoint(t *testing.T) {
	s, _ := _test_server(t)

	rec := _do(s, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap ingest.ProgressSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.False(t, snap.Active)
	assert.Zero(t, snap.Processed)
}

func TestSuggestEndpoint(t *testing.T) {
	s, st := _test_server(t)
	_seed_crew(t, st)

	rec := _do(s, httptest.NewRequest(http.MethodGet, "/suggest?q=RPH", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []store.Suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "RPH3020", out[0].CrewID)

	// no hits is an empty array, not null
	rec = _do(s, httptest.NewRequest(http.MethodGet, "/suggest?q=ZZZ", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSearchEndpoint(t *testing.T) {
	s, st := _test_server(t)
	_seed_crew(t, st)

	rec := _do(s, httptest.NewRequest(http.MethodGet, "/search?q=RPH3020", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var p store.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "A K SHARMA", p.CrewName)
	require.Len(t, p.Routes, 1)
	assert.Equal(t, "12345", p.Routes[0].RouteNo)

	// unknown ids come back as null
	rec = _do(s, httptest.NewRequest(http.MethodGet, "/search?q=NOPE9999", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}

func TestMetaEndpoint(t *testing.T) {
	s, st := _test_server(t)
	_seed_crew(t, st)

	rec := _do(s, httptest.NewRequest(http.MethodGet, "/meta", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var meta store.Meta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, []string{"LP(G)"}, meta.Designations)
	assert.Equal(t, []string{"RPH"}, meta.Lobbies)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := _test_server(t)
	rec := _do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var h _health_resp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.True(t, h.OK)
}

func TestRateLimit(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := NewServer(Options{
		Bind:       "127.0.0.1:0",
		RateRPM:    2,
		ScratchDir: t.TempDir(),
	}, st, ingest.New(st, ingest.NewProgress(), log), log)

	for i := 0; i < 2; i++ {
		rec := _do(s, httptest.NewRequest(http.MethodGet, "/suggest?q=RPH", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := _do(s, httptest.NewRequest(http.MethodGet, "/suggest?q=RPH", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// progress polling and health checks are never limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, _do(s, httptest.NewRequest(http.MethodGet, "/progress", nil)).Code)
		assert.Equal(t, http.StatusOK, _do(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := NewServer(Options{
		Bind:       "127.0.0.1:0",
		CORSOrigin: "http://localhost:5173",
		ScratchDir: t.TempDir(),
	}, st, ingest.New(st, ingest.NewProgress(), log), log)

	rec := _do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
