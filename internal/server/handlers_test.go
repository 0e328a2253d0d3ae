package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/deal-consolidator/constants"
	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/export"
	"github.com/crmkit/deal-consolidator/internal/llm"
	"github.com/crmkit/deal-consolidator/internal/pipeline"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUploads struct {
	mu      sync.Mutex
	rows    []entity.Upload
	batches []entity.BatchSummary
}

func (m *memUploads) Create(_ context.Context, u *entity.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *u)
	return nil
}

func (m *memUploads) SetStatus(_ context.Context, id uuid.UUID, status constants.ProcessingStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Status = status
			if errMsg != "" {
				m.rows[i].Error = &errMsg
			}
		}
	}
	return nil
}

func (m *memUploads) RecentBatches(context.Context, int) ([]entity.BatchSummary, error) {
	return m.batches, nil
}

type memDeals struct {
	mu   sync.Mutex
	recs []entity.StoredDeal
}

func (m *memDeals) InsertBatch(_ context.Context, _ uuid.UUID, sourceFile string, recs []schema.DealRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.recs = append(m.recs, entity.StoredDeal{DealRecord: r, SourceFile: sourceFile})
	}
	return nil
}

func (m *memDeals) ListByBatch(context.Context, uuid.UUID) ([]entity.StoredDeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.StoredDeal{}, m.recs...), nil
}

type noopText struct{}

func (noopText) ExtractText(context.Context, string) (string, error) { return "text", nil }

type noopExtractor struct{}

func (noopExtractor) ExtractDeals(context.Context, llm.ExtractRequest) ([]schema.DealRecord, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, uploads *memUploads, deals *memDeals) *gin.Engine {
	t.Helper()
	proc := pipeline.NewProcessor(uploads, deals, noopText{}, noopExtractor{}, pipeline.Config{}, nil)
	exp := export.NewService(deals, nil)
	h := NewHandler(proc, uploads, deals, exp, t.TempDir(), nil)
	return NewRouter(h, []string{"http://localhost:5173"})
}

func doJSON(t *testing.T, r *gin.Engine, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})
	w, body := doJSON(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRecordsRequiresBatchID(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})

	w, _ := doJSON(t, r, http.MethodGet, "/records")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/records?batch_id=not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecords(t *testing.T) {
	deals := &memDeals{recs: []entity.StoredDeal{
		{DealRecord: schema.DealRecord{ClientName: schema.Str("Acme")}, SourceFile: "a.csv"},
	}}
	r := newTestRouter(t, &memUploads{}, deals)

	w, body := doJSON(t, r, http.MethodGet, "/records?batch_id="+uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])
	records, ok := body["records"].([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
}

func TestKPIs(t *testing.T) {
	deals := &memDeals{recs: []entity.StoredDeal{
		{DealRecord: schema.DealRecord{DealValue: schema.Float(1000), Stage: schema.Str("Open")}},
		{DealRecord: schema.DealRecord{DealValue: schema.Float(2000), Stage: schema.Str("Open")}},
	}}
	r := newTestRouter(t, &memUploads{}, deals)

	w, body := doJSON(t, r, http.MethodGet, "/kpis?batch_id="+uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["total_deals"])
	assert.EqualValues(t, 3000, body["total_value"])
	assert.Nil(t, body["avg_probability"])
}

func TestBatches(t *testing.T) {
	uploads := &memUploads{batches: []entity.BatchSummary{
		{BatchID: uuid.New(), FilesCount: 2},
	}}
	r := newTestRouter(t, uploads, &memDeals{})

	w, body := doJSON(t, r, http.MethodGet, "/batches")
	assert.Equal(t, http.StatusOK, w.Code)
	batches, ok := body["batches"].([]any)
	require.True(t, ok)
	assert.Len(t, batches, 1)

	w, _ = doJSON(t, r, http.MethodGet, "/batches?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportNoRecords(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})
	w, _ := doJSON(t, r, http.MethodGet, "/export?batch_id="+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	deals := &memDeals{recs: []entity.StoredDeal{
		{DealRecord: schema.DealRecord{ClientName: schema.Str("Acme")}, SourceFile: "a.csv"},
	}}
	r := newTestRouter(t, &memUploads{}, deals)

	batchID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/export?batch_id="+batchID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "crm_deals_"+batchID+".xlsx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestUploadNoFiles(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadProcessesBatch(t *testing.T) {
	uploads, deals := &memUploads{}, &memDeals{}
	r := newTestRouter(t, uploads, deals)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "deals.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Company,Amount\nAcme,1000\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		BatchID      string                `json:"batch_id"`
		Files        []pipeline.FileResult `json:"files"`
		DealsPreview []entity.StoredDeal   `json:"deals_preview"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	_, err = uuid.Parse(body.BatchID)
	require.NoError(t, err)
	require.Len(t, body.Files, 1)
	assert.Equal(t, "deals.csv", body.Files[0].SourceFile)
	assert.Equal(t, string(constants.StatusParsed), body.Files[0].Status)
	require.Len(t, body.DealsPreview, 1)
	assert.Equal(t, "Acme", *body.DealsPreview[0].ClientName)

	require.Len(t, uploads.rows, 1)
	assert.Equal(t, constants.StatusParsed, uploads.rows[0].Status)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSUnknownOriginGetsNoHeader(t *testing.T) {
	r := newTestRouter(t, &memUploads{}, &memDeals{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
