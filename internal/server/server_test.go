package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/sales-intel/internal/intel"
	"github.com/sells-group/sales-intel/internal/model"
)

type fakeReporter struct {
	got  intel.Request
	resp *intel.Response
	err  error
}

func (f *fakeReporter) Report(_ context.Context, req intel.Request) (*intel.Response, error) {
	f.got = req
	return f.resp, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func post(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := New(&fakeReporter{}, nil, nil, zap.NewNop()).Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHealth_StoreDown(t *testing.T) {
	h := New(&fakeReporter{}, fakePinger{err: errors.New("down")}, nil, zap.NewNop()).Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReport_OK(t *testing.T) {
	report := model.NewReport("acme.com", model.ReportKindBasic)
	rep := &fakeReporter{resp: &intel.Response{
		Success:  true,
		Report:   report,
		Scores:   model.ScoreSet{Priority: model.PriorityLow},
		IsCached: true,
	}}
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(rep, nil, nil, zap.New(core)).Routes()

	rr := post(t, h, `{"subject":"https://acme.com","kind":"basic","account_id":"a1"}`, map[string]string{"X-Tenant-ID": "t9"})
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "https://acme.com", rep.got.Subject)
	assert.Equal(t, model.ReportKindBasic, rep.got.Kind)
	assert.Equal(t, "a1", rep.got.AccountID)
	assert.Equal(t, "t9", rep.got.TenantID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["is_cached"])
	assert.Equal(t, false, body["is_expired"])
	assert.NotContains(t, body, "cached_at")
	assert.Equal(t, "acme.com", body["report"].(map[string]any)["subject"])

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func TestReport_BodyTenantWins(t *testing.T) {
	rep := &fakeReporter{resp: &intel.Response{Success: true}}
	h := New(rep, nil, nil, zap.NewNop()).Routes()

	rr := post(t, h, `{"subject":"acme.com","tenant_id":"body"}`, map[string]string{"X-Tenant-ID": "header"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body", rep.got.TenantID)
}

func TestReport_BadRequests(t *testing.T) {
	h := New(&fakeReporter{}, nil, nil, zap.NewNop()).Routes()

	rr := post(t, h, `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")

	rr = post(t, h, `{"kind":"basic"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "subject is required")
}

func TestReport_InvalidSubject(t *testing.T) {
	h := New(&fakeReporter{err: intel.ErrInvalidSubject}, nil, nil, zap.NewNop()).Routes()

	rr := post(t, h, `{"subject":"://"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReport_UnexpectedError(t *testing.T) {
	h := New(&fakeReporter{err: errors.New("boom")}, nil, nil, zap.NewNop()).Routes()

	rr := post(t, h, `{"subject":"acme.com"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := New(&fakeReporter{}, nil, []string{"https://app.example.com"}, zap.NewNop()).Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&fakeReporter{}, nil, nil, zap.NewNop()).Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
