package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/repo/memory"
	"github.com/Veysel440/go-etracker/internal/service"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixtureDoc() core.InventoryDocument {
	return core.InventoryDocument{
		ID: "doc-1",
		Descriptor: core.Descriptor{
			Hostname: "web01",
			Instance: core.Instance{Name: "Billing", ReferenceCode: "REF-9"},
		},
		Enforced: map[string]map[string]core.EnforcementEntry{
			core.GroupCIS: {
				"1_1_1": {Enforced: core.BoolPtr(true), Platforms: []string{"linux"}},
				"1_1_2": {Enforced: core.BoolPtr(false)},
			},
		},
	}
}

type testServer struct {
	h     http.Handler
	audit *memory.AuditRepo
	reg   *prometheus.Registry
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	inv := memory.NewInventoryRepo(fixtureDoc())
	audit := memory.NewAuditRepo()
	clock := func() time.Time { return now }
	reg := prometheus.NewRegistry()

	d := Deps{
		Engine:    service.NewEngine(inv, audit, service.EngineConfig{Now: clock}, nil, nil),
		Reports:   service.NewReports(inv, service.ReportsConfig{Now: clock}, nil, nil),
		Inventory: service.NewInventory(inv, audit),
		Registry:  reg,
	}
	if mutate != nil {
		mutate(&d)
	}
	h, err := NewRouter(d)
	require.NoError(t, err)
	return &testServer{h: h, audit: audit, reg: reg}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func patchReq(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/v1/inventory/doc-1/items/CIS/1_1_1", strings.NewReader(body))
	req.Header.Set(ActorIDHeader, "7")
	req.Header.Set(ActorNameHeader, "Ada Admin")
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	s = newTestServer(t, func(d *Deps) {
		d.Ping = func(context.Context) error { return errors.New("down") }
	})
	rec = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := s.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory?hostname=WEB", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Items []core.InventoryDocument `json:"items"`
		Total int64                    `json:"total"`
	}
	decode(t, rec, &res)
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "doc-1", res.Items[0].ID)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory?reference_code=nope", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, rec.Body.String())
}

func TestGetDocument(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/doc-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Document core.InventoryDocument `json:"document"`
		Stats    core.DocumentStats     `json:"stats"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "web01", out.Document.Descriptor.Hostname)
	assert.Equal(t, core.DocumentStats{Total: 2, Unenforced: 1}, out.Stats)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChoices(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/doc-1/items/CIS/1_1_1/choices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Choices []core.KeyChoice `json:"choices"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Choices, 2)
	assert.Equal(t, "platforms:linux", out.Choices[1].Value)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/doc-1/items/$CIS/1_1_1/choices", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateItem(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(patchReq(`{"exceptionActive":true,"exceptionReason":"vendor fix pending","exceptionExpiresAt":"2025-06-30"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res service.UpdateResult
	decode(t, rec, &res)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Current.Exception)
	assert.Equal(t, "2025-06-30T23:59:59Z", res.Current.Exception.ExpiresAt)
	assert.Equal(t, core.ManualExceptionKey, res.Current.Key())
	assert.Equal(t, "Ada Admin", res.Current.Exception.Approver.Name)
	assert.Equal(t, 1, s.audit.Len())

	// same request again changes nothing
	rec = s.do(patchReq(`{"exceptionActive":true,"exceptionReason":"vendor fix pending","exceptionExpiresAt":"2025-06-30"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	res = service.UpdateResult{}
	decode(t, rec, &res)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, s.audit.Len())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/doc-1/history?item=1_1_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Items []core.AuditRecord `json:"items"`
	}
	decode(t, rec, &hist)
	require.Len(t, hist.Items, 1)
	assert.Equal(t, "vendor fix pending", hist.Items[0].Reason)
	assert.EqualValues(t, 7, hist.Items[0].ActorID)
}

func TestUpdateItem_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		req  func() *http.Request
		code int
	}{
		{"invalid json", func() *http.Request { return patchReq(`{`) }, http.StatusBadRequest},
		{"unknown field", func() *http.Request { return patchReq(`{"bogus":1}`) }, http.StatusBadRequest},
		{"missing reason", func() *http.Request { return patchReq(`{"exceptionActive":true}`) }, http.StatusBadRequest},
		{"no actor", func() *http.Request {
			r := patchReq(`{}`)
			r.Header.Del(ActorIDHeader)
			r.Header.Del(ActorNameHeader)
			return r
		}, http.StatusUnauthorized},
		{"bad actor id", func() *http.Request {
			r := patchReq(`{}`)
			r.Header.Set(ActorIDHeader, "x")
			return r
		}, http.StatusBadRequest},
		{"unknown document", func() *http.Request {
			r := patchReq(`{"enforced":false}`)
			r.URL.Path = "/v1/inventory/missing/items/CIS/1_1_1"
			return r
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.req())
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 0, s.audit.Len())
}

func TestReports(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(patchReq(`{"exceptionActive":true,"exceptionReason":"legacy","exceptionExpiresAt":"2025-03-10"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/reports?expiring_window=0&unenforced_limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rep service.Report
	decode(t, rec, &rep)
	assert.Empty(t, rep.Expiring, "window clamps to one day")
	assert.Equal(t, 1, rep.Summary.DueLater)
	assert.Len(t, rep.Unenforced, 2, "limit clamps to ten")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rep = service.Report{}
	decode(t, rec, &rep)
	require.Len(t, rep.Expiring, 1)
	assert.Equal(t, 9, rep.Expiring[0].DaysUntil)
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.APIKeys = "k1, k2" })

	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/inventory", nil)
	req.Header.Set("X-Api-Key", "k2")
	assert.Equal(t, http.StatusOK, s.do(req).Code)

	// health stays public
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.RatePerMinute = 2 })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(httptest.NewRequest(http.MethodGet, "/v1/inventory/doc-1", nil))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `etracker_http_requests_total{method="GET",route="/v1/inventory/{id}`)
}
