package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/durjog/durjog-map/internal/adapter/http"
	"github.com/durjog/durjog-map/internal/auth"
	"github.com/durjog/durjog-map/internal/domain"
	"github.com/durjog/durjog-map/internal/observability"
	"github.com/durjog/durjog-map/internal/refresh"
)

// --- fakes ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]domain.EmergencyReport
	nextID  int
	err     error
}

func newFakeReports(reports ...domain.EmergencyReport) *fakeReports {
	f := &fakeReports{reports: make(map[string]domain.EmergencyReport)}
	for _, r := range reports {
		f.reports[r.ID] = r
	}
	return f
}

func (f *fakeReports) ListActive(_ context.Context) ([]domain.EmergencyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.EmergencyReport, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReports) Get(_ context.Context, id string) (domain.EmergencyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReports) Create(_ context.Context, r domain.EmergencyReport) (domain.EmergencyReport, error) {
	r, err := domain.PrepareForStorage(r)
	if err != nil {
		return domain.EmergencyReport{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = fmt.Sprintf("r-%d", f.nextID)
	f.reports[r.ID] = r
	return r, nil
}

func (f *fakeReports) Update(_ context.Context, id string, patch domain.ReportPatch) (domain.EmergencyReport, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return domain.EmergencyReport{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	r = patch.Apply(r)
	f.reports[id] = r
	return r, nil
}

func (f *fakeReports) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(f.reports, id)
	return nil
}

type fakeContent struct {
	news     []domain.News
	contacts []domain.ContactMessage
}

func (f *fakeContent) ListNews(_ context.Context) ([]domain.News, error) { return f.news, nil }

func (f *fakeContent) CreateNews(_ context.Context, n domain.News) (domain.News, error) {
	n.ID = "n-1"
	f.news = append(f.news, n)
	return n, nil
}

func (f *fakeContent) SaveContact(_ context.Context, m domain.ContactMessage) (domain.ContactMessage, error) {
	f.contacts = append(f.contacts, m)
	return m, nil
}

type fakeClusters struct {
	latest     *domain.Snapshot
	refreshed  *domain.Snapshot
	refreshErr error
	triggers   int
}

func (f *fakeClusters) Profiles() []domain.ViewProfile { return domain.DefaultProfiles() }
func (f *fakeClusters) Latest() *domain.Snapshot       { return f.latest }
func (f *fakeClusters) Trigger()                       { f.triggers++ }

func (f *fakeClusters) Refresh(_ context.Context) (*domain.Snapshot, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.latest = f.refreshed
	return f.refreshed, nil
}

// --- helpers ---

const secret = "test-secret"

type harness struct {
	srv      *httpadapter.Server
	reports  *fakeReports
	content  *fakeContent
	clusters *fakeClusters
	metrics  *observability.Metrics
	verifier *auth.Verifier
}

func newHarness(t *testing.T, withAuth bool, reports ...domain.EmergencyReport) *harness {
	t.Helper()
	h := &harness{
		reports:  newFakeReports(reports...),
		content:  &fakeContent{},
		clusters: &fakeClusters{},
		metrics:  observability.NewMetricsForTesting(),
		verifier: auth.NewVerifier(secret, nil),
	}
	deps := httpadapter.Deps{
		Reports:  h.reports,
		Content:  h.content,
		Clusters: h.clusters,
		Ready:    []httpadapter.ReadinessChecker{&mockReadiness{}},
	}
	if withAuth {
		deps.Verifier = h.verifier
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.srv = httpadapter.NewServer(":0", deps, logger, h.metrics)
	return h
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := h.verifier.Issue(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func ownedReport(id, userID string) domain.EmergencyReport {
	return domain.EmergencyReport{
		ID:        id,
		Type:      domain.TypeFlood,
		Location:  domain.NewLocation(23.7925, 90.4155),
		Urgency:   domain.UrgencyHigh,
		UserID:    userID,
		Timestamp: time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC),
		Status:    domain.StatusActive,
	}
}

func testSnapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	p, ok := domain.FindProfile(domain.DefaultProfiles(), domain.MarkersView)
	require.True(t, ok)
	clusters, err := p.Aggregate([]domain.EmergencyReport{ownedReport("a", "u-1"), ownedReport("b", "u-2")})
	require.NoError(t, err)
	return &domain.Snapshot{
		ID:          "snap-1",
		Seq:         3,
		TakenAt:     time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		ReportCount: 2,
		Views: map[string]domain.ViewSnapshot{
			domain.MarkersView: {
				Profile:  p,
				Clusters: clusters,
				Markers:  domain.BuildMarkers(clusters, p),
				Diff:     domain.DiffClusters(nil, clusters),
			},
		},
	}
}

// --- operational endpoints ---

func TestHealthzReturns200(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := newHarness(t, false)
		rec := h.do(http.MethodGet, "/readyz", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("any checker failing", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		srv := httpadapter.NewServer(":0", httpadapter.Deps{
			Ready: []httpadapter.ReadinessChecker{&mockReadiness{}, &mockReadiness{err: errors.New("no snapshot yet")}},
		}, logger, observability.NewMetricsForTesting())

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, "no snapshot yet", body["error"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	h := newHarness(t, false, ownedReport("abc", ""))
	h.do(http.MethodGet, "/api/emergency-reports/abc", "", "")
	h.do(http.MethodGet, "/api/emergency-reports/missing", "", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues("GET", "/api/emergency-reports/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues("GET", "/api/emergency-reports/:id", "404")))
}

func TestAPITest(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(http.MethodGet, "/api/test", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "API is working")
}

// --- reports ---

func TestListAndGetReports(t *testing.T) {
	h := newHarness(t, false, ownedReport("a", "u-1"))

	rec := h.do(http.MethodGet, "/api/emergency-reports", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.EmergencyReport
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	rec = h.do(http.MethodGet, "/api/emergency-reports/a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.EmergencyReport
	decode(t, rec, &got)
	assert.Equal(t, domain.TypeFlood, got.Type)

	rec = h.do(http.MethodGet, "/api/emergency-reports/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReports_StoreError(t *testing.T) {
	h := newHarness(t, false)
	h.reports.err = errors.New("connection reset")

	rec := h.do(http.MethodGet, "/api/emergency-reports", "", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestCreateReport(t *testing.T) {
	h := newHarness(t, true)
	body := `{"type":"Fire","description":" smoke ","urgency":"high","location":{"latitude":23.8,"longitude":90.4}}`

	rec := h.do(http.MethodPost, "/api/emergency-reports", body, h.token(t, "u-9"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.EmergencyReport
	decode(t, rec, &created)
	assert.Equal(t, "r-1", created.ID)
	assert.Equal(t, domain.TypeFire, created.Type)
	assert.Equal(t, "u-9", created.UserID)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, "smoke", created.Description)
	assert.Equal(t, 1, h.clusters.triggers)
}

func TestCreateReport_Anonymous(t *testing.T) {
	h := newHarness(t, true)
	body := `{"type":"medical","location":{"latitude":23.8,"longitude":90.4},"userId":"spoofed"}`

	rec := h.do(http.MethodPost, "/api/emergency-reports", body, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.EmergencyReport
	decode(t, rec, &created)
	assert.Empty(t, created.UserID, "owner comes from the token only")
}

func TestCreateReport_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		token string
		want  int
	}{
		{"malformed json", `{"type":`, "", http.StatusBadRequest},
		{"out of range", `{"type":"fire","location":{"latitude":95,"longitude":90}}`, "", http.StatusBadRequest},
		{"unknown type", `{"type":"meteor","location":{"latitude":23,"longitude":90}}`, "", http.StatusBadRequest},
		{"bad token", `{"type":"fire","location":{"latitude":23,"longitude":90}}`, "garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			rec := h.do(http.MethodPost, "/api/emergency-reports", tt.body, tt.token)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			decode(t, rec, &body)
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, 0, h.clusters.triggers)
		})
	}
}

func TestUpdateReport(t *testing.T) {
	h := newHarness(t, true, ownedReport("a", "u-1"))

	rec := h.do(http.MethodPatch, "/api/emergency-reports/a", `{"status":"resolved"}`, h.token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.EmergencyReport
	decode(t, rec, &updated)
	assert.Equal(t, domain.StatusResolved, updated.Status)
	assert.Equal(t, 1, h.clusters.triggers)
}

func TestUpdateReport_Auth(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		userID string
		body   string
		want   int
	}{
		{"missing token", "a", "", `{"status":"resolved"}`, http.StatusUnauthorized},
		{"other user", "a", "u-2", `{"status":"resolved"}`, http.StatusForbidden},
		{"unknown id", "zzz", "u-1", `{"status":"resolved"}`, http.StatusNotFound},
		{"invalid patch", "a", "u-1", `{"urgency":"severe"}`, http.StatusBadRequest},
		{"empty patch", "a", "u-1", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true, ownedReport("a", "u-1"))
			token := ""
			if tt.userID != "" {
				token = h.token(t, tt.userID)
			}

			rec := h.do(http.MethodPatch, "/api/emergency-reports/"+tt.id, tt.body, token)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, 0, h.clusters.triggers)
		})
	}
}

func TestUpdateReport_OpenWithoutVerifier(t *testing.T) {
	h := newHarness(t, false, ownedReport("a", "u-1"))

	rec := h.do(http.MethodPatch, "/api/emergency-reports/a", `{"urgency":"critical"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteReport(t *testing.T) {
	h := newHarness(t, true, ownedReport("a", "u-1"), ownedReport("b", "u-1"))

	rec := h.do(http.MethodDelete, "/api/emergency-reports/a", "", h.token(t, "u-2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodDelete, "/api/emergency-reports/a", "", h.token(t, "u-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.clusters.triggers)

	rec = h.do(http.MethodDelete, "/api/emergency-reports/a", "", h.token(t, "u-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- clusters ---

func TestGetClusters_BeforeFirstSnapshot(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(http.MethodGet, "/api/clusters", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetClusters(t *testing.T) {
	h := newHarness(t, false)
	h.clusters.latest = testSnapshot(t)

	rec := h.do(http.MethodGet, "/api/clusters?view=markers", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SnapshotID string          `json:"snapshotId"`
		Seq        uint64          `json:"seq"`
		View       string          `json:"view"`
		Markers    []domain.Marker `json:"markers"`
		Diff       domain.ClusterDiff
	}
	decode(t, rec, &body)
	assert.Equal(t, "snap-1", body.SnapshotID)
	assert.Equal(t, uint64(3), body.Seq)
	assert.Equal(t, domain.MarkersView, body.View)
	require.Len(t, body.Markers, 1)
	assert.Equal(t, 2, body.Markers[0].Count)
	assert.Equal(t, []string{"23.7925_90.4155|flood"}, body.Diff.Added)
}

func TestGetClusters_UnknownView(t *testing.T) {
	h := newHarness(t, false)
	h.clusters.latest = testSnapshot(t)

	rec := h.do(http.MethodGet, "/api/clusters?view=satellite", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The first default profile is the heatmap, which this snapshot lacks.
	rec = h.do(http.MethodGet, "/api/clusters", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/clusters?view=markers&format=kml", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetClusters_GeoJSON(t *testing.T) {
	h := newHarness(t, false)
	h.clusters.latest = testSnapshot(t)

	rec := h.do(http.MethodGet, "/api/clusters?view=markers&format=geojson", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			ID       string `json:"id"`
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties domain.Marker `json:"properties"`
		} `json:"features"`
	}
	decode(t, rec, &fc)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, [2]float64{90.4155, 23.7925}, f.Geometry.Coordinates)
	assert.Equal(t, 2, f.Properties.Count)
}

func TestRefreshClusters(t *testing.T) {
	t.Run("returns the new snapshot", func(t *testing.T) {
		h := newHarness(t, false)
		h.clusters.refreshed = testSnapshot(t)

		rec := h.do(http.MethodPost, "/api/clusters/refresh", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var snap domain.Snapshot
		decode(t, rec, &snap)
		assert.Equal(t, "snap-1", snap.ID)
	})

	t.Run("superseded returns latest", func(t *testing.T) {
		h := newHarness(t, false)
		h.clusters.latest = testSnapshot(t)
		h.clusters.refreshErr = refresh.ErrSuperseded

		rec := h.do(http.MethodPost, "/api/clusters/refresh", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var snap domain.Snapshot
		decode(t, rec, &snap)
		assert.Equal(t, uint64(3), snap.Seq)
	})

	t.Run("source failure", func(t *testing.T) {
		h := newHarness(t, false)
		h.clusters.refreshErr = errors.New("fetch reports: timeout")

		rec := h.do(http.MethodPost, "/api/clusters/refresh", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// --- updates and contact ---

func TestNews(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodPost, "/api/updates", `{"title":"Shelter open","content":"Mirpur school"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/updates", `{"title":"","content":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/updates", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var news []domain.News
	decode(t, rec, &news)
	require.Len(t, news, 1)
	assert.Equal(t, "Shelter open", news[0].Title)
}

func TestContact(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodPost, "/api/contact", `{"name":"Rahim","email":"r@example.com","message":"Need boats"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.content.contacts, 1)

	rec = h.do(http.MethodPost, "/api/contact", `{"name":"Rahim","email":"nope","message":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "a valid email is required", body["message"])
}
