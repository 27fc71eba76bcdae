package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/orchestrator"
)

type fakeRunReader struct {
	runs map[uuid.UUID]*db.DiscoveryRun
	list []db.DiscoveryRun
}

func (f *fakeRunReader) GetRun(ctx context.Context, runID uuid.UUID) (*db.DiscoveryRun, error) {
	return f.runs[runID], nil
}

func (f *fakeRunReader) ListRuns(ctx context.Context, filters db.RunFilters) ([]db.DiscoveryRun, error) {
	return f.list, nil
}

type fakeBagReader struct {
	bags  map[string]*db.CuratedBag
	items []db.BagItem
}

func (f *fakeBagReader) GetBagByCode(ctx context.Context, code string) (*db.CuratedBag, error) {
	return f.bags[code], nil
}

func (f *fakeBagReader) ListBagItems(ctx context.Context, bagID uuid.UUID) ([]db.BagItem, error) {
	return f.items, nil
}

type fakeGapStore struct{}

func (f *fakeGapStore) ListProductsByVertical(ctx context.Context, vertical string) ([]db.LibraryProduct, error) {
	return nil, nil
}

func (f *fakeGapStore) UpsertGap(ctx context.Context, gap *db.LibraryGap) error { return nil }

func (f *fakeGapStore) ListGaps(ctx context.Context, filters db.GapFilters) ([]db.LibraryGap, error) {
	return []db.LibraryGap{{Vertical: filters.Vertical, DisplayName: "Mystery Gear", Priority: 5}}, nil
}

func (f *fakeGapStore) CountGapsByVertical(ctx context.Context) (map[string]int, error) {
	return map[string]int{"golf": 1}, nil
}

func (f *fakeGapStore) CountGapsSince(ctx context.Context, vertical string, since time.Time) (int, error) {
	return 0, nil
}

type launcherCall struct {
	cfg config.RunConfig
}

func newTestServer(t *testing.T, runs *fakeRunReader, bags *fakeBagReader, calls chan launcherCall) (*Server, string) {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	if runs == nil {
		runs = &fakeRunReader{runs: map[uuid.UUID]*db.DiscoveryRun{}}
	}
	if bags == nil {
		bags = &fakeBagReader{bags: map[string]*db.CuratedBag{}}
	}

	jwtService := testJWTService()
	base := config.DefaultRunConfig()
	base.DatabaseURL = "postgres://localhost/test"
	base.GeminiAPIKey = "server-side-key"
	base.AutoPublish = true

	launcher := func(ctx context.Context, cfg config.RunConfig) (*orchestrator.RunReport, error) {
		if calls != nil {
			calls <- launcherCall{cfg: cfg}
		}
		return &orchestrator.RunReport{RunID: uuid.New()}, nil
	}

	s := New(Config{Port: 0, BaseRun: base}, Deps{
		Runs:     runs,
		Bags:     bags,
		Gaps:     &fakeGapStore{},
		Launcher: launcher,
		JWT:      jwtService,
	})

	token, err := jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)
	return s, token
}

func doRequest(s *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil, nil)

	w := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestProtectedEndpointsRejectMissingToken(t *testing.T) {
	s, _ := newTestServer(t, nil, nil, nil)

	for _, path := range []string{"/runs", "/gaps/report", "/bags/some-code"} {
		w := doRequest(s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "expected 401 for %s", path)
	}

	w := doRequest(s, http.MethodPost, "/runs", "", []byte(`{}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTriggerRunSynchronous(t *testing.T) {
	calls := make(chan launcherCall, 1)
	s, token := newTestServer(t, nil, nil, calls)

	body := []byte(`{"verticals": ["golf"], "dry_run": true, "auto_publish": false, "gemini_api_key": "attacker-key"}`)
	w := doRequest(s, http.MethodPost, "/runs", token, body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report orchestrator.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEqual(t, uuid.Nil, report.RunID)

	call := <-calls
	assert.Equal(t, []string{"golf"}, call.cfg.Verticals)
	assert.True(t, call.cfg.DryRun)
	// Server defaults fill the gaps and secrets never come from the request.
	assert.Equal(t, config.DefaultRunConfig().QuotaBudgetUnits, call.cfg.QuotaBudgetUnits)
	assert.Equal(t, "server-side-key", call.cfg.GeminiAPIKey)
	// Publishing policy is the server's, not the caller's.
	assert.True(t, call.cfg.AutoPublish)
}

func TestTriggerRunEmptyBodyUsesDefaults(t *testing.T) {
	calls := make(chan launcherCall, 1)
	s, token := newTestServer(t, nil, nil, calls)

	// No verticals means every configured vertical: too many for a
	// synchronous response.
	w := doRequest(s, http.MethodPost, "/runs", token, nil)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "accepted")

	select {
	case call := <-calls:
		assert.Empty(t, call.cfg.Verticals)
	case <-time.After(2 * time.Second):
		t.Fatal("background launcher was never invoked")
	}
}

func TestTriggerRunRejectsUnknownVertical(t *testing.T) {
	s, token := newTestServer(t, nil, nil, nil)

	w := doRequest(s, http.MethodPost, "/runs", token, []byte(`{"verticals": ["underwater-basket-weaving"]}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown vertical")
}

func TestTriggerRunRejectsBadJSON(t *testing.T) {
	s, token := newTestServer(t, nil, nil, nil)

	w := doRequest(s, http.MethodPost, "/runs", token, []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun(t *testing.T) {
	runID := uuid.New()
	runs := &fakeRunReader{runs: map[uuid.UUID]*db.DiscoveryRun{
		runID: {ID: runID, Status: db.RunStatusCompleted, Verticals: []string{"golf"}},
	}}
	s, token := newTestServer(t, runs, nil, nil)

	w := doRequest(s, http.MethodGet, "/runs/"+runID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), runID.String())

	w = doRequest(s, http.MethodGet, "/runs/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(s, http.MethodGet, "/runs/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRuns(t *testing.T) {
	runs := &fakeRunReader{list: []db.DiscoveryRun{
		{ID: uuid.New(), Status: db.RunStatusCompleted},
		{ID: uuid.New(), Status: db.RunStatusFailed},
	}}
	s, token := newTestServer(t, runs, nil, nil)

	w := doRequest(s, http.MethodGet, "/runs?vertical=golf&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Runs  []db.DiscoveryRun `json:"runs"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Runs, 2)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	s, token := newTestServer(t, nil, nil, nil)

	for _, limit := range []string{"0", "-5", "9999", "abc"} {
		w := doRequest(s, http.MethodGet, "/runs?limit="+limit, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestGapReport(t *testing.T) {
	s, token := newTestServer(t, nil, nil, nil)

	w := doRequest(s, http.MethodGet, "/gaps/report?vertical=golf", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mystery Gear")
}

func TestGapReportRejectsBadTop(t *testing.T) {
	s, token := newTestServer(t, nil, nil, nil)

	w := doRequest(s, http.MethodGet, "/gaps/report?top=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBag(t *testing.T) {
	bagID := uuid.New()
	bags := &fakeBagReader{
		bags: map[string]*db.CuratedBag{
			"whats-in-the-bag-week-36-2026": {ID: bagID, Code: "whats-in-the-bag-week-36-2026", Title: "What's In The Bag", Vertical: "golf", Published: true},
		},
		items: []db.BagItem{{BagID: bagID, Name: "Titleist TSR3 Driver", Position: 1}},
	}
	s, token := newTestServer(t, nil, bags, nil)

	w := doRequest(s, http.MethodGet, "/bags/whats-in-the-bag-week-36-2026", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Titleist TSR3 Driver")

	w = doRequest(s, http.MethodGet, "/bags/no-such-bag", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
