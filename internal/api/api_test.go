package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/levelgrid/internal/api"
	"github.com/mcoot/levelgrid/internal/api/apierr"
	"github.com/mcoot/levelgrid/internal/api/middleware"
	"github.com/mcoot/levelgrid/internal/api/response"
	"github.com/mcoot/levelgrid/internal/factory"
	"github.com/mcoot/levelgrid/internal/testutil"
)

const testSecret = "cron-secret"

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, secretHash []byte) *testServer {
	t.Helper()

	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:              testutil.NopLogger(),
		Clock:               app.Clock,
		DeleteCheckService:  app.DeleteCheckService,
		LevelService:        app.LevelService,
		SchedulerSecretHash: secretHash,
		MetricsHandler:      app.MetricsHandler(),
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

// Registration endpoints

func TestRegisterAndListRegistrations(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "t2_abc"}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "alice"}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/deletecheck/registrations", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	list := decode[response.RegistrationList](t, rr)
	require.Len(t, list.Registrations, 2)
	spaces := map[string]string{}
	for _, r := range list.Registrations {
		spaces[r.Key] = r.Space
		assert.Equal(t, ts.app.MockClock.Now().UnixMilli(), r.LastCheckedAtMs)
	}
	assert.Equal(t, map[string]string{"t2_abc": "account_id", "alice": "username"}, spaces)
}

func TestListRegistrationsStaleBefore(t *testing.T) {
	ts := newTestServer(t, nil)
	before := ts.app.MockClock.Now().UnixMilli() - 1

	rr := ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "t2_abc"}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/deletecheck/registrations?stale_before="+strconv.FormatInt(before, 10), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.RegistrationList](t, rr).Registrations)
}

func TestListRegistrationsRejectsBadStaleBefore(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/v1/deletecheck/registrations?stale_before=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestRegisterRequiresKey(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidIdentifier, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestUnregister(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "t2_abc"}, nil)

	rr := ts.request(http.MethodDelete, "/api/v1/deletecheck/registrations/t2_abc", nil, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Unknown keys are fine too
	rr = ts.request(http.MethodDelete, "/api/v1/deletecheck/registrations/t2_abc", nil, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/deletecheck/registrations", nil, nil)
	assert.Empty(t, decode[response.RegistrationList](t, rr).Registrations)
}

// Level endpoints

func TestLevelLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	body := map[string]any{"owner": "t2_abc", "data": map[string]any{"rows": 3}}
	rr := ts.request(http.MethodPut, "/api/v1/levels/spiral", body, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	saved := decode[response.Level](t, rr)
	assert.Equal(t, "spiral", saved.Name)
	assert.JSONEq(t, `{"rows":3}`, string(saved.Data))

	rr = ts.request(http.MethodGet, "/api/v1/levels/spiral", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "t2_abc", decode[response.Level](t, rr).Owner)

	rr = ts.request(http.MethodGet, "/api/v1/levels?owner=t2_abc", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"spiral"}, decode[response.LevelList](t, rr).Levels)

	rr = ts.request(http.MethodDelete, "/api/v1/levels/spiral", nil, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/levels/spiral", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeLevelNotFound, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestPutLevelRequiresData(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodPut, "/api/v1/levels/spiral", map[string]any{"owner": "t2_abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListLevelsRequiresOwner(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/v1/levels", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// Scheduler trigger

func TestTriggerCompletesRun(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.request(http.MethodPost, "/api/v1/deletecheck/registrations", map[string]string{"key": "t2_abc"}, nil)
	ts.request(http.MethodPut, "/api/v1/levels/spiral", map[string]any{"owner": "t2_abc", "data": []int{1}}, nil)
	ts.app.MockClock.Advance(25 * time.Hour)

	rr := ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.TriggerResponse](t, rr)
	assert.Equal(t, response.TriggerStatusComplete, resp.Status)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 1, resp.Summary.DeletedFound)
	assert.Equal(t, 1, resp.Summary.Processed)
	assert.False(t, resp.Summary.Truncated)

	rr = ts.request(http.MethodGet, "/api/v1/levels/spiral", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTriggerSkipsWhileLeaseHeld(t *testing.T) {
	ts := newTestServer(t, nil)
	ok, err := ts.app.Storage.AcquireRunLease(t.Context(), "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	rr := ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"skipped"}`, rr.Body.String())
}

func TestTriggerRequiresSecretWhenConfigured(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	require.NoError(t, err)
	ts := newTestServer(t, hash)

	rr := ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil,
		map[string]string{middleware.SchedulerSecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, response.TriggerStatusError, decode[response.TriggerResponse](t, rr).Status)

	rr = ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil,
		map[string]string{middleware.SchedulerSecretHeader: testSecret})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTriggerRejectsGet(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/internal/scheduler/delete-check", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.request(http.MethodPost, "/internal/scheduler/delete-check", nil, nil)

	rr := ts.request(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `levelgrid_deletecheck_runs_total{result="complete"} 1`)
}
