package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"job-scorer/internal/scorer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	result *scorer.Result
	err    error
	calls  int
}

func (s *stubRunner) Run(_ context.Context) (*scorer.Result, error) {
	s.calls++
	return s.result, s.err
}

func newTestServer(runner Runner, origins []string) *Server {
	return New(":0", runner, origins, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/score/run", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunFullSuccessReturns200(t *testing.T) {
	runner := &stubRunner{result: &scorer.Result{
		RequestID:              "req-1",
		ProcessedJobs:          3,
		ScoredAnalyses:         3,
		NotificationsTriggered: 1,
		Duration:               1500 * time.Millisecond,
	}}

	rec := doRequest(t, newTestServer(runner, []string{"*"}), http.MethodPost, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "req-1", resp.Data.RequestID)
	assert.Equal(t, 3, resp.Data.ProcessedJobs)
	assert.Equal(t, int64(1500), resp.Data.DurationMS)
	assert.Empty(t, resp.Error)
}

func TestRunPartialFailureReturns207(t *testing.T) {
	runner := &stubRunner{result: &scorer.Result{
		RequestID:     "req-1",
		ProcessedJobs: 2,
		FailedJobs:    1,
	}}

	rec := doRequest(t, newTestServer(runner, []string{"*"}), http.MethodPost, "")
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success, "partial failure still reports success with a failure count")
	assert.Equal(t, 1, resp.Data.FailedJobs)
}

func TestRunTotalFailureReturns500(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("pq: connection refused")}

	rec := doRequest(t, newTestServer(runner, []string{"*"}), http.MethodPost, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.NotContains(t, rec.Body.String(), "connection refused", "internal errors must not leak")
}

func TestRunRejectsNonPost(t *testing.T) {
	runner := &stubRunner{}
	s := newTestServer(runner, []string{"*"})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := doRequest(t, s, method, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
	assert.Zero(t, runner.calls)
}

func TestRunAnswersPreflight(t *testing.T) {
	runner := &stubRunner{}
	rec := doRequest(t, newTestServer(runner, []string{"https://app.example.com"}), http.MethodOptions, "https://app.example.com")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Zero(t, runner.calls, "preflight must not trigger a run")
}

func TestRunRejectsDisallowedOrigin(t *testing.T) {
	runner := &stubRunner{}
	rec := doRequest(t, newTestServer(runner, []string{"https://app.example.com"}), http.MethodPost, "https://evil.example.com")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunAllowsWildcardOrigin(t *testing.T) {
	runner := &stubRunner{result: &scorer.Result{RequestID: "req-1"}}
	rec := doRequest(t, newTestServer(runner, []string{"*"}), http.MethodPost, "https://anything.example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&stubRunner{}, []string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
