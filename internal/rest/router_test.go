// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/logging"
	"github.com/authnlab/passkey/pkg/ratelimit"
	"github.com/authnlab/passkey/pkg/session"
	"github.com/authnlab/passkey/pkg/webauthn"
)

func newTestRouter(t *testing.T, params RouterParams) http.Handler {
	t.Helper()

	repo := credentials.NewMemoryRepository()
	engine, err := webauthn.NewEngine(webauthn.EngineParams{
		Config: &webauthn.Config{
			RPID:          "example.com",
			RPDisplayName: "Example",
			RPOrigins:     []string{"https://example.com"},
		},
		Repository: repo,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	manager, err := session.NewManager(engine, repo)
	require.NoError(t, err)

	handler, err := NewHandler(HandlerParams{Sessions: manager, Logger: logging.Discard()})
	require.NoError(t, err)

	params.Handler = handler
	return NewRouter(params)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, RouterParams{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, RouterParams{MetricsPath: "/metrics"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "passkey_")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	router := newTestRouter(t, RouterParams{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBeginRoutesRateLimited(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             1,
	})
	defer limiter.Stop()

	router := newTestRouter(t, RouterParams{Limiter: limiter})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/begin", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Finish routes stay reachable so in-flight ceremonies can complete.
	finish := httptest.NewRequest(http.MethodPost, "/api/v1/login/finish", nil)
	finish.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, finish)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, RouterParams{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/login/begin", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
