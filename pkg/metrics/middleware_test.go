// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	Enable()
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "200"))

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "200"))
	assert.Equal(t, before+1, after)
}

func TestHTTPMiddlewareStatusCodes(t *testing.T) {
	Enable()

	tests := []struct {
		name       string
		statusCode int
	}{
		{"created", http.StatusCreated},
		{"bad request", http.StatusBadRequest},
		{"conflict", http.StatusConflict},
		{"internal error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

			assert.Equal(t, tt.statusCode, rec.Code)
		})
	}
}

func TestHTTPMiddlewareWhenDisabled(t *testing.T) {
	Enable()
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("DELETE", "200"))

	Disable()
	defer Enable()

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("DELETE", "200"))
	assert.Equal(t, before, after)
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // second call must not overwrite

	assert.Equal(t, http.StatusTeapot, rw.statusCode)
}

func TestResponseWriterDefaultStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	_, err := rw.Write([]byte("body"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.True(t, rw.written)
}

func TestCeremonyTimer(t *testing.T) {
	Enable()
	before := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyLogin, ResultSuccess))

	timer := NewCeremonyTimer(CeremonyLogin)
	timer.Observe(ResultSuccess)

	after := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyLogin, ResultSuccess))
	assert.Equal(t, before+1, after)
}
