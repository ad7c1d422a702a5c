// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/authnlab/passkey/pkg/metrics"
	"github.com/authnlab/passkey/pkg/ratelimit"
)

// RouterParams contains the parameters for building the server router.
type RouterParams struct {
	// Handler provides the ceremony endpoints. Required.
	Handler *Handler

	// Limiter throttles ceremony-start routes per client IP. Optional;
	// nil disables rate limiting.
	Limiter *ratelimit.Limiter

	// MetricsPath mounts the Prometheus endpoint at the given path.
	// Empty disables the endpoint.
	MetricsPath string
}

// NewRouter builds the chi router for the passkey server. Ceremony
// starts are rate limited; finishes are not, so an in-flight ceremony
// can always be completed.
func NewRouter(params RouterParams) chi.Router {
	r := chi.NewRouter()
	r.Use(metrics.HTTPMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MetricsPath != "" {
		r.Method(http.MethodGet, params.MetricsPath, promhttp.Handler())
	}

	h := params.Handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if params.Limiter != nil {
				r.Use(ratelimit.Middleware(params.Limiter))
			}
			r.Post("/registration/begin", h.BeginRegistration)
			r.Post("/login/begin", h.BeginLogin)
			r.Post("/reauthentication/begin", h.BeginReauthentication)
		})

		r.Post("/registration/finish", h.FinishRegistration)
		r.Post("/login/finish", h.FinishLogin)
		r.Post("/reauthentication/finish", h.FinishReauthentication)

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Get("/users", h.Users)
	})

	return r
}
