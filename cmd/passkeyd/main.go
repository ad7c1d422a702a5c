// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// passkeyd is the passwordless relying-party server. It serves the
// ceremony endpoints over HTTP(S) with in-memory credential and
// session state.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/authnlab/passkey/internal/config"
	"github.com/authnlab/passkey/internal/rest"
	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/logging"
	"github.com/authnlab/passkey/pkg/metrics"
	"github.com/authnlab/passkey/pkg/ratelimit"
	"github.com/authnlab/passkey/pkg/session"
	"github.com/authnlab/passkey/pkg/webauthn"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "passkeyd",
		Short:         "Passwordless WebAuthn relying-party server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "passkeyd\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Version:    %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Git Commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Built:      %s\n", date)
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relying-party server",
		RunE: func(_ *cobra.Command, _ []string) error {
			// Config file override via environment.
			if configPath == "" {
				configPath = os.Getenv("PASSKEY_CONFIG")
			}
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		Debug: cfg.Debug(),
		JSON:  cfg.Logging.Format == "json",
	})
	slog.SetDefault(logger)

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	repo := credentials.NewMemoryRepository()
	engine, err := webauthn.NewEngine(webauthn.EngineParams{
		Config:     &cfg.WebAuthn,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create ceremony engine: %w", err)
	}

	manager, err := session.NewManager(engine, repo)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	var tokens *rest.TokenIssuer
	if cfg.Auth.JWTEnabled {
		tokens, err = rest.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
		if err != nil {
			return fmt.Errorf("failed to create token issuer: %w", err)
		}
	}

	handler, err := rest.NewHandler(rest.HandlerParams{
		Sessions:      manager,
		Tokens:        tokens,
		Logger:        logger,
		SecureCookies: cfg.TLS.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	limiter := ratelimit.New(&cfg.RateLimit)
	defer limiter.Stop()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := rest.NewRouter(rest.RouterParams{
		Handler:     handler,
		Limiter:     limiter,
		MetricsPath: metricsPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.StartResourceCollector(ctx, 15*time.Second,
		metrics.WithSessionCount(manager.Count),
		metrics.WithCredentialCount(repo.Count))
	defer collector.Stop()

	go pruneSessions(ctx, logger, manager, cfg.Session)

	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to load TLS configuration: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		TLSConfig:    tlsConfig,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"address", cfg.Server.Address(),
			"rp_id", cfg.WebAuthn.RPID,
			"tls", cfg.TLS.Enabled,
			"version", version)

		var err error
		if tlsConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// pruneSessions periodically drops sessions idle past their lifetime.
func pruneSessions(ctx context.Context, logger *slog.Logger, manager *session.Manager, cfg config.SessionConfig) {
	ticker := time.NewTicker(cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneIdle(cfg.MaxIdle); pruned > 0 {
				logger.Debug("pruned idle sessions", "count", pruned)
			}
		}
	}
}
