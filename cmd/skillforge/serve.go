// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/internal/auth"
	authpg "github.com/skillforge/skillforge/internal/auth/postgres"
	"github.com/skillforge/skillforge/internal/config"
	"github.com/skillforge/skillforge/internal/logging"
	"github.com/skillforge/skillforge/internal/observability"
	"github.com/skillforge/skillforge/internal/progress"
	progresspg "github.com/skillforge/skillforge/internal/progress/postgres"
	"github.com/skillforge/skillforge/internal/store"
	"github.com/skillforge/skillforge/internal/web"
	"github.com/skillforge/skillforge/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SkillForge API server",
		Long: `Start the API server: session-based authentication, account management,
and per-user module progress. Also starts the metrics/health listener
unless --metrics-addr is empty.`,
		RunE: runServe,
	}
	config.Flags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.Setup("skillforge", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := authpg.NewUserRepository(pool)
	sessions := authpg.NewSessionRepository(pool)
	progressRepo := progresspg.NewRepository(pool)

	sessionMgr, err := auth.NewSessionManager(sessions, cfg.SessionTTL, logger)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(users, sessionMgr, auth.NewBcryptHasher(cfg.BcryptCost), logger)
	if err != nil {
		return err
	}
	guard, err := auth.NewGuard(sessionMgr, users, logger)
	if err != nil {
		return err
	}
	tracker, err := progress.NewTracker(progressRepo, logger)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obs *observability.Server
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err = obs.Start()
		if err != nil {
			return err
		}
		metrics = obs.Metrics()
	}

	srv, err := web.NewServer(authSvc, guard, tracker, metrics, web.Options{
		Addr:         cfg.ListenAddr,
		CookieSecure: cfg.CookieSecure,
		TLSCert:      cfg.TLSCert,
		TLSKey:       cfg.TLSKey,
	}, logger)
	if err != nil {
		return err
	}

	webErrCh := make(chan error, 1)
	go func() {
		webErrCh <- srv.Start()
	}()

	go sweepLoop(ctx, authSvc, metrics, cfg.SweepInterval, logger)

	logger.Info("server started",
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"tls", cfg.TLSEnabled(),
		"session_ttl", cfg.SessionTTL.String(),
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-webErrCh:
		if runErr != nil {
			errutil.LogError(logger, "web server failed", runErr)
		}
	case obsErr, ok := <-obsErrCh:
		if ok && obsErr != nil {
			runErr = obsErr
			errutil.LogError(logger, "observability server failed", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		errutil.LogWarn(logger, "web server shutdown failed", err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			errutil.LogWarn(logger, "observability server shutdown failed", err)
		}
	}

	logger.Info("server stopped")
	return runErr
}

// sweepLoop purges expired sessions on a fixed interval until ctx is done.
// Sweep failures are logged and the loop keeps going; a transient database
// hiccup should not kill background cleanup.
func sweepLoop(ctx context.Context, authSvc *auth.Service, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authSvc.SweepSessions(ctx)
			if err != nil {
				errutil.LogWarn(logger, "session sweep failed", err)
				continue
			}
			if removed > 0 {
				logger.Debug("swept expired sessions", "removed", removed)
				if metrics != nil {
					metrics.SessionsSwept.Add(float64(removed))
				}
			}
		}
	}
}
