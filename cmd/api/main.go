// Package main is the entrypoint for the labsite API server.
//
// Startup lifecycle:
//  1. Load configuration from the environment (.env honored locally).
//  2. Initialize the structured logger.
//  3. Open the Postgres pool and construct repositories.
//  4. Initialize AWS clients (SQS for the email queue, CloudWatch for
//     metrics) unless running locally without AWS.
//  5. Wire the identity client, admin resolver, and domain handlers.
//  6. Mount routes and serve HTTP with graceful shutdown.
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"labsite/internal/api/handlers"
	"labsite/internal/auth"
	"labsite/internal/config"
	"labsite/internal/core"
	"labsite/internal/db"
	"labsite/internal/external"
	"labsite/internal/metrics"
	"labsite/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// The env provider resolves secrets from environment variables; swap in
	// an SSM-backed provider here when the deployment target supplies one.
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("labsite API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx := context.Background()

	// Database pool and repositories.
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	srv.Cleanup = append(srv.Cleanup, func() error {
		pool.Close()
		return nil
	})
	srv.HealthProbes = append(srv.HealthProbes, core.PingProbe{
		ProbeName: "database",
		PingFn:    pool.Ping,
	})

	pageRepo := db.NewPageRepository(pool)
	postRepo := db.NewPostRepository(pool)
	draftRepo := db.NewDraftRepository(pool)
	linkRepo := db.NewMagicLinkRepository(pool)

	// AWS clients. EndpointURL points at LocalStack during local development.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}
	endpointOverride := func(endpoint string) func(o *sqs.Options) {
		return func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}
	var sqsClient *sqs.Client
	if cfg.AWS.EndpointURL != "" {
		sqsClient = sqs.NewFromConfig(awsCfg, endpointOverride(cfg.AWS.EndpointURL))
	} else {
		sqsClient = sqs.NewFromConfig(awsCfg)
	}

	// CloudWatch metrics are skipped locally; the noop collector keeps the
	// middleware chain identical across environments.
	if cfg.Environment == "local" {
		srv.Metrics = metrics.NoopCollector{}
	} else {
		cwClient := cloudwatch.NewFromConfig(awsCfg)
		srv.Metrics = metrics.NewCloudWatchCollector(cwClient, cfg.AWS.MetricNamespace, logger)
	}

	// Identity lookup and admin resolution.
	identity := external.NewIdentityClient(
		&http.Client{Timeout: 5 * time.Second},
		cfg.Identity,
		logger,
	)
	allowlist := auth.BuildAllowlist(cfg.Lab.AdminEmails, cfg.Lab.AdminEmailsExtra)
	if len(allowlist) == 0 {
		logger.Warn("admin allowlist is empty; all Lab requests will be refused")
	}
	srv.Admin = auth.NewAdminResolver(allowlist, identity.Lookup, logger)

	// Public route group: auth, magic-link login, and published content.
	passcodeVerifier := auth.NewPasscodeVerifier(cfg.Lab.Passcode, cfg.Lab.PasscodeHash)
	cookies := handlers.DefaultCookieConfig()
	cookies.Secure = cfg.Environment != "local"

	sessionHandler := handlers.NewSessionHandler(
		passcodeVerifier,
		cfg.Lab.SessionSecret,
		cfg.Lab.SessionTTL,
		srv.Clock,
		cookies,
		srv.Validator,
		logger,
	)
	contentHandler := handlers.NewContentHandler(pageRepo, postRepo, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		sessionHandler.RegisterRoutes(r)
		contentHandler.RegisterRoutes(r)
	})

	if cfg.Feature.EnableMagicLink {
		publisher := queue.NewEmailPublisher(sqsClient, cfg.AWS, srv.Clock, logger)
		magicLinkHandler := handlers.NewMagicLinkHandler(
			linkRepo,
			publisher,
			allowlist,
			cfg.Lab.SessionSecret,
			cfg.Lab.SessionTTL,
			cfg.Lab.MagicLinkTTL,
			cfg.Server.SiteURL,
			srv.Clock,
			cookies,
			srv.Validator,
			logger,
		)
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, magicLinkHandler.RegisterRoutes)

		// Background sweep of expired, unconsumed login tokens.
		janitorCtx, stopJanitor := context.WithCancel(ctx)
		srv.Cleanup = append(srv.Cleanup, func() error {
			stopJanitor()
			return nil
		})
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-janitorCtx.Done():
					return
				case <-ticker.C:
					n, err := linkRepo.DeleteExpired(janitorCtx, time.Now())
					if err != nil {
						logger.Error("magic-link cleanup failed", "error", err)
						continue
					}
					if n > 0 {
						logger.Info("expired magic-link tokens removed", "count", n)
					}
				}
			}
		}()
	} else {
		logger.Info("magic-link login disabled by feature flag")
	}

	// Admin route group: Lab CMS endpoints behind the full authorization
	// pipeline (session verification, identity lookup, allowlist).
	pageHandler := handlers.NewPageHandler(pageRepo, srv.Clock, srv.Validator, logger)
	postHandler := handlers.NewPostHandler(postRepo, srv.Clock, srv.Validator, logger)
	draftHandler := handlers.NewDraftHandler(draftRepo, postRepo, srv.Clock, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(srv.RequireAdminMiddleware)
			pageHandler.RegisterRoutes(r)
			postHandler.RegisterRoutes(r)
			draftHandler.RegisterRoutes(r)
			if cfg.Feature.EnableCritique {
				critiqueHandler := handlers.NewCritiqueHandler(
					external.NewStubCritiqueProvider(logger),
					srv.Validator,
					logger,
				)
				critiqueHandler.RegisterRoutes(r)
			}
		})
	})

	// Mount all routes (middleware chain + versioned endpoints + health).
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Shutdown server resources (DB pool, etc.).
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
