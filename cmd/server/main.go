// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package main is the entry point for the CityOfRecipes contest server.
//
// The server initializes components in the following order:
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. DuckDB store and the Badger notification ledger
//  3. Event bus (in-process GoChannel or NATS)
//  4. Contest, rating and notification services
//  5. Contest scheduler, websocket hub and event forwarder
//  6. HTTP server
//
// Everything long-lived runs under a suture supervisor tree. SIGINT and
// SIGTERM cancel the tree; services that miss the shutdown timeout are
// reported before exit.
//
// With JWT auth enabled, bootstrap the first admin token with:
//
//	./cityofrecipes -issue-token <user-id> -role admin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/cityofrecipes/internal/api"
	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/authz"
	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/events"
	"github.com/tomtom215/cityofrecipes/internal/ledger"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/notification"
	"github.com/tomtom215/cityofrecipes/internal/rating"
	"github.com/tomtom215/cityofrecipes/internal/scheduler"
	"github.com/tomtom215/cityofrecipes/internal/supervisor"
	"github.com/tomtom215/cityofrecipes/internal/supervisor/services"
	ws "github.com/tomtom215/cityofrecipes/internal/websocket"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a signed token for this user id and exit")
	tokenRole := flag.String("role", auth.RoleUser, "role embedded in the token printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	var tokens *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		if tokens, err = auth.NewJWTManager(&cfg.Security); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
	}

	if *issueToken != "" {
		if err := printToken(tokens, *issueToken, *tokenRole); err != nil {
			logging.Fatal().Err(err).Msg("Failed to issue token")
		}
		return
	}

	if err := run(cfg, tokens); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func printToken(tokens *auth.JWTManager, userID, role string) error {
	if tokens == nil {
		return errors.New("-issue-token requires security.auth_mode=jwt")
	}
	token, err := tokens.GenerateToken(userID, userID, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}

//nolint:gocyclo // sequential wiring
func run(cfg *config.Config, tokens *auth.JWTManager) error {
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("events_transport", cfg.Events.Transport).
		Str("notify_mode", cfg.Notify.Mode).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	notifyLedger, err := ledger.Open(&cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open notification ledger: %w", err)
	}
	defer func() {
		if err := notifyLedger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notification ledger")
		}
	}()

	bus, err := events.NewBus(&cfg.Events)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	dispatcher := notification.NewDispatcher(
		notifyLedger,
		db,
		notification.NewSender(&cfg.Notify),
		notification.NewComposer(cfg.Notify.FromName),
		cfg.Notify.MaxAttempts,
	)

	contests := contest.NewService(db, cfg.Contest,
		contest.WithNotifier(dispatcher),
		contest.WithPublisher(bus),
	)
	ratings := rating.NewService(db, rating.WithPublisher(bus))

	closer, err := scheduler.NewCloser(contests, cfg.Scheduler,
		scheduler.WithPendingRetry(func(ctx context.Context) (int, error) {
			return dispatcher.RetryPending(ctx, db)
		}),
	)
	if err != nil {
		return fmt.Errorf("initialize contest scheduler: %w", err)
	}

	authn, err := auth.NewMiddleware(&cfg.Security, tokens, api.AccessErrorWriter())
	if err != nil {
		return fmt.Errorf("initialize authentication: %w", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}

	hub := ws.NewHub()

	router := api.NewRouter(api.RouterDeps{
		Handler: api.NewHandler(api.HandlerDeps{
			Contests:  contests,
			Ratings:   ratings,
			Directory: db,
			DB:        db,
			Tokens:    tokens,
		}),
		Authenticator: authn,
		Enforcer:      enforcer,
		Middleware:    api.ChiMiddlewareConfigFromSecurity(&cfg.Security),
		WebSocket:     ws.Handler(hub, cfg.Security.CORSOrigins),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewSchedulerService(closer))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(events.NewForwarder(bus, hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
