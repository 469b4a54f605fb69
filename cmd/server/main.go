package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"rundown/internal/auth"
	"rundown/internal/config"
	"rundown/internal/handler"
	"rundown/internal/handler/sse"
	"rundown/internal/middleware"
	"rundown/internal/repository/postgres"
	postgresRundown "rundown/internal/repository/postgres/rundown"
	"rundown/internal/service/notify"
	serviceRundown "rundown/internal/service/rundown"
	"rundown/internal/tuning"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// In dev, tee logs to a rotated file as well as stdout
	var logOut io.Writer = os.Stdout
	if cfg.Environment == "dev" {
		if logFile, err := config.SetupLogFile("logs", 5); err == nil {
			defer logFile.Close()
			logOut = io.MultiWriter(os.Stdout, logFile)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Behavioral tuning (guard thresholds, snapshot heuristics, retention)
	tun, err := tuning.Load()
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	// Create JWT verifier against the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Team authorizer: external service when configured, allow-all in dev
	var authorizer auth.Authorizer
	if cfg.TeamServiceURL != "" {
		authorizer = auth.NewTeamClient(cfg.TeamServiceURL, cfg.TeamServiceKey)
	} else {
		authorizer = auth.AllowAll{}
		logger.Warn("team service not configured, all access checks pass")
	}

	// Create pgx connection pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresRundown.NewDocumentRepository(repoConfig)
	opRepo := postgresRundown.NewOperationRepository(repoConfig)
	snapRepo := postgresRundown.NewSnapshotRepository(repoConfig)
	presenceRepo := postgresRundown.NewPresenceRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Broadcast hub (one channel per rundown subscriber)
	hub := notify.NewHub(tun.Notify.SubscriberBuffer, logger)

	// Create services
	snapshotter := serviceRundown.NewSnapshotter(docRepo, snapRepo, tun.Snapshots, logger)
	docService := serviceRundown.NewDocumentService(docRepo, logger)
	mutationService := serviceRundown.NewMutationService(docRepo, opRepo, snapshotter, txManager, hub, tun, logger)
	historyService := serviceRundown.NewHistoryService(docRepo, opRepo, tun.History, logger)
	snapshotService := serviceRundown.NewSnapshotService(docRepo, snapRepo, opRepo, snapshotter, txManager, hub, logger)
	presenceService := serviceRundown.NewPresenceService(presenceRepo, docRepo, txManager, hub, tun.Presence, logger)

	// Background sweeps: expired presence, operation-log retention
	sweeper := serviceRundown.NewSweeper(presenceRepo, opRepo, tun, logger)
	go sweeper.Run(ctx)

	logger.Info("services initialized")

	// Create handlers
	rundownHandler := handler.NewRundownHandler(docService, mutationService, authorizer, logger)
	historyHandler := handler.NewHistoryHandler(historyService, snapshotService, authorizer, logger)
	presenceHandler := handler.NewPresenceHandler(presenceService, authorizer, logger)
	streamHandler := handler.NewStreamHandler(hub, authorizer, sse.DefaultConfig(), logger)
	healthHandler := handler.NewHealthHandler(pool)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", healthHandler.HealthCheck)

	// Rundown document routes
	mux.HandleFunc("POST /api/rundowns", rundownHandler.CreateRundown)
	mux.HandleFunc("GET /api/rundowns/{id}", rundownHandler.GetRundown)
	mux.HandleFunc("POST /api/rundowns/{id}/fields", rundownHandler.ApplyFieldUpdate)
	mux.HandleFunc("POST /api/rundowns/{id}/structure", rundownHandler.ApplyStructuralOp)

	// History and snapshot routes
	mux.HandleFunc("GET /api/rundowns/{id}/history", historyHandler.History)
	mux.HandleFunc("GET /api/rundowns/{id}/snapshots", historyHandler.ListSnapshots)
	mux.HandleFunc("POST /api/rundowns/{id}/snapshots/{snapshotID}/restore", historyHandler.Restore)

	// Presence and playback routes
	mux.HandleFunc("POST /api/rundowns/{id}/presence/heartbeat", presenceHandler.Heartbeat)
	mux.HandleFunc("GET /api/rundowns/{id}/presence", presenceHandler.ActivePresence)
	mux.HandleFunc("POST /api/rundowns/{id}/control/claim", presenceHandler.ClaimControl)
	mux.HandleFunc("POST /api/rundowns/{id}/playback", presenceHandler.PublishPlayback)

	// Subscription channel (SSE)
	mux.HandleFunc("GET /api/rundowns/{id}/stream", streamHandler.Stream)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", middleware.OriginTagHeader},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
