package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations

	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/auth"
	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/database"
	"github.com/tracewear/passport-engine/pkg/handlers"
	"github.com/tracewear/passport-engine/pkg/llm"
	"github.com/tracewear/passport-engine/pkg/logging"
	"github.com/tracewear/passport-engine/pkg/mapping"
	"github.com/tracewear/passport-engine/pkg/mcp"
	"github.com/tracewear/passport-engine/pkg/mcp/tools"
	"github.com/tracewear/passport-engine/pkg/middleware"
	"github.com/tracewear/passport-engine/pkg/repositories"
	"github.com/tracewear/passport-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("advisor_enabled", cfg.Advisor.IsAvailable()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs database/sql, not pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// Auth.
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	// Repositories.
	materialRepo := repositories.NewMaterialRepository()
	categoryRepo := repositories.NewCategoryRepository()
	ecoClaimRepo := repositories.NewEcoClaimRepository()
	valueMappingRepo := repositories.NewValueMappingRepository()

	// Mapping core.
	overrides, err := mapping.LoadSynonymOverrides(cfg.Mapping.SynonymOverridesPath)
	if err != nil {
		logger.Fatal("Failed to load synonym overrides", zap.Error(err))
	}
	synonyms := mapping.NewSynonymTable(overrides)
	cache := mapping.NewCache(cfg.Mapping.CacheTTL())
	cache.StartSweeper(cfg.Mapping.SweepInterval())
	defer cache.Stop()

	// Services.
	mappingService := services.NewValueMappingService(
		materialRepo, categoryRepo, ecoClaimRepo, valueMappingRepo,
		cache, synonyms, &cfg.Mapping, logger)
	catalogService := services.NewCatalogService(
		materialRepo, categoryRepo, ecoClaimRepo, valueMappingRepo,
		mappingService, logger)
	importService := services.NewImportService(mappingService, &cfg.Import, logger)

	var advisorService services.AdvisorService
	if cfg.Advisor.IsAvailable() {
		llmClient, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.Advisor.LLMBaseURL,
			Model:    cfg.Advisor.LLMModel,
			APIKey:   cfg.Advisor.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		advisorService = services.NewAdvisorService(llmClient, logger)
	}

	// HTTP routes.
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewMappingsHandler(mappingService, advisorService, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewCatalogHandler(catalogService, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewImportHandler(importService, &cfg.Import, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	// MCP tool surface for agent integrations.
	mcpServer := mcp.NewServer("passport-engine", cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
	tools.RegisterMappingTools(mcpServer.MCP(), &tools.MappingToolDeps{
		DB:             db,
		MappingService: mappingService,
		Logger:         logger,
	})
	mux.Handle("/mcp", authMiddleware.RequireAuth(
		mcpServer.NewStreamableHTTPServer().ServeHTTP))

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting passport-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
