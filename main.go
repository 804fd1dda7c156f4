package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/config"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/handlers"
	"github.com/delfino-cr/reglamento-engine/pkg/logging"
	"github.com/delfino-cr/reglamento-engine/pkg/middleware"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	articuloRepo := repositories.NewArticuloRepository()
	anotacionRepo := repositories.NewAnotacionRepository()
	referenciaRepo := repositories.NewReferenciaRepository()
	tipoRepo := repositories.NewTipoRepository()
	userRepo := repositories.NewUserRepository()
	auditRepo := repositories.NewAuditRepository()

	// Services
	authService := auth.NewAuthService(db, userRepo, &cfg.Auth, logger)
	anotacionService := services.NewAnotacionService(db, anotacionRepo, articuloRepo, tipoRepo, referenciaRepo, auditRepo, logger)
	referenciaService := services.NewReferenciaService(db, referenciaRepo, tipoRepo, articuloRepo, anotacionRepo, auditRepo, logger)
	userService := services.NewUserService(db, userRepo, auditRepo, &cfg.Auth, logger)
	articuloService := services.NewArticuloService(db, articuloRepo, anotacionRepo, tipoRepo)
	auditService := services.NewAuditService(db, auditRepo)

	authMiddleware := auth.NewMiddleware(authService, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, cfg, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewArticuloHandler(articuloService, logger).RegisterRoutes(mux)
	handlers.NewAnotacionHandler(anotacionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewReferenciaHandler(referenciaService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewUserHandler(userService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAuditHandler(auditService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting reglamento-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))

		var err error
		if cfg.TLSCertPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations opens a short-lived database/sql connection for
// golang-migrate; the pgx pool stays dedicated to request traffic.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}
