// Command seed loads the regulation articles from the JSON dump and
// creates the master account. It runs offline, against the same
// database the service uses, and is safe to re-run: articles upsert by
// numero and the master account is only created when missing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

type seedConfig struct {
	Database struct {
		Host     string `env:"PGHOST" env-default:"localhost"`
		Port     int    `env:"PGPORT" env-default:"5432"`
		User     string `env:"PGUSER" env-default:"reglamento"`
		Password string `env:"PGPASSWORD"`
		Database string `env:"PGDATABASE" env-default:"reglamento"`
		SSLMode  string `env:"PGSSLMODE" env-default:"disable"`
	}

	MasterEmail    string `env:"MASTER_EMAIL"`
	MasterPassword string `env:"MASTER_PASSWORD"`
	MasterFullName string `env:"MASTER_FULL_NAME" env-default:"Administrador"`
}

// articleRecord matches the JSON dump the scraper produces.
type articleRecord struct {
	Numero     string `json:"numero"`
	Nombre     string `json:"nombre"`
	TextoLegal string `json:"textoLegal"`
	Orden      int    `json:"orden"`
}

func main() {
	articlesPath := flag.String("articles", "data/reglamento-articles.json", "path to the article JSON dump")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var cfg seedConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logger.Fatal("Failed to read environment", zap.Error(err))
	}

	ctx := context.Background()

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Database, cfg.Database.SSLMode,
	)

	db, err := database.NewConnection(ctx, &database.Config{URL: connStr})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := seedMasterUser(ctx, db, &cfg, logger); err != nil {
		logger.Fatal("Failed to seed master user", zap.Error(err))
	}

	if err := seedArticles(ctx, db, *articlesPath, logger); err != nil {
		logger.Fatal("Failed to seed articles", zap.Error(err))
	}

	logger.Info("Seed completed")
}

func seedMasterUser(ctx context.Context, db *database.DB, cfg *seedConfig, logger *zap.Logger) error {
	if cfg.MasterEmail == "" || cfg.MasterPassword == "" {
		logger.Info("MASTER_EMAIL/MASTER_PASSWORD not set, skipping master user")
		return nil
	}

	users := repositories.NewUserRepository()

	_, err := users.GetByEmail(ctx, db.Pool, cfg.MasterEmail)
	if err == nil {
		logger.Info("Master user already exists", zap.String("email", cfg.MasterEmail))
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.MasterPassword), 12)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        cfg.MasterEmail,
		FullName:     cfg.MasterFullName,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Insert(ctx, db.Pool, user); err != nil {
		return err
	}

	logger.Info("Master user created", zap.String("email", cfg.MasterEmail))
	return nil
}

func seedArticles(ctx context.Context, db *database.DB, path string, logger *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []articleRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	logger.Info("Loading articles", zap.Int("count", len(records)))

	articulos := repositories.NewArticuloRepository()

	imported := 0
	skipped := 0
	for _, record := range records {
		articulo := &models.Articulo{
			Numero:     record.Numero,
			Nombre:     record.Nombre,
			TextoLegal: record.TextoLegal,
			Orden:      record.Orden,
			EsVigente:  true,
		}

		// One bad article should not abort the import.
		if err := articulos.Upsert(ctx, db.Pool, articulo); err != nil {
			logger.Error("Failed to import article",
				zap.String("numero", record.Numero),
				zap.Error(err))
			skipped++
			continue
		}
		imported++
	}

	logger.Info("Articles imported",
		zap.Int("imported", imported),
		zap.Int("skipped", skipped))

	return nil
}
