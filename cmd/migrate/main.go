package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/repository"
	"github.com/modelmagic/portal/internal/services"
	"github.com/modelmagic/portal/pkg/config"
	"github.com/modelmagic/portal/pkg/database"
	"github.com/modelmagic/portal/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	// Seed the operator account when credentials are provided.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		auth := services.NewAuthService(repository.NewUserRepository(db), nil, cfg.AppURL, []byte(cfg.JWTSecret))
		admin, err := auth.CreateAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Admin")
		if err != nil {
			log.Fatal("seed admin failed", zap.Error(err))
		}
		log.Info("admin account ready", zap.String("email", admin.Email))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
