// Command seed-admin creates the admin account used to manage the portfolio.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/service/portfolio"
	"portfolio/internal/storage"
)

func main() {
	email := flag.String("email", "", "admin email (defaults to admin.seed_email)")
	password := flag.String("password", "", "admin password (defaults to admin.seed_password or ADMIN_PASSWORD)")
	flag.Parse()

	logger := logging.New(os.Stderr, true)
	cfg, err := config.Load(os.Getenv("PORTFOLIO_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *email == "" {
		*email = cfg.Admin.SeedEmail
	}
	if *password == "" {
		*password = cfg.Admin.SeedPassword
	}
	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		logger.Fatal().Msg("email and password are required")
	}

	dbType := os.Getenv("PORTFOLIO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := portfolio.NewService(db, cfg.BasicConfig.UploadDir, int64(cfg.BasicConfig.MaxUploadMB)<<20, logger)
	exists, err := svc.AdminExists(ctx, *email)
	if err != nil {
		logger.Fatal().Err(err).Msg("check admin")
	}
	if exists {
		logger.Info().Str("email", *email).Msg("admin already exists")
		return
	}
	admin, err := svc.CreateAdmin(ctx, *email, *password)
	if err != nil {
		logger.Fatal().Err(err).Msg("create admin")
	}
	logger.Info().Int64("id", admin.ID).Str("email", admin.Email).Msg("admin created")
}
