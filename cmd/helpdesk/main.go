package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/dittygoops/helpdesk-backend/internal/bootstrap"
	"github.com/dittygoops/helpdesk-backend/internal/cli"
	"github.com/dittygoops/helpdesk-backend/internal/config"
	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/internal/service"
	"github.com/dittygoops/helpdesk-backend/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
		if err := bootstrap.SeedDefaultGroups(db); err != nil {
			log.Fatalf("failed to seed groups: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rdb = redis.NewClient(opts)
	}

	logger := logging.NewDefault()

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	otpSvc := service.NewOTPService(otpRepo, logger)
	directorySvc := service.NewDirectoryService(db, userRepo, otpSvc, logger)
	articleSvc := service.NewArticleService(articleRepo, groupRepo, logger)
	backupSvc := service.NewBackupService(db, cfg.BackupDir, logger)
	sessions := service.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL, rdb, logger)

	app := cli.NewApp(directorySvc, articleSvc, backupSvc, sessions)
	app.Run(context.Background())
}
