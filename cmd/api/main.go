package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/config"
	"dormtrack/internal/db"
	httpserver "dormtrack/internal/http"
	"dormtrack/internal/inspection"
	"dormtrack/internal/logging"
	"dormtrack/internal/notify"
	"dormtrack/internal/ratelimit"
	"dormtrack/internal/seed"
	"dormtrack/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb := db.Connect(cfg.DSN)
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := seed.Run(gdb, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail, logger); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	files, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, cfg.RefreshThreshold)
	svc := inspection.NewService(gdb, files, logger)
	recorder := audit.NewRecorder(gdb, logger)
	mailer := notify.NewMailer(cfg, logger)
	limiter := ratelimit.New(cfg.RateLimitPerMin, cfg.RateLimitEnabled)

	r := httpserver.NewRouter(httpserver.Deps{
		DB:      gdb,
		Tokens:  tokens,
		Svc:     svc,
		Audit:   recorder,
		Mailer:  mailer,
		Limiter: limiter,
		Log:     logger,
		BaseURL: cfg.BaseURL,
	})

	logger.Info("starting server", "port", cfg.AppPort)
	if err := r.Run(":" + cfg.AppPort); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
