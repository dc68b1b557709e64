package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every external setting. It is loaded once in main and
// threaded through constructors; nothing reads the environment afterwards.
type Config struct {
	DSN       string
	JWTSecret string
	AppPort   string

	TokenTTL         time.Duration
	RefreshThreshold time.Duration

	UploadDir string
	BaseURL   string

	LogLevel  string
	LogFormat string
	LogFile   string

	RateLimitEnabled bool
	RateLimitPerMin  int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	AdminUsername string
	AdminPassword string
	AdminEmail    string

	Debug bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using system environment variables")
	}

	cfg := Config{
		DSN:              os.Getenv("MYSQL_DSN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AppPort:          envOr("APP_PORT", "8080"),
		TokenTTL:         envMinutes("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
		RefreshThreshold: envMinutes("TOKEN_REFRESH_THRESHOLD_MINUTES", 30),
		UploadDir:        envOr("UPLOAD_DIR", "uploads"),
		BaseURL:          envOr("API_BASE_URL", "http://localhost:8080"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "text"),
		LogFile:          os.Getenv("LOG_FILE"),
		RateLimitEnabled: envOr("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitPerMin:  envInt("RATE_LIMIT_PER_MINUTE", 5),
		SMTPHost:         os.Getenv("MAIL_SERVER"),
		SMTPPort:         envInt("MAIL_PORT", 587),
		SMTPUser:         os.Getenv("MAIL_USERNAME"),
		SMTPPass:         os.Getenv("MAIL_PASSWORD"),
		MailFrom:         os.Getenv("MAIL_FROM"),
		AdminUsername:    envOr("FIRST_SUPERUSER", "admin"),
		AdminPassword:    os.Getenv("FIRST_SUPERUSER_PASSWORD"),
		AdminEmail:       envOr("FIRST_SUPERUSER_EMAIL", "admin@example.com"),
		Debug:            os.Getenv("DEBUG") == "true",
	}

	if cfg.DSN == "" {
		log.Fatal("MYSQL_DSN not set in environment")
	}
	if cfg.JWTSecret == "" {
		if !cfg.Debug {
			log.Fatal("JWT_SECRET not set in environment")
		}
		cfg.JWTSecret = "dev-secret-only"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func envMinutes(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Minute
}
