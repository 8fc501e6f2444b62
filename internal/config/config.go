package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is loaded once at startup and
// injected into components; business logic never reads the environment
// directly.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Logger LoggerConfig
	Otel   OtelConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Stripe  StripeConfig
	Email   EmailConfig
	Queue   QueueConfig
	Scraper ScraperConfig
	Storage StorageConfig
	Sheets  SheetsConfig

	DashboardBaseURL string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type OtelConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
}

type StripeConfig struct {
	WebhookSecret string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Workers       int
	MaxRetries    int
}

type ScraperConfig struct {
	Endpoint  string
	AuthToken string
}

type StorageConfig struct {
	EndpointURL     string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// SheetsConfig configures the optional collaborative-spreadsheet export.
// Leaving Endpoint empty disables it.
type SheetsConfig struct {
	Endpoint  string
	AuthToken string
	FolderID  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "leadflow"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Logger: LoggerConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Otel: OtelConfig{
			Enabled:          getenvBool("OTEL_ENABLED", false),
			ExporterEndpoint: getenv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			ExporterProtocol: getenv("OTEL_EXPORTER_PROTOCOL", "grpc"),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "leadflow"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Stripe: StripeConfig{
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "leads@realtyleadsai.com"),
		},
		Queue: QueueConfig{
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			Workers:       getenvInt("QUEUE_WORKERS", 3),
			MaxRetries:    getenvInt("QUEUE_MAX_RETRIES", 3),
		},
		Scraper: ScraperConfig{
			Endpoint:  strings.TrimSpace(getenv("SCRAPER_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("SCRAPER_AUTH_TOKEN", "")),
		},
		Storage: StorageConfig{
			EndpointURL:     strings.TrimSpace(getenv("STORAGE_ENDPOINT_URL", "")),
			Region:          getenv("STORAGE_REGION", "us-east-1"),
			Bucket:          getenv("STORAGE_BUCKET", "leadflow-artifacts"),
			AccessKeyID:     getenv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getenv("STORAGE_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   strings.TrimSpace(getenv("STORAGE_PUBLIC_BASE_URL", "")),
		},
		Sheets: SheetsConfig{
			Endpoint:  strings.TrimSpace(getenv("SHEETS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("SHEETS_AUTH_TOKEN", "")),
			FolderID:  strings.TrimSpace(getenv("SHEETS_FOLDER_ID", "")),
		},
		DashboardBaseURL: getenv("DASHBOARD_BASE_URL", "https://app.realtyleadsai.com"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
