package config

import (
	"os"
	"strconv"
)

const (
	// DialectPostgres selects the networked PostgreSQL metadata store.
	DialectPostgres = "postgres"
	// DialectSQLite selects the single-file SQLite metadata store.
	DialectSQLite = "sqlite"

	// DefaultMaxUploadBytes is the largest accepted recording (50 MiB).
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024
)

// DatabaseConfig holds metadata store connection settings.
// URL takes precedence over the individual PostgreSQL components; when neither
// is set the service falls back to a local SQLite file at SQLitePath.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	SQLitePath         string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig controls where recordings are written and how large they may be.
type UploadConfig struct {
	BaseDir  string
	MaxBytes int64
	// Driver is "disk" (default) or "minio".
	Driver string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port        string
	Environment string
	FrontendURL string
	LogTimezone string
	Database    DatabaseConfig
	Upload      UploadConfig
	MinIO       MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
		FrontendURL: getEnv("FRONTEND_URL", "*"),
		LogTimezone: getEnv("TZ_LOG", "UTC"),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			SQLitePath:         getEnv("SQLITE_PATH", "recordings.db"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Upload: UploadConfig{
			BaseDir:  getEnv("UPLOAD_BASE_DIR", "."),
			MaxBytes: getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
			Driver:   getEnv("STORAGE_DRIVER", "disk"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Dialect reports which metadata store engine the settings point at.
func (c DatabaseConfig) Dialect() string {
	if c.URL != "" || c.Host != "" {
		return DialectPostgres
	}
	return DialectSQLite
}

// IsProduction reports whether internal error details must be hidden from clients.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil && i > 0 {
			return i
		}
	}
	return def
}
