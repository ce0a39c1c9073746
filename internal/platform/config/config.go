package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ArchiveDriverS3     = "s3"
	ArchiveDriverSQLite = "sqlite"
)

type Config struct {
	Addr                   string        `yaml:"addr"`
	Environment            string        `yaml:"env"`
	StoreDriver            string        `yaml:"store_driver"`
	DatabaseURL            string        `yaml:"database_url"`
	MigrationsDir          string        `yaml:"migrations_dir"`
	RunMigrations          bool          `yaml:"run_migrations"`
	RunSeed                bool          `yaml:"run_seed"`
	SeedAdminEmail         string        `yaml:"seed_admin_email"`
	SeedAdminPassword      string        `yaml:"seed_admin_password"`
	JWTSecret              string        `yaml:"jwt_secret"`
	TokenTTL               time.Duration `yaml:"token_ttl"`
	DataEncryptionKey      string        `yaml:"data_encryption_key"`
	MaxBodyBytes           int64         `yaml:"max_body_bytes"`
	RateLimitPerMinute     int           `yaml:"rate_limit_per_minute"`
	RetentionInterval      time.Duration `yaml:"retention_interval"`
	ScheduledDeletionGrace time.Duration `yaml:"scheduled_deletion_grace"`
	MetricsEnabled         bool          `yaml:"metrics_enabled"`
	ArchiveDriver          string        `yaml:"archive_driver"`
	ArchiveBucket          string        `yaml:"archive_bucket"`
	ArchivePrefix          string        `yaml:"archive_prefix"`
	ArchiveRegion          string        `yaml:"archive_region"`
	ArchiveEndpoint        string        `yaml:"archive_endpoint"`
	ArchivePathStyle       bool          `yaml:"archive_path_style"`
	ArchiveSQLitePath      string        `yaml:"archive_sqlite_path"`
	EmailFrom              string        `yaml:"email_from"`
	EmailEnabled           bool          `yaml:"email_enabled"`
	SMTPHost               string        `yaml:"smtp_host"`
	SMTPPort               int           `yaml:"smtp_port"`
	SMTPUser               string        `yaml:"smtp_user"`
	SMTPPassword           string        `yaml:"smtp_password"`
	SMTPUseTLS             bool          `yaml:"smtp_use_tls"`
}

func Defaults() Config {
	return Config{
		Addr:                   ":8080",
		Environment:            "development",
		StoreDriver:            StoreDriverPostgres,
		MigrationsDir:          "migrations",
		RunMigrations:          true,
		RunSeed:                true,
		TokenTTL:               12 * time.Hour,
		MaxBodyBytes:           1048576,
		RateLimitPerMinute:     60,
		RetentionInterval:      24 * time.Hour,
		ScheduledDeletionGrace: 30 * 24 * time.Hour,
		MetricsEnabled:         true,
		ArchiveDriver:          ArchiveDriverSQLite,
		ArchivePrefix:          "compliance",
		ArchiveRegion:          "us-east-1",
		ArchiveSQLitePath:      "data/archive.db",
		EmailFrom:              "no-reply@example.com",
		SMTPPort:               587,
		SMTPUseTLS:             true,
	}
}

// Load layers defaults, the optional CONFIG_FILE and then the environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("APP_ADDR", c.Addr)
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsDir = getEnv("MIGRATIONS_DIR", c.MigrationsDir)
	c.RunMigrations = getEnvBool("RUN_MIGRATIONS", c.RunMigrations)
	c.RunSeed = getEnvBool("RUN_SEED", c.RunSeed)
	c.SeedAdminEmail = getEnv("SEED_ADMIN_EMAIL", c.SeedAdminEmail)
	c.SeedAdminPassword = getEnv("SEED_ADMIN_PASSWORD", c.SeedAdminPassword)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)
	c.DataEncryptionKey = getEnv("DATA_ENCRYPTION_KEY", c.DataEncryptionKey)
	c.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(c.MaxBodyBytes)))
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RetentionInterval = getEnvDuration("RETENTION_INTERVAL", c.RetentionInterval)
	c.ScheduledDeletionGrace = getEnvDuration("SCHEDULED_DELETION_GRACE", c.ScheduledDeletionGrace)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.ArchiveDriver = getEnv("ARCHIVE_DRIVER", c.ArchiveDriver)
	c.ArchiveBucket = getEnv("ARCHIVE_BUCKET", c.ArchiveBucket)
	c.ArchivePrefix = getEnv("ARCHIVE_PREFIX", c.ArchivePrefix)
	c.ArchiveRegion = getEnv("ARCHIVE_REGION", c.ArchiveRegion)
	c.ArchiveEndpoint = getEnv("ARCHIVE_ENDPOINT", c.ArchiveEndpoint)
	c.ArchivePathStyle = getEnvBool("ARCHIVE_PATH_STYLE", c.ArchivePathStyle)
	c.ArchiveSQLitePath = getEnv("ARCHIVE_SQLITE_PATH", c.ArchiveSQLitePath)
	c.EmailFrom = getEnv("EMAIL_FROM", c.EmailFrom)
	c.EmailEnabled = getEnvBool("EMAIL_ENABLED", c.EmailEnabled)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnvInt("SMTP_PORT", c.SMTPPort)
	c.SMTPUser = getEnv("SMTP_USER", c.SMTPUser)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.SMTPUseTLS = getEnvBool("SMTP_USE_TLS", c.SMTPUseTLS)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ScheduledDeletionGrace < 0 {
		return fmt.Errorf("SCHEDULED_DELETION_GRACE must not be negative")
	}
	switch c.ArchiveDriver {
	case ArchiveDriverS3:
		if strings.TrimSpace(c.ArchiveBucket) == "" {
			return fmt.Errorf("ARCHIVE_BUCKET must be set when ARCHIVE_DRIVER is s3")
		}
	case ArchiveDriverSQLite:
		if strings.TrimSpace(c.ArchiveSQLitePath) == "" {
			return fmt.Errorf("ARCHIVE_SQLITE_PATH must be set when ARCHIVE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("ARCHIVE_DRIVER must be %q or %q", ArchiveDriverS3, ArchiveDriverSQLite)
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
