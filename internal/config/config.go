package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers understood by the key-value layer
const (
	StorageDriverMemory   = "memory"
	StorageDriverBolt     = "bolt"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// File storage drivers
const (
	FileStorageLocal = "local"
	FileStorageB2    = "b2"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		PublicBaseURL string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		StoragePath   string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		MaxUploadSize int64  `yaml:"max_upload_size" env:"SERVER_MAX_UPLOAD_SIZE"`
	} `yaml:"server"`

	Storage struct {
		Driver     string `yaml:"driver" env:"STORAGE_DRIVER"`
		BoltPath   string `yaml:"bolt_path" env:"STORAGE_BOLT_PATH"`
		SQLitePath string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH"`
	} `yaml:"storage"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	FileStorage struct {
		Driver    string `yaml:"driver" env:"FILE_STORAGE_DRIVER"`
		B2KeyID   string `yaml:"b2_key_id" env:"B2_KEY_ID"`
		B2AppKey  string `yaml:"b2_app_key" env:"B2_APP_KEY"`
		B2Bucket  string `yaml:"b2_bucket" env:"B2_BUCKET"`
		B2BaseURL string `yaml:"b2_base_url" env:"B2_BASE_URL"`
	} `yaml:"file_storage"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Submissions struct {
		Retention string `yaml:"retention" env:"SUBMISSIONS_RETENTION"`
	} `yaml:"submissions"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Seed struct {
		Enabled  bool   `yaml:"enabled" env:"SEED_ENABLED"`
		Email    string `yaml:"email" env:"SEED_EMAIL"`
		Password string `yaml:"password" env:"SEED_PASSWORD"`
		Name     string `yaml:"name" env:"SEED_NAME"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from defaults, an optional YAML file,
// an optional .env file and environment variables, in that order.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env values never override variables already set in the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Server.StoragePath = "uploads"
	config.Server.MaxUploadSize = 10 << 20

	config.Storage.Driver = StorageDriverBolt
	config.Storage.BoltPath = "data/submity.db"
	config.Storage.SQLitePath = "data/submity.sqlite"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "submity"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.FileStorage.Driver = FileStorageLocal

	config.JWT.AccessTokenExpiration = "720h"
	config.JWT.Issuer = "submity.app"

	config.Submissions.Retention = "720h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Storage.Driver {
	case StorageDriverMemory, StorageDriverBolt, StorageDriverSQLite, StorageDriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	switch config.FileStorage.Driver {
	case FileStorageLocal:
	case FileStorageB2:
		if config.FileStorage.B2KeyID == "" || config.FileStorage.B2AppKey == "" || config.FileStorage.B2Bucket == "" {
			return fmt.Errorf("b2 file storage requires key id, app key and bucket")
		}
	default:
		return fmt.Errorf("unknown file storage driver %q", config.FileStorage.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.Submissions.Retention); err != nil {
		return fmt.Errorf("invalid submission retention format: %w", err)
	}

	if config.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if config.Seed.Enabled && (config.Seed.Email == "" || config.Seed.Password == "") {
		return fmt.Errorf("seed account requires email and password")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}
