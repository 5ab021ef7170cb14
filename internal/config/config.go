package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Guest store backends
const (
	GuestStorePostgres = "postgres"
	GuestStoreFile     = "file"
	GuestStoreMemory   = "memory"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	GuestStore  GuestStoreConfig
	CartAPI     CartAPIConfig
	API         APIConfig
	LogLevel    string
	// MergeConcurrency bounds concurrent line submissions of one guest cart merge
	MergeConcurrency int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GuestStoreConfig selects where guest cart documents live
type GuestStoreConfig struct {
	Backend string // GUEST_STORE: postgres | file | memory
	Dir     string // GUEST_STORE_DIR, used by the file backend
}

// CartAPIConfig is used by CLI tools to reach a running cart service
type CartAPIConfig struct {
	BaseURL    string // CART_API_URL, e.g. http://localhost:8080
	ServiceKey string // CART_API_KEY
}

type APIConfig struct {
	// ServiceKeyHash is the bcrypt hash of the key trusted callers present on /v1/cart routes
	ServiceKeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("GUEST_STORE", GuestStorePostgres)
	viper.SetDefault("MERGE_CONCURRENCY", "4")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	concurrency, err := strconv.Atoi(getEnvOrViper("MERGE_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("MERGE_CONCURRENCY must be an integer: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "variantcart"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		GuestStore: GuestStoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(getEnvOrViper("GUEST_STORE", GuestStorePostgres))),
			Dir:     strings.TrimSpace(getEnvOrViper("GUEST_STORE_DIR", "data/guest-carts")),
		},
		CartAPI: CartAPIConfig{
			BaseURL:    strings.TrimSpace(getEnvOrViper("CART_API_URL", "")),
			ServiceKey: strings.TrimSpace(getEnvOrViper("CART_API_KEY", "")),
		},
		API: APIConfig{
			ServiceKeyHash: strings.TrimSpace(getEnvOrViper("SERVICE_KEY_HASH", "")),
		},
		LogLevel:         getEnvOrViper("LOG_LEVEL", "info"),
		MergeConcurrency: concurrency,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot start without
func (c *Config) Validate() error {
	switch c.GuestStore.Backend {
	case GuestStorePostgres, GuestStoreMemory:
	case GuestStoreFile:
		if c.GuestStore.Dir == "" {
			return fmt.Errorf("GUEST_STORE_DIR is required when GUEST_STORE=file")
		}
	default:
		return fmt.Errorf("GUEST_STORE must be one of postgres, file, memory (got %q)", c.GuestStore.Backend)
	}
	if c.MergeConcurrency < 1 {
		return fmt.Errorf("MERGE_CONCURRENCY must be at least 1")
	}
	return nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
