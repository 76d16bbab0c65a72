package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Document store selection
	Store StoreConfig

	// Mongo configuration, used when Store.Driver is "mongo"
	Mongo MongoConfig

	// Database configuration, used when Store.Driver is "postgres"
	Database DatabaseConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	// APIToken, when set, is required as a bearer token on write routes
	APIToken string
}

// StoreConfig selects the document store driver
type StoreConfig struct {
	Driver string
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// ClientConfig holds settings for the API client and cafectl
type ClientConfig struct {
	BaseURL     string
	Token       string
	Language    string
	MirrorPath  string
	DedupWindow time.Duration
	Timeout     time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
			APIToken:        getEnv("API_TOKEN", ""),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", DriverMongo),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "breakthrough_cafe"),
			ConnectTimeout: getDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    uint64(getIntEnv("MONGO_MAX_POOL_SIZE", 20)),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "breakthrough_cafe"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadClient reads client configuration from environment variables
func LoadClient() *ClientConfig {
	return &ClientConfig{
		BaseURL:     getEnv("CAFE_API_URL", "http://localhost:8080"),
		Token:       getEnv("CAFE_API_TOKEN", ""),
		Language:    getEnv("CAFE_LANG", "zh"),
		MirrorPath:  getEnv("CAFE_MIRROR_PATH", ""),
		DedupWindow: getDurationEnv("CAFE_DEDUP_WINDOW", 2*time.Second),
		Timeout:     getDurationEnv("CAFE_HTTP_TIMEOUT", 15*time.Second),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_DATABASE is required")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: %s, %s, %s", DriverMongo, DriverPostgres, DriverMemory)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
