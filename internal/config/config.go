package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Parsing
	ParserConfigFile string

	// Blob storage. Backend "gcs" reads from GCSBucket; "memory" keeps
	// objects in process and only suits local development.
	BlobBackend string
	GCSBucket   string

	// Ingestion
	IngestTimeout    time.Duration
	IngestMaxRetries int
	DedupeTolerance  int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "ledgerlens"),
		DBPassword: getEnv("DB_PASSWORD", "ledgerlens"),
		DBName:     getEnv("DB_NAME", "ledgerlens"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Parsing
		ParserConfigFile: getEnv("PARSER_CONFIG_FILE", ""),

		// Blob storage
		BlobBackend: getEnv("BLOB_BACKEND", "gcs"),
		GCSBucket:   getEnv("GCS_BUCKET", "ledgerlens-statements"),

		// Ingestion
		IngestMaxRetries: getEnvInt("INGEST_MAX_RETRIES", 3),
		DedupeTolerance:  getEnvInt("DEDUP_COUNT_TOLERANCE", 5),
	}

	timeoutStr := getEnv("INGEST_TIMEOUT", "2m")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Printf("Warning: invalid INGEST_TIMEOUT value '%s', falling back to 2m\n", timeoutStr)
		timeout = 2 * time.Minute
	}
	config.IngestTimeout = timeout

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}
