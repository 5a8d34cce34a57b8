// Package config loads the firefly-sync configuration from environment
// variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Firefly FireflyConfig
	Kresus  KresusConfig
	Sync    SyncConfig
	Paths   PathsConfig
	Debug   bool
}

// FireflyConfig represents Firefly III API configuration.
type FireflyConfig struct {
	APIURL      string
	AccessToken string
}

// KresusConfig represents Kresus configuration.
type KresusConfig struct {
	APIURL      string
	MappingPath string
}

// SyncConfig tunes the reconciliation engine.
type SyncConfig struct {
	StartDate           civil.Date // zero when unset
	DateToleranceDays   int
	SimilarityThreshold int
	Concurrency         int
	OperationTimeout    time.Duration
	DefaultCurrency     string
}

// PathsConfig holds local storage locations. Empty values fall back to
// defaults under DataDir.
type PathsConfig struct {
	DataDir    string
	DBPath     string
	ReportsDir string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	var startDate civil.Date
	if s := strings.TrimSpace(os.Getenv("START_DATE")); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("invalid START_DATE: %w", err)
		}
		startDate = d
	}

	tolerance, err := parseIntEnv("SYNC_DATE_TOLERANCE_DAYS", 0)
	if err != nil {
		return nil, err
	}
	threshold, err := parseIntEnv("SYNC_SIMILARITY_THRESHOLD", 80)
	if err != nil {
		return nil, err
	}
	// Zero selects the matcher default, so it is not a valid setting.
	if threshold < 1 || threshold > 100 {
		return nil, fmt.Errorf("invalid SYNC_SIMILARITY_THRESHOLD: %d is not between 1 and 100", threshold)
	}
	concurrency, err := parseIntEnv("SYNC_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDurationEnv("SYNC_OPERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Firefly: FireflyConfig{
			APIURL:      getEnvOrDefault("FIREFLY_API_URL", "http://localhost:8080"),
			AccessToken: os.Getenv("FIREFLY_API_TOKEN"),
		},
		Kresus: KresusConfig{
			APIURL:      os.Getenv("KRESUS_API_URL"),
			MappingPath: getEnvOrDefault("ACCOUNT_MAPPING_PATH", "./config/account-mapping.yaml"),
		},
		Sync: SyncConfig{
			StartDate:           startDate,
			DateToleranceDays:   tolerance,
			SimilarityThreshold: threshold,
			Concurrency:         concurrency,
			OperationTimeout:    timeout,
			DefaultCurrency:     getEnvOrDefault("SYNC_DEFAULT_CURRENCY", "EUR"),
		},
		Paths: PathsConfig{
			DataDir:    getEnvOrDefault("SYNC_DATA_DIR", "./data"),
			DBPath:     os.Getenv("SYNC_DB_PATH"),
			ReportsDir: os.Getenv("SYNC_REPORTS_DIR"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "firefly":
			switch path[1] {
			case "apiUrl":
				value = c.Firefly.APIURL
			case "accessToken":
				value = c.Firefly.AccessToken
			}
		case "kresus":
			switch path[1] {
			case "apiUrl":
				value = c.Kresus.APIURL
			case "mappingPath":
				value = c.Kresus.MappingPath
			}
		case "paths":
			switch path[1] {
			case "dataDir":
				value = c.Paths.DataDir
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("invalid value for %s: %d is negative", key, parsed)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	return parsed, nil
}
