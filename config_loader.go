package serx

import (
	"fmt"
	"os"
	"strconv"
)

// LoadConfigFromEnvironment loads configuration from environment variables.
//
// Optional environment variables (defaults are applied if not set):
//   - SERX_DB_PATH: database directory (default: .serx)
//   - SERX_DB_FILENAME: database filename (default: serx.db)
//   - SERX_DEFINITIONS: YAML serializer definitions file
//   - SERX_IN_MEMORY: "true" or "1" for a private in-memory database
//
// Example usage:
//
//	cfg, err := serx.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := serx.OpenSQLiteStore(cfg)
func LoadConfigFromEnvironment() (Config, error) {
	cfg := Config{
		DBPath:          os.Getenv(EnvDBPath),
		DBFilename:      getEnvOrDefault(EnvDBFilename, DefaultDBFilename),
		DefinitionsPath: os.Getenv(EnvDefinitions),
	}

	if raw := os.Getenv(EnvInMemory); raw != "" {
		inMemory, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be a boolean, got '%s'", ErrInvalidConfiguration, EnvInMemory, raw)
		}
		cfg.InMemory = inMemory
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
