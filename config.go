package serx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hengadev/serx/internal/config"
)

// Config holds the configuration of the bundled SQLite store.
//
// This struct contains only data. Configuration can be loaded from any source
// (environment variables, files, code) and passed to OpenSQLiteStore.
//
// All fields are optional (defaults are applied by Validate):
//   - DBPath: database directory (default: .serx at the project root)
//   - DBFilename: database filename (default: serx.db)
//   - DefinitionsPath: YAML serializer definitions, loaded by LoadRegistry
//   - InMemory: use a private in-memory database, DBPath and DBFilename are ignored
//
// Example usage:
//
//	cfg := serx.Config{DBPath: "/var/lib/myapp", DBFilename: "data.db"}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	store, err := serx.OpenSQLiteStore(cfg)
type Config struct {
	// DBPath is the directory where the SQLite database is stored.
	//
	// If empty, ".serx" under the project root (the closest directory holding
	// a go.mod) is used, or ".serx" relative to the working directory.
	DBPath string

	// DBFilename is the filename of the SQLite database. It must not contain a
	// path separator.
	//
	// Optional field. Default: serx.db
	DBFilename string

	// DefinitionsPath is the YAML file describing the serializers.
	//
	// Optional field.
	DefinitionsPath string

	// InMemory selects a private in-memory database.
	InMemory bool
}

// Validate checks the configuration and applies defaults to empty fields.
func (c *Config) Validate() error {
	if strings.ContainsRune(c.DBFilename, os.PathSeparator) || strings.ContainsRune(c.DBFilename, '/') {
		return fmt.Errorf("%w: DBFilename '%s' must not contain a path separator", ErrInvalidConfiguration, c.DBFilename)
	}

	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
		if cwd, err := os.Getwd(); err == nil {
			if projectRoot, err := config.FindProjectRoot(cwd); err == nil {
				c.DBPath = filepath.Join(projectRoot, DefaultDBPath)
			}
		}
	}

	if c.DBFilename == "" {
		c.DBFilename = DefaultDBFilename
	}

	return nil
}

// DBFile returns the full path of the SQLite database.
func (c Config) DBFile() string {
	return filepath.Join(c.DBPath, c.DBFilename)
}
