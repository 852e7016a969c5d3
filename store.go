package serx

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/hengadev/serx/internal/store"
)

// SQLiteStore is the bundled Store, backed by database/sql and go-sqlite3.
//
// Besides the Store operations it offers Migrate(ctx, models...), which
// creates the tables of the given models, and Get(ctx, dst, id).
type SQLiteStore = store.SQLite

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an open SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return store.New(db)
}

// NewInMemoryStore opens a private in-memory SQLite database, for tests and examples.
func NewInMemoryStore() (*SQLiteStore, error) {
	return store.OpenInMemory()
}

// OpenSQLiteStore validates cfg and opens the database it describes, creating
// the database directory when missing.
func OpenSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InMemory {
		return store.OpenInMemory()
	}
	if err := os.MkdirAll(cfg.DBPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory '%s': %w", cfg.DBPath, err)
	}
	return store.Open(cfg.DBFile())
}

// LoadRegistry opens the store described by cfg, creates the tables of models
// (model name to prototype), and resolves the serializers of the definitions
// file at cfg.DefinitionsPath. The caller owns the returned store.
func LoadRegistry(ctx context.Context, cfg Config, models map[string]any, options ...RegistryOption) (*Registry, *SQLiteStore, error) {
	if cfg.DefinitionsPath == "" {
		return nil, nil, fmt.Errorf("%w: DefinitionsPath is required", ErrInvalidConfiguration)
	}
	defs, err := LoadDefinitions(cfg.DefinitionsPath)
	if err != nil {
		return nil, nil, err
	}

	st, err := OpenSQLiteStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	r, err := newRegistryWithModels(ctx, st, models, options...)
	if err == nil {
		err = r.RegisterAll(defs)
	}
	if err == nil {
		err = r.Resolve()
	}
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return r, st, nil
}

// newRegistryWithModels migrates and registers models, in name order.
func newRegistryWithModels(ctx context.Context, st *SQLiteStore, models map[string]any, options ...RegistryOption) (*Registry, error) {
	r, err := NewRegistry(st, options...)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.RegisterModel(name, models[name]); err != nil {
			return nil, err
		}
	}
	if err := st.Migrate(ctx, r.Prototypes()...); err != nil {
		return nil, err
	}
	return r, nil
}
