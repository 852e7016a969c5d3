package serx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		t.Setenv(EnvDBFilename, "")
		t.Setenv(EnvDefinitions, "")
		t.Setenv(EnvInMemory, "")

		cfg, err := LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, DefaultDBFilename, cfg.DBFilename)
		assert.Equal(t, DefaultDBPath, filepath.Base(cfg.DBPath))
		assert.Empty(t, cfg.DefinitionsPath)
		assert.False(t, cfg.InMemory)
	})

	t.Run("from environment", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvDBPath, dir)
		t.Setenv(EnvDBFilename, "app.db")
		t.Setenv(EnvDefinitions, "defs.yaml")
		t.Setenv(EnvInMemory, "1")

		cfg, err := LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "app.db"), cfg.DBFile())
		assert.Equal(t, "defs.yaml", cfg.DefinitionsPath)
		assert.True(t, cfg.InMemory)
	})

	t.Run("invalid boolean", func(t *testing.T) {
		t.Setenv(EnvInMemory, "sometimes")

		_, err := LoadConfigFromEnvironment()
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.ErrorContains(t, err, EnvInMemory)
	})

	t.Run("filename with separator", func(t *testing.T) {
		t.Setenv(EnvInMemory, "")
		t.Setenv(EnvDBFilename, "nested/app.db")

		_, err := LoadConfigFromEnvironment()
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{DBPath: "/var/lib/app"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/var/lib/app", cfg.DBPath)
	assert.Equal(t, DefaultDBFilename, cfg.DBFilename)
	assert.Equal(t, filepath.Join("/var/lib/app", DefaultDBFilename), cfg.DBFile())
}

func TestOpenSQLiteStore(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		st, err := OpenSQLiteStore(Config{InMemory: true})
		require.NoError(t, err)
		defer st.Close()
		require.NoError(t, st.DB().Ping())
	})

	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		st, err := OpenSQLiteStore(Config{DBPath: dir, DBFilename: "test.db"})
		require.NoError(t, err)
		defer st.Close()

		require.NoError(t, st.Migrate(context.Background(), &FooModel{}))
		_, err = os.Stat(filepath.Join(dir, "test.db"))
		assert.NoError(t, err)
	})
}

func TestLoadRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultDefinitionsFile)
	require.NoError(t, os.WriteFile(path, []byte(testDefinitionsYAML), 0o644))

	r, st, err := LoadRegistry(ctx, Config{InMemory: true, DefinitionsPath: path}, testModels())
	require.NoError(t, err)
	defer st.Close()

	foo := mustSerializer(t, r, "foo")
	saved, err := Save[FooModel](ctx, foo, Data{"test_field_a": "x", "bars": []any{Data{"number": 4}}})
	require.NoError(t, err)

	data, err := foo.Serialize(ctx, saved)
	require.NoError(t, err)
	assert.Len(t, data["bars"], 1)

	_, _, err = LoadRegistry(ctx, Config{InMemory: true}, testModels())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, _, err = LoadRegistry(ctx, Config{InMemory: true, DefinitionsPath: path}, map[string]any{"foo": FooModel{}})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
