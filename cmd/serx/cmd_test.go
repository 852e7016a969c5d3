package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/serx"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitThenValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "serializers.yaml")

	out, err := run(t, "init", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created definitions file")

	_, err = run(t, "init", "-f", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "init", "-f", path, "--force")
	require.NoError(t, err)

	out, err = run(t, "validate", "-f", path, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ foo (model foo")
	assert.Contains(t, out, "bars -> bar")
	assert.Contains(t, out, "3 serializers valid")
}

func TestValidate_RelativeToDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "init", "-C", dir, "-f", "defs.yaml")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "defs.yaml"))
	require.NoError(t, err)

	out, err := run(t, "validate", "-C", dir, "-f", "defs.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "->")
}

func TestDebugLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serializers.yaml")

	out, err := run(t, "init", "-f", path, "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "definitions written")

	out, err = run(t, "validate", "-f", path, "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, "definitions loaded")
	assert.Contains(t, out, "serializer checked")
	assert.Contains(t, out, "serializer=foo")

	out, err = run(t, "validate", "-f", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "DEBUG")
}

func TestValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1"
serializers:
  foo:
    model: foo
    publish_fields: [bars]
    related: {bars: bar}
`), 0o644))

	_, err := run(t, "validate", "-f", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, serx.ErrInvalidConfiguration)

	_, err = run(t, "validate", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultDefinitionsFile(t *testing.T) {
	t.Setenv(serx.EnvDefinitions, "")
	assert.Equal(t, serx.DefaultDefinitionsFile, defaultDefinitionsFile())

	t.Setenv(serx.EnvDefinitions, "/etc/serx/defs.yaml")
	assert.Equal(t, "/etc/serx/defs.yaml", defaultDefinitionsFile())
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "serx v"+serx.Version)

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var details serx.VersionDetails
	require.NoError(t, json.Unmarshal([]byte(out), &details))
	assert.Equal(t, serx.Version, details.Version)
}
