package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ETL_DOTENV_PORT=9191\nETL_DOTENV_KEPT=from-file\n"), 0644))

	t.Setenv("ETL_DOTENV_KEPT", "from-env")
	t.Cleanup(func() { os.Unsetenv("ETL_DOTENV_PORT") })

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, envFile, loaded)
	assert.Equal(t, "9191", os.Getenv("ETL_DOTENV_PORT"))
	assert.Equal(t, "from-env", os.Getenv("ETL_DOTENV_KEPT"), "existing variables win")
}

func TestLoadDotEnv_NoFile(t *testing.T) {
	loaded, err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BAD-KEY=1\n"), 0644))

	_, err := LoadDotEnv(envFile)
	assert.Error(t, err)
}
