package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(false)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, 47821, cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OALPACA_PORT", "9999")
	t.Setenv("OALPACA_OLLAMAURL", "http://localhost:12345")

	cfg, err := Load(false)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "http://localhost:12345", cfg.OllamaURL)
}

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	content := `{"port": 50000, "dataDir": "/tmp/oalpaca-test"}`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".oalpaca.json"), []byte(content), 0644))

	cfg, err := Load(false)
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.Port)
	assert.Equal(t, "/tmp/oalpaca-test", cfg.DataDir)
	// Values absent from the file keep their defaults.
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
}
