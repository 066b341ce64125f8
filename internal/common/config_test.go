package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	require.Equal(t, "pipeline.db", cfg.Ledger.Path)
	require.Equal(t, 3, cfg.Runner.MaxAttempts)
	require.Equal(t, 750*time.Millisecond, cfg.Runner.ItemDelay)
	require.Equal(t, 60*time.Second, cfg.Runner.MaxDelay)
	require.Equal(t, 100, cfg.Incopat.MinPDFKB)
	require.Equal(t, 1, cfg.Output.FlushEvery)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LEDGER_PATH", "/var/lib/pipeline/ledger.db")
	t.Setenv("RUNNER_MAX_ATTEMPTS", "5")
	t.Setenv("RUNNER_ITEM_DELAY", "2s")
	t.Setenv("OCR_COMMAND", "my-ocr")

	cfg := LoadConfig()
	require.Equal(t, "/var/lib/pipeline/ledger.db", cfg.Ledger.Path)
	require.Equal(t, 5, cfg.Runner.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Runner.ItemDelay)
	require.Equal(t, "my-ocr", cfg.OCR.Command)
}

func TestLoadConfigIgnoresUnparsableEnv(t *testing.T) {
	t.Setenv("RUNNER_MAX_ATTEMPTS", "many")
	t.Setenv("RUNNER_ITEM_DELAY", "soon")

	cfg := LoadConfig()
	require.Equal(t, 3, cfg.Runner.MaxAttempts)
	require.Equal(t, 750*time.Millisecond, cfg.Runner.ItemDelay)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runner:
  max_attempts: 7
incopat:
  base_url: https://example.test
  username: alice
`), 0o644))

	cfg := LoadConfig()
	require.NoError(t, LoadConfigFile(cfg, path))

	require.Equal(t, 7, cfg.Runner.MaxAttempts)
	require.Equal(t, "https://example.test", cfg.Incopat.BaseURL)
	require.Equal(t, "alice", cfg.Incopat.Username)
	// keys absent from the file keep their defaults
	require.Equal(t, "pipeline.db", cfg.Ledger.Path)
	require.Equal(t, 1, cfg.Output.FlushEvery)
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg := LoadConfig()
	err := LoadConfigFile(cfg, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config { return LoadConfig() }

	cfg := base()
	cfg.Ledger.Path = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Runner.MaxAttempts = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Runner.ItemDelay = 2 * time.Minute // above max_delay
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Output.FlushEvery = 0
	require.Error(t, cfg.Validate())
}
