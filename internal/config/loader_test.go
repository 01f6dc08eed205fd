package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/internal/config"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".histree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultInputSource, cfg.Input.Source)
	assert.Equal(t, config.DefaultInputPath, cfg.Input.Path)
	assert.Equal(t, config.DefaultSnapshotCacheSize, cfg.Snapshot.CacheSize)
	assert.True(t, cfg.Snapshot.CacheCompress)
	assert.Equal(t, config.DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, config.DefaultServerReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, config.DefaultServerWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, config.DefaultLoggingLevel, cfg.Logging.Level)
	assert.InDelta(t, config.DefaultTelemetrySample, cfg.Telemetry.SampleRatio, 1e-9)

	size, err := cfg.Snapshot.CacheBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64_000_000), size)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `input:
  source: git
  path: /srv/repo
  first_parent: true
  since: "2024-01-01"
snapshot:
  cache_size: 16MiB
  cache_compress: false
server:
  addr: ":9090"
  read_timeout: 5s
  write_timeout: 2m
logging:
  level: debug
  json: true
telemetry:
  otlp_endpoint: collector:4317
  otlp_headers: "x-token=abc"
  sample_ratio: 0.25
  environment: staging
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.SourceGit, cfg.Input.Source)
	assert.Equal(t, "/srv/repo", cfg.Input.Path)
	assert.True(t, cfg.Input.FirstParent)
	assert.Equal(t, "2024-01-01", cfg.Input.Since)
	assert.False(t, cfg.Snapshot.CacheCompress)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)

	size, err := cfg.Snapshot.CacheBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(16<<20), size)

	obs := cfg.Observability(observability.ModeServe)
	assert.Equal(t, "collector:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-token": "abc"}, obs.OTLPHeaders)
	assert.Equal(t, "staging", obs.Environment)
	assert.True(t, obs.LogJSON)
	assert.True(t, obs.Prometheus)
	assert.Equal(t, observability.ModeServe, obs.Mode)

	assert.False(t, cfg.Observability(observability.ModeCLI).Prometheus)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"source", "input:\n  source: svn\n", config.ErrInvalidSource},
		{"path", "input:\n  path: \"\"\n", config.ErrEmptyInputPath},
		{"cache", "snapshot:\n  cache_size: lots\n", config.ErrInvalidCacheSize},
		{"timeout", "server:\n  read_timeout: -1s\n", config.ErrInvalidTimeout},
		{"level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"ratio", "telemetry:\n  sample_ratio: 2\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "input: [unterminated"))
	require.Error(t, err)
}

func TestCacheBytes_Off(t *testing.T) {
	t.Parallel()

	size, err := config.SnapshotConfig{CacheSize: "OFF"}.CacheBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), size)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HISTREE_SERVER_ADDR", "0.0.0.0:7000")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
}
