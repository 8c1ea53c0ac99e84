package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Addr)
	assert.False(t, cfg.TelemetryEnabled)
	assert.Equal(t, 20, cfg.MaxBatchSize)
	assert.Equal(t, 10000, cfg.MaxQueueSize)
	assert.Equal(t, 2*time.Second, cfg.PollDuration())
	assert.Equal(t, 10*time.Second, cfg.ReportDuration())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `{
		"address": "file:9000",
		"poll_interval": 7,
		"report_interval": 30,
		"max_batch_size": 50,
		"telemetry_enabled": true
	}`)

	t.Setenv("REPORT_INTERVAL", "5")

	cfg, err := Load([]string{"-config", path, "-p", "3"})
	require.NoError(t, err)

	assert.Equal(t, "file:9000", cfg.Addr, "file overrides default")
	assert.Equal(t, 3, cfg.PollInterval, "flag overrides file")
	assert.Equal(t, 5, cfg.ReportInterval, "env overrides file")
	assert.Equal(t, 50, cfg.MaxBatchSize)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoadEnvOverridesFlag(t *testing.T) {
	t.Setenv("ADDRESS", "env:8080")
	t.Setenv("TELEMETRY_ENABLED", "true")

	cfg, err := Load([]string{"-a", "flag:8080"})
	require.NoError(t, err)

	assert.Equal(t, "env:8080", cfg.Addr)
	assert.True(t, cfg.TelemetryEnabled)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero batch", args: []string{"-b", "0"}},
		{name: "negative poll", args: []string{"-p", "-1"}},
		{name: "unknown flag", args: []string{"-x"}},
		{name: "missing file", args: []string{"-config", "/nonexistent/agent.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}
