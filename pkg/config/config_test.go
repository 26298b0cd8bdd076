package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	project := t.TempDir()

	cfg, err := Load("", project)
	require.NoError(t, err)

	assert.Equal(t, project, cfg.Project)
	assert.Equal(t, filepath.Join(project, "flows"), cfg.FlowsPath())
	assert.Equal(t, filepath.Join(project, "content"), cfg.ContentPath())
	assert.Equal(t, "file://"+DefaultLedgerPath, cfg.LedgerURL)
	assert.Equal(t, filepath.Base(project), cfg.Namespace)
	assert.Equal(t, 4, cfg.Push.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.TimeoutDuration())
	assert.True(t, cfg.AutoFix())
	assert.Equal(t, BusNone, cfg.Events.Bus)
	assert.Equal(t, "@every 5m", cfg.Watch.Schedule)
}

func TestLoad_File(t *testing.T) {
	project := t.TempDir()
	writeConfig(t, project, `
flows_dir = "workflows"
namespace = "acme"

[push]
command = "n8n"
args = ["import:workflow", "--input={{.Path}}"]
concurrency = 8
timeout = "90s"
auto_fix = false

[validation]
allowed_families = ["core", "ai"]

[events]
bus = "kafka"
brokers = ["localhost:9092"]
`)

	cfg, err := Load("", project)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(project, "workflows"), cfg.FlowsPath())
	assert.Equal(t, "acme", cfg.Namespace)
	assert.Equal(t, "n8n", cfg.Push.Command)
	assert.Equal(t, []string{"import:workflow", "--input={{.Path}}"}, cfg.Push.Args)
	assert.Equal(t, 8, cfg.Push.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.TimeoutDuration())
	assert.False(t, cfg.AutoFix())
	assert.Equal(t, []string{"core", "ai"}, cfg.Validation.AllowedFamilies)
	assert.Equal(t, BusKafka, cfg.Events.Bus)
}

func TestLoad_Env(t *testing.T) {
	project := t.TempDir()
	writeConfig(t, project, `[push]
command = "n8n"
concurrency = 2
`)

	t.Setenv(EnvPushCommand, "engine-cli")
	t.Setenv(EnvPushConcurrency, "6")
	t.Setenv(EnvEventBus, BusKafka)
	t.Setenv(EnvKafkaBrokers, "a:9092,b:9092")

	cfg, err := Load("", project)
	require.NoError(t, err)

	assert.Equal(t, "engine-cli", cfg.Push.Command)
	assert.Equal(t, 6, cfg.Push.Concurrency)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Brokers)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad toml", content: "flows_dir = "},
		{name: "bad timeout", content: "[push]\ntimeout = \"soon\""},
		{name: "unknown bus", content: "[events]\nbus = \"carrier-pigeon\""},
		{name: "kafka without brokers", content: "[events]\nbus = \"kafka\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := t.TempDir()
			writeConfig(t, project, tt.content)

			_, err := Load("", project)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("bad concurrency env", func(t *testing.T) {
		t.Setenv(EnvPushConcurrency, "many")

		_, err := Load("", t.TempDir())
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
		require.Error(t, err)
	})
}

func TestLoad_ExplicitPathResolvesProject(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `project = "site"`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site"), cfg.Project)
	assert.Equal(t, filepath.Join(dir, "site", "flows"), cfg.FlowsPath())
}

func TestLoad_OverlayWinsOverEnv(t *testing.T) {
	t.Setenv(EnvPushConcurrency, "6")
	t.Setenv(EnvLedgerURL, "redis://localhost:6379/0")

	cfg, err := Load("", t.TempDir(), &Config{Push: PushConfig{Concurrency: 2}})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Push.Concurrency)
	assert.Equal(t, "redis://localhost:6379/0", cfg.LedgerURL)
}

func TestMerge(t *testing.T) {
	autoFix := false
	cfg := &Config{FlowsDir: "flows", Push: PushConfig{Command: "n8n", Concurrency: 2}}

	cfg.Merge(&Config{
		LedgerURL: "redis://localhost:6379/0",
		Push:      PushConfig{Concurrency: 3, AutoFix: &autoFix},
	})

	assert.Equal(t, "flows", cfg.FlowsDir)
	assert.Equal(t, "n8n", cfg.Push.Command)
	assert.Equal(t, 3, cfg.Push.Concurrency)
	assert.Equal(t, "redis://localhost:6379/0", cfg.LedgerURL)
	assert.False(t, cfg.AutoFix())
}
