package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/sandbox"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	def := sandbox.DefaultConfig()
	assert.Equal(t, def.Size, cfg.Pool.Size)
	assert.Equal(t, 15*time.Second, cfg.Pool.Timeout)
	assert.Equal(t, 256, cfg.Pool.QueueLimit)
	assert.Equal(t, IsolationGoroutine, cfg.Pool.Isolation)
	assert.Equal(t, []string{"mermaid"}, cfg.Check.DiagramLanguages)
	assert.Empty(t, cfg.Check.LintRules)
	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadWithoutRegisteredDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	assert.Equal(t, sandbox.DefaultConfig(), cfg.SandboxConfig())
	assert.Equal(t, FormatText, cfg.Output.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docsmith.yml")
	content := `
pool:
  size: 2
  timeout: 5s
  queue_limit: 10
  isolation: process
  worker_command: ["docsmith", "worker"]
check:
  structure: docs/structure.yaml
  allowed_links: ["./intro"]
  lint_rules: [MD024, MD052]
output:
  format: json
watch:
  debounce: 1s
  paths: [docs]
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, sandbox.Config{Size: 2, Timeout: 5 * time.Second, QueueLimit: 10}, cfg.SandboxConfig())
	assert.Equal(t, IsolationProcess, cfg.Pool.Isolation)
	assert.Equal(t, []string{"docsmith", "worker"}, cfg.Pool.WorkerCommand)
	assert.Equal(t, "docs/structure.yaml", cfg.Check.Structure)
	assert.Equal(t, []string{"./intro"}, cfg.Check.AllowedLinks)
	assert.Equal(t, []string{"MD024", "MD052"}, cfg.Check.LintRules)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"docs"}, cfg.Watch.Paths)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DOCSMITH_POOL_TIMEOUT", "2s")
	t.Setenv("DOCSMITH_OUTPUT_FORMAT", "yaml")

	v := newViper()
	BindEnv(v)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Pool.Timeout)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
}

func TestLoadGlobal(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults(viper.GetViper())
	viper.Set("check.allowed_links", []string{"./a", "./b"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"./a", "./b"}, cfg.Check.AllowedLinks)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{"negative pool size", "pool.size", -1, "pool.size"},
		{"huge pool size", "pool.size", 1000, "pool.size"},
		{"negative timeout", "pool.timeout", "-1s", "pool.timeout"},
		{"unknown isolation", "pool.isolation", "vm", "pool.isolation"},
		{"unknown lint rule", "check.lint_rules", []string{"MD999"}, "check.lint_rules"},
		{"unknown output format", "output.format", "xml", "output.format"},
		{"negative debounce", "watch.debounce", "-5ms", "watch.debounce"},
		{"dangerous watch path", "watch.paths", []string{"docs;rm"}, "watch.paths"},
		{"unknown log level", "log.level", "loud", "log.level"},
		{"unknown log format", "log.format", "xml", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadRejectsUndecodableValues(t *testing.T) {
	v := newViper()
	v.Set("pool.size", "many")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestValidationResult(t *testing.T) {
	cfg := &Config{
		Pool:   PoolConfig{Size: 2, Timeout: 10 * time.Millisecond, QueueLimit: 1, Isolation: IsolationGoroutine, WorkerCommand: []string{"x"}},
		Output: OutputConfig{Format: FormatTable},
		Watch:  WatchConfig{Paths: []string{"."}},
		Log:    LogConfig{Level: "warning", Format: "json"},
	}

	result := ValidateConfigWithDetails(cfg)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	require.True(t, result.HasWarnings())
	assert.Len(t, result.Warnings, 2)
	assert.Contains(t, result.String(), "pool.timeout")
	assert.Contains(t, result.String(), "pool.worker_command")
	assert.NoError(t, cfg.Validate())
}
