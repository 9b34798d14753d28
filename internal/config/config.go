// Package config loads docsmith settings through Viper from .docsmith.yml,
// DOCSMITH_ environment variables and command-line flags.
//
// The configuration covers the diagram validation pool, the document
// checks, report output, the file watcher and logging. Zero values are
// replaced with defaults by Load; Validate rejects values that cannot work.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/sandbox"
)

// Isolation modes for pool units.
const (
	IsolationGoroutine = "goroutine"
	IsolationProcess   = "process"
)

// Output formats for check reports.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

const DefaultDebounce = 300 * time.Millisecond

type Config struct {
	Pool        PoolConfig   `yaml:"pool" mapstructure:"pool"`
	Check       CheckConfig  `yaml:"check" mapstructure:"check"`
	Output      OutputConfig `yaml:"output" mapstructure:"output"`
	Watch       WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Log         LogConfig    `yaml:"log" mapstructure:"log"`
	TargetFiles []string     `yaml:"-" mapstructure:"-"` // CLI arguments, not from config file
}

type PoolConfig struct {
	Size          int           `yaml:"size" mapstructure:"size"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	QueueLimit    int           `yaml:"queue_limit" mapstructure:"queue_limit"`
	Isolation     string        `yaml:"isolation" mapstructure:"isolation"`
	WorkerCommand []string      `yaml:"worker_command" mapstructure:"worker_command"`
}

type CheckConfig struct {
	Structure        string   `yaml:"structure" mapstructure:"structure"`
	AllowedLinks     []string `yaml:"allowed_links" mapstructure:"allowed_links"`
	DiagramLanguages []string `yaml:"diagram_languages" mapstructure:"diagram_languages"`
	LintRules        []string `yaml:"lint_rules" mapstructure:"lint_rules"`
}

type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Paths    []string      `yaml:"paths" mapstructure:"paths"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults registers default values on v so that environment variables
// for every key are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	def := sandbox.DefaultConfig()
	v.SetDefault("pool.size", def.Size)
	v.SetDefault("pool.timeout", def.Timeout)
	v.SetDefault("pool.queue_limit", def.QueueLimit)
	v.SetDefault("pool.isolation", IsolationGoroutine)
	v.SetDefault("pool.worker_command", []string{})
	v.SetDefault("check.structure", "")
	v.SetDefault("check.allowed_links", []string{})
	v.SetDefault("check.diagram_languages", []string{"mermaid"})
	v.SetDefault("check.lint_rules", []string{})
	v.SetDefault("output.format", FormatText)
	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("watch.paths", []string{"."})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// EnvPrefix is the prefix of environment overrides, e.g. DOCSMITH_POOL_SIZE.
const EnvPrefix = "DOCSMITH"

// BindEnv makes every key of v overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals v, fills in defaults for unset values and validates
// the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	// Slices set through viper.Set or flags are not always decoded.
	if v.IsSet("check.allowed_links") && len(config.Check.AllowedLinks) == 0 {
		config.Check.AllowedLinks = v.GetStringSlice("check.allowed_links")
	}
	if v.IsSet("check.lint_rules") && len(config.Check.LintRules) == 0 {
		config.Check.LintRules = v.GetStringSlice("check.lint_rules")
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	def := sandbox.DefaultConfig()
	if c.Pool.Size == 0 {
		c.Pool.Size = def.Size
	}
	if c.Pool.Timeout == 0 {
		c.Pool.Timeout = def.Timeout
	}
	if c.Pool.QueueLimit == 0 {
		c.Pool.QueueLimit = def.QueueLimit
	}
	if c.Pool.Isolation == "" {
		c.Pool.Isolation = IsolationGoroutine
	}
	if len(c.Check.DiagramLanguages) == 0 {
		c.Check.DiagramLanguages = []string{"mermaid"}
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatText
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{"."}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// SandboxConfig returns the pool settings in the form sandbox.NewPool takes.
func (c *Config) SandboxConfig() sandbox.Config {
	return sandbox.Config{
		Size:       c.Pool.Size,
		Timeout:    c.Pool.Timeout,
		QueueLimit: c.Pool.QueueLimit,
	}
}

// Validate returns a configuration error describing every invalid value.
func (c *Config) Validate() error {
	result := ValidateConfigWithDetails(c)
	if !result.HasErrors() {
		return nil
	}
	err := errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid configuration: "+result.Errors[0].Error())
	return err.WithContext("errors", result.String())
}
