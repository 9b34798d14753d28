package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/markdown"
)

const maxPoolSize = 64

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}
	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validatePoolConfig(&config.Pool, result)
	validateCheckConfig(&config.Check, result)
	validateOutputConfig(&config.Output, result)
	validateWatchConfig(&config.Watch, result)
	validateLogConfig(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validatePoolConfig(config *PoolConfig, result *ValidationResult) {
	if config.Size < 1 || config.Size > maxPoolSize {
		result.addError("pool.size", config.Size,
			fmt.Sprintf("pool size %d is not in valid range 1-%d", config.Size, maxPoolSize),
			"Use the number of CPU cores, at most 4 is usually enough")
	}

	if config.Timeout <= 0 {
		result.addError("pool.timeout", config.Timeout, "timeout must be positive",
			"Use a duration such as 15s")
	} else if config.Timeout < 100*time.Millisecond {
		result.addWarning("pool.timeout", config.Timeout, "timeout is very short, large diagrams will fall back to basic checks")
	}

	if config.QueueLimit < 1 {
		result.addError("pool.queue_limit", config.QueueLimit, "queue limit must be at least 1")
	}

	switch config.Isolation {
	case IsolationGoroutine:
		if len(config.WorkerCommand) > 0 {
			result.addWarning("pool.worker_command", config.WorkerCommand,
				"worker command is ignored with goroutine isolation",
				"Set pool.isolation to process to run workers as separate processes")
		}
	case IsolationProcess:
		for _, arg := range config.WorkerCommand {
			if strings.ContainsRune(arg, 0) {
				result.addError("pool.worker_command", config.WorkerCommand, "worker command contains a NUL byte")
				break
			}
		}
	default:
		result.addError("pool.isolation", config.Isolation,
			fmt.Sprintf("unknown isolation mode %q", config.Isolation),
			"Available modes: "+IsolationGoroutine+", "+IsolationProcess)
	}
}

func validateCheckConfig(config *CheckConfig, result *ValidationResult) {
	for _, lang := range config.DiagramLanguages {
		if strings.TrimSpace(lang) == "" {
			result.addError("check.diagram_languages", config.DiagramLanguages, "diagram language cannot be empty")
			break
		}
	}

	for _, id := range config.LintRules {
		if _, ok := markdown.RuleByID(id); !ok {
			result.addError("check.lint_rules", id, fmt.Sprintf("unknown lint rule %q", id),
				"Run 'docsmith rules' to list the available rules")
		}
	}

	for _, link := range config.AllowedLinks {
		if strings.TrimSpace(link) == "" {
			result.addWarning("check.allowed_links", link, "empty allowed link is ignored")
		}
	}
}

func validateOutputConfig(config *OutputConfig, result *ValidationResult) {
	switch config.Format {
	case FormatText, FormatJSON, FormatYAML, FormatTable:
	default:
		result.addError("output.format", config.Format, fmt.Sprintf("unknown output format %q", config.Format),
			"Available formats: text, json, yaml, table")
	}
}

func validateWatchConfig(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.addError("watch.debounce", config.Debounce, "debounce cannot be negative")
	}
	for _, path := range config.Paths {
		if err := validatePath(path); err != nil {
			result.addError("watch.paths", path, err.Error())
		}
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.addError("log.level", config.Level, fmt.Sprintf("unknown log level %q", config.Level),
			"Available levels: debug, info, warn, error")
	}
	if config.Format != "text" && config.Format != "json" {
		result.addError("log.format", config.Format, fmt.Sprintf("unknown log format %q", config.Format),
			"Available formats: text, json")
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\""}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
