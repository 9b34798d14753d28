// Package cmd provides the docsmith command-line interface.
//
// Configuration System:
//
//	Settings are read from several sources, highest priority first:
//	1. Command-line flags (--config, --pool-size, --format, ...)
//	2. DOCSMITH_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (DOCSMITH_POOL_TIMEOUT, ...)
//	4. Configuration file (.docsmith.yml)
//
// Environment Variables:
//
//	DOCSMITH_CONFIG_FILE: Path to custom configuration file
//	DOCSMITH_POOL_SIZE: Number of diagram validation units
//	DOCSMITH_POOL_TIMEOUT: Per-diagram timeout, e.g. 15s
//	DOCSMITH_OUTPUT_FORMAT: text, json, yaml or table
//	And more following the DOCSMITH_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/config"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
)

var cfgFile string

// errFindings makes the process exit with status 1 after a report with
// findings has been printed.
var errFindings = errors.NewValidationError("FINDINGS", "documentation has findings")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Validate generated markdown documentation and Mermaid diagrams",
	Long: `docsmith checks generated documentation for defects that break publishing:
dead internal links, malformed tables, truncated content, invalid Mermaid
diagrams and diagram constructs that parse but do not render.

Quick Start:
  docsmith check docs/                      Check every markdown file under docs/
  docsmith check --structure plan.yaml .    Also verify links against a structure plan
  docsmith diagram flow.mmd                 Check a single diagram
  docsmith watch docs/                      Re-check files as they change
  docsmith rules                            List lint rules`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errFindings) {
		fmt.Fprintln(os.Stderr, "Error:", errors.Message(err))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docsmith.yml, can also use DOCSMITH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig selects the configuration file and enables DOCSMITH_ environment
// overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DOCSMITH_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".docsmith")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	// A missing or malformed file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and builds the logger it describes.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
