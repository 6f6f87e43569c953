// Package main implements the conmets CLI: parse Apache/nginx access
// logs for conda package downloads, accumulate them in a dataset, and
// produce per-channel summary reports and plots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rendinam/logparse/internal/config"
)

// Populated at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "conmets",
	Short: "conda download metrics from web server access logs",
	Long: `conmets parses Apache/nginx access logs, raw or gzipped, extracts
conda package download transactions, and accumulates them in a dataset
file. Each log file is content-hashed so repeated ingests skip work
already done.

From the dataset it produces per-channel download summaries and
stacked bar charts splitting traffic into off-site, on-site, and
infrastructure hosts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("conmets %s (%s)\n", version, commit)
	},
}

// buildLogger constructs the process logger from the logging section
// of the config. --verbose forces debug regardless of the configured
// level.
func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	if lc.Format == "json" {
		zcfg.Encoding = "json"
	}

	level := zapcore.InfoLevel
	if lc.Level != "" {
		var err error
		level, err = zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath(),
		"configuration file used to adjust behavior of the program")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)
}

// datasetPath resolves the dataset file: positional argument first,
// then config.
func datasetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Dataset
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
