// Command gradecast forecasts a student's final GPA from the terminal.
//
// Usage:
//
//	gradecast forecast --courses courses.yaml
//	gradecast forecast --backend-url http://localhost:5000/api/courses --save
//	gradecast history --student alice
//	gradecast config --init
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HatiCode/gradecast/internal/config"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	dbPath     string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "gradecast",
		Short:        "Monte Carlo GPA forecasts",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/gradecast/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "forecast history database (default: $XDG_DATA_HOME/gradecast/history.db)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newForecastCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

func (o *globalOptions) resolvedConfigPath() string {
	if o.configPath != "" {
		return expandHome(o.configPath)
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the TOML file; a missing file yields an empty config.
func (o *globalOptions) loadConfig() (config.FileConfig, error) {
	cfg, err := config.LoadConfig(o.resolvedConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// resolvedDBPath applies --db, then the config file, then the XDG default.
func (o *globalOptions) resolvedDBPath(fileCfg config.FileConfig) string {
	if o.dbPath != "" {
		return expandHome(o.dbPath)
	}
	if fileCfg.History.DB != nil && *fileCfg.History.DB != "" {
		return expandHome(*fileCfg.History.DB)
	}
	return config.DefaultDBPath()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
