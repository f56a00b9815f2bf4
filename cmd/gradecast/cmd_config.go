package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HatiCode/gradecast/internal/config"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	var initFile bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := global.resolvedConfigPath()
			out := cmd.OutOrStdout()

			if !initFile {
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					fmt.Fprintf(out, "%s (not created, run gradecast config --init)\n", path)
					return nil
				}
				if _, err := global.loadConfig(); err != nil {
					return err
				}
				fmt.Fprintln(out, path)
				return nil
			}

			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "%s already exists\n", path)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create config dir: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.DefaultTemplate), 0o644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(out, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "write a commented config template if none exists")
	return cmd
}
