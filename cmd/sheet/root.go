package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Raniani-lab/enterpriise-sub000/internal/config"
	"github.com/Raniani-lab/enterpriise-sub000/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "sheet",
	Short:         "sheet evaluates and serves spreadsheet workbooks",
	Long:          `sheet runs the spreadsheet kernel: formulas, commands with undo/redo and workbook persistence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error), overrides the configuration")
}

// setup loads the configuration and builds the logger every command uses
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, logging.New(logging.ParseLevel(cfg.LogLevel)), nil
}
