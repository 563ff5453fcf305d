package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cv-screener/internal/config"
	"cv-screener/internal/logging"
)

const app = "screener"

var (
	// Used for flags.
	cfgFile string
	debug   bool
	jsonLog bool

	cfg    *config.Config
	logger = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "screener scores candidate documents against a job description by keyword overlap",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig()
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := loaded.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, jsonLog || loaded.LogJSON)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}

	cfg, logger = loaded, l
	return nil
}
