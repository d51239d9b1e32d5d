// Package cmd implements the widget-api command line.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-widget-api/internal/config"
	"github.com/tbourn/go-widget-api/internal/sysutil"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "widget-api",
	Short: "Widget catalog HTTP API",
	Long: `widget-api serves the widget catalog and account API.

Configuration is read from the environment (optionally seeded from a .env
file). Running without a subcommand is the same as "widget-api serve".`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
	RunE:              runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
}

// loadEnv seeds the environment from envFile. Variables already set win.
// Set SKIP_DOTENV=1 to ignore the file entirely.
func loadEnv(*cobra.Command, []string) error {
	if sysutil.IsTruthy(os.Getenv("SKIP_DOTENV")) || envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadConfig reads configuration and installs the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	log.Debug().Str("app_env", cfg.AppEnv).Str("gin_mode", cfg.GinMode).Msg("configuration loaded")
	return cfg, nil
}
