package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"PresenceTrader/internal/config"
	"PresenceTrader/internal/logger"
)

var log = logrus.WithField("component", "main")

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Presence-triggered rotating portfolio trader",
		Long: `trader watches a presence signal and buys the currently offered instrument
once the subject has been present long enough. The offered instrument rotates
through the catalog on a fixed period, and the least recently touched holding
is sold whenever cash runs short.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath(), "path to the YAML config (env CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	runCmd := newRunCmd(flags)
	rootCmd.AddCommand(runCmd, newCatalogCmd(flags), newAccountCmd(flags))
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// loadConfig reads the dotenv file, loads and validates the config, and
// initialises logging from it.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", flags.envFile, err)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
