package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aicc-ivr-backend/config"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ivrd",
	Short: "AICC IVR decision backend",
	Long: `ivrd serves the decision and lookup endpoints behind the call-routing IVR:
business hours with holiday-aware next-open times, customer lookup,
call logging and engineer alerts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_PATH or ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, checkCmd)
}

// loadConfig resolves the config path from the flag, then CONFIG_PATH.
func loadConfig() (*config.Config, string, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ivrd: %v\n", err)
		os.Exit(1)
	}
}
