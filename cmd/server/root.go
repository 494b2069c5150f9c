package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath  string
	address     string
	development bool
)

var rootCmd = &cobra.Command{
	Use:   "homegateway",
	Short: "Gateway for Helios easyControls ventilation units",
	Long: `HomeGateway talks to a Helios KWL unit over Modbus TCP and exposes its
parameters over REST, gRPC and WebSocket.

Configuration is read from a YAML file and HGW_ environment variables,
e.g. HGW_HELIOS_ADDRESS=192.168.1.50:502.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "", "Override helios.address (host:port)")
	rootCmd.PersistentFlags().BoolVar(&development, "dev", false, "Development logging")
}

// loadConfig reads the config file. A missing default file falls back to
// defaults and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if address != "" {
		cfg.Helios.Address = address
	}
	if development {
		cfg.Logging.Development = true
	}
	// overrides may break what Load validated
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
