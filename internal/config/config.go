package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-in-production-min-32-chars"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Helios   HeliosConfig   `mapstructure:"helios"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Presets  PresetsConfig  `mapstructure:"presets"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HeliosConfig addresses the ventilation unit.
type HeliosConfig struct {
	Address       string        `mapstructure:"address"`
	UnitID        int           `mapstructure:"unit_id"`
	MailboxOffset int           `mapstructure:"mailbox_offset"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Auth Configuration
type AuthConfig struct {
	APIKeyHash     string        `mapstructure:"api_key_hash"`
	JWTSecretEnv   string        `mapstructure:"jwt_secret_env"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type PresetsConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads the YAML file at path and overlays HGW_ environment variables,
// e.g. HGW_HELIOS_ADDRESS. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults setzen
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("logging.development", false)

	v.SetDefault("helios.address", "192.168.1.50:502")
	v.SetDefault("helios.unit_id", 180)
	v.SetDefault("helios.mailbox_offset", 1)
	v.SetDefault("helios.settle_delay", "200ms")
	v.SetDefault("helios.timeout", "5s")
	v.SetDefault("helios.idle_timeout", "60s")
	v.SetDefault("helios.poll_interval", "30s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "homegateway")
	v.SetDefault("database.user", "homegateway")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("auth.jwt_secret_env", "HGW_JWT_SECRET")
	v.SetDefault("auth.access_token_ttl", "60m")

	v.SetDefault("presets.search_paths", []string{"./configs/presets", "/etc/homegateway/presets"})
	v.SetDefault("metrics.enabled", true)

	// Environment Variables mit Prefix HGW_
	v.SetEnvPrefix("HGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks value ranges that the device protocol depends on.
func (c *Config) Validate() error {
	var errs []error

	h := c.Helios
	if h.Address == "" {
		errs = append(errs, errors.New("helios.address is required"))
	}
	if h.UnitID < 1 || h.UnitID > 247 {
		errs = append(errs, fmt.Errorf("helios.unit_id %d out of range 1..247", h.UnitID))
	}
	if h.MailboxOffset < 0 || h.MailboxOffset > 0xFFFF {
		errs = append(errs, fmt.Errorf("helios.mailbox_offset %d out of range", h.MailboxOffset))
	}
	if h.SettleDelay <= 0 {
		errs = append(errs, errors.New("helios.settle_delay must be positive"))
	}
	if h.Timeout <= 0 {
		errs = append(errs, errors.New("helios.timeout must be positive"))
	}
	if h.PollInterval != 0 && h.PollInterval < h.SettleDelay {
		errs = append(errs, fmt.Errorf("helios.poll_interval %s is shorter than settle_delay %s", h.PollInterval, h.SettleDelay))
	}

	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port %d out of range", c.Server.HTTPPort))
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("server.grpc_port %d out of range", c.Server.GRPCPort))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// JWT Secret aus Environment Variable laden
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "HGW_JWT_SECRET"
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		// Development Fallback
		return devJWTSecret
	}
	return secret
}

func (a *AuthConfig) IsProductionReady() bool {
	secret := a.GetJWTSecret()
	return secret != devJWTSecret && len(secret) >= 32 && a.APIKeyHash != ""
}
