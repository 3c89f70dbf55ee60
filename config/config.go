package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingToken  = errors.New("bot token is required")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all configuration for the bot. It is built once at start-up and passed explicitly.
type Config struct {
	BotToken     string   `mapstructure:"bot_token"`
	WhitelistIDs []int64  `mapstructure:"whitelist_ids"`
	Database     Database `mapstructure:"database"`
	Redis        Redis    `mapstructure:"redis"`
	Dialog       Dialog   `mapstructure:"dialog"`
	HTTP         HTTP     `mapstructure:"http"`
	Log          Log      `mapstructure:"log"`
	Relay        Relay    `mapstructure:"relay"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Redis is optional; dialog sessions stay in memory when Addr is empty
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Dialog struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTP configures the health and metrics endpoint. An empty Addr disables it.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	File string `mapstructure:"file"`
}

type Relay struct {
	Parallelism            int  `mapstructure:"parallelism"`
	CopyToDestinationTopic bool `mapstructure:"copy_to_destination_topic"`
}

// Load reads the optional config file at path and applies environment overrides.
// A missing file is not an error, so the bot can be configured from the environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("bot_token", "")
	v.SetDefault("whitelist_ids", []int64{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data.sqlite")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("dialog.timeout", 10*time.Minute)
	v.SetDefault("http.addr", ":9090")
	v.SetDefault("log.file", "")
	v.SetDefault("relay.parallelism", 1)
	v.SetDefault("relay.copy_to_destination_topic", false)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names kept from the previous deployments
	_ = v.BindEnv("bot_token", "TELEGRAM_BOT_TOKEN", "RELAY_BOT_TOKEN")
	_ = v.BindEnv("database.dsn", "DATABASE_PATH", "RELAY_DATABASE_DSN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}

	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database dsn is empty", ErrInvalidConfig)
	}

	if c.Dialog.Timeout <= 0 {
		return fmt.Errorf("%w: dialog timeout must be positive", ErrInvalidConfig)
	}

	if c.Relay.Parallelism < 1 {
		c.Relay.Parallelism = 1
	}

	return nil
}

// IsWhitelisted reports whether the user may manage subscriptions
func (c *Config) IsWhitelisted(userID int64) bool {
	for _, id := range c.WhitelistIDs {
		if id == userID {
			return true
		}
	}
	return false
}
