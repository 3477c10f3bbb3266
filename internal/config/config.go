package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TRELLO_QUICKCARD"

type Config struct {
	Trello   TrelloConfig   `mapstructure:"trello"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type TrelloConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Strategies is the read order; names are direct, callback, proxy, relay.
	Strategies []string `mapstructure:"strategies"`
	Timeouts   struct {
		Read  time.Duration `mapstructure:"read"`
		Write time.Duration `mapstructure:"write"`
	} `mapstructure:"timeouts"`
	Labels struct {
		Delay time.Duration `mapstructure:"delay"`
	} `mapstructure:"labels"`
	Retry struct {
		RateLimited bool          `mapstructure:"rate_limited"`
		Attempts    uint          `mapstructure:"attempts"`
		Delay       time.Duration `mapstructure:"delay"`
	} `mapstructure:"retry"`
}

type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

type RelayConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

type GoogleConfig struct {
	// ServiceAccount is the service account key, written inline as a table.
	ServiceAccount map[string]any `mapstructure:"service_account"`
	Calendar       struct {
		CalendarID string `mapstructure:"calendar_id"`
	} `mapstructure:"calendar"`
}

// Enabled reports whether the calendar mirror has everything it needs.
func (g GoogleConfig) Enabled() bool {
	return len(g.ServiceAccount) > 0 && g.Calendar.CalendarID != ""
}

func (g GoogleConfig) ServiceAccountJSON() ([]byte, error) {
	return json.Marshal(g.ServiceAccount)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trello.base_url", "https://api.trello.com/1")
	v.SetDefault("trello.strategies", []string{"direct", "callback", "proxy", "relay"})
	v.SetDefault("trello.timeouts.read", 15*time.Second)
	v.SetDefault("trello.timeouts.write", 30*time.Second)
	v.SetDefault("trello.labels.delay", 100*time.Millisecond)
	v.SetDefault("trello.retry.rate_limited", false)
	v.SetDefault("trello.retry.attempts", 3)
	v.SetDefault("trello.retry.delay", 2*time.Second)
	v.SetDefault("proxy.url", "https://api.allorigins.win/raw?url=")
	v.SetDefault("relay.url", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "quickcard.db")
	v.SetDefault("history.limit", 100)
}

// Load reads config.toml from the given directories (the working directory
// when none are given) and applies TRELLO_QUICKCARD_* overrides. A missing
// file leaves the defaults in place.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}
