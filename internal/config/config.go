// Package config loads DHCPLens configuration from file and environment
// and builds the shared logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host         string  `mapstructure:"host"`
	Port         int     `mapstructure:"port"`
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
	RateBurst    int     `mapstructure:"rate_burst"`
}

// Addr returns the listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FingerbankConfig holds the external classification client settings.
// An empty APIKey disables the external stage entirely.
type FingerbankConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	RequestsPerDay  int           `mapstructure:"requests_per_day"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
}

// ClassifyConfig holds fusion engine settings, including the confidence
// fusion weights. The weights are tunable policy defaults, not constants.
type ClassifyConfig struct {
	Workers int           `mapstructure:"workers"`
	Weights WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig mirrors classify.Weights for mapstructure decoding.
type WeightsConfig struct {
	VendorFound        int `mapstructure:"vendor_found"`
	ExternalHigh       int `mapstructure:"external_high"`
	ExternalMedium     int `mapstructure:"external_medium"`
	ExternalLow        int `mapstructure:"external_low"`
	HeuristicSpecific  int `mapstructure:"heuristic_specific"`
	HeuristicGeneric   int `mapstructure:"heuristic_generic"`
	HeuristicVendor    int `mapstructure:"heuristic_vendor"`
	RuleShortcut       int `mapstructure:"rule_shortcut"`
	RuleRefined        int `mapstructure:"rule_refined"`
	RuleCount          int `mapstructure:"rule_count"`
	HostnamePresent    int `mapstructure:"hostname_present"`
	VendorClassPresent int `mapstructure:"vendor_class_present"`
}

// Config is the root configuration tree.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Fingerbank FingerbankConfig `mapstructure:"fingerbank"`
	Classify   ClassifyConfig   `mapstructure:"classify"`
	Database   struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	OUI struct {
		DatabasePath string `mapstructure:"database_path"`
	} `mapstructure:"oui"`
}

// Load reads configuration from the given file (or the default search
// paths when empty) plus DL_-prefixed environment variables, and decodes
// it on top of the built-in defaults.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/dhcplens.db")
	v.SetDefault("oui.database_path", "")

	v.SetDefault("fingerbank.api_key", "")
	v.SetDefault("fingerbank.base_url", "https://api.fingerbank.org/api/v2")
	v.SetDefault("fingerbank.timeout", "30s")
	v.SetDefault("fingerbank.requests_per_hour", 100)
	v.SetDefault("fingerbank.requests_per_day", 1000)
	v.SetDefault("fingerbank.max_retries", 3)
	v.SetDefault("fingerbank.backoff_base", "1s")
	v.SetDefault("fingerbank.min_interval", "1s")

	v.SetDefault("classify.workers", 4)
	v.SetDefault("classify.weights.vendor_found", 20)
	v.SetDefault("classify.weights.external_high", 60)
	v.SetDefault("classify.weights.external_medium", 40)
	v.SetDefault("classify.weights.external_low", 20)
	v.SetDefault("classify.weights.heuristic_specific", 50)
	v.SetDefault("classify.weights.heuristic_generic", 30)
	v.SetDefault("classify.weights.heuristic_vendor", 20)
	v.SetDefault("classify.weights.rule_shortcut", 40)
	v.SetDefault("classify.weights.rule_refined", 25)
	v.SetDefault("classify.weights.rule_count", 10)
	v.SetDefault("classify.weights.hostname_present", 10)
	v.SetDefault("classify.weights.vendor_class_present", 10)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dhcplens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dhcplens")
	}

	// Environment variable support: DL_FINGERBANK_API_KEY, DL_SERVER_PORT.
	// The replacer maps nested keys (fingerbank.api_key) onto env names.
	v.SetEnvPrefix("DL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Decode unmarshals the Viper tree into the typed Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
