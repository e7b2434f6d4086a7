// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	DatabasePath string `mapstructure:"database_path"`
	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`

	// Flat launch fee charged per token creation, in smallest units of the
	// chosen base currency.
	LaunchFeeBUSD  uint64 `mapstructure:"launch_fee_busd"`
	LaunchFeeFRBTC uint64 `mapstructure:"launch_fee_frbtc"`

	// Defaults applied to launches that omit curve parameters.
	DefaultBasePrice          uint64 `mapstructure:"default_base_price"`
	DefaultGrowthRateBps      uint64 `mapstructure:"default_growth_rate_bps"`
	DefaultMaxSupply          uint64 `mapstructure:"default_max_supply"`
	DefaultMarketCapThreshold uint64 `mapstructure:"default_market_cap_threshold"`
	DefaultMinHolders         int    `mapstructure:"default_min_holders"`
	DefaultMinAgeSeconds      int    `mapstructure:"default_min_age_seconds"`

	GraduationRetries      int `mapstructure:"graduation_retries"`
	MonitorIntervalSeconds int `mapstructure:"monitor_interval_seconds"`
}

const (
	DefaultListenAddr = ":8080"
	DefaultDBPath     = "curvelaunch.db"

	DefaultBasePrice          = 4_000_000
	DefaultGrowthRateBps      = 150
	DefaultMaxSupply          = 1_000_000_000
	DefaultMarketCapThreshold = 6_900_000_000
	DefaultMinHolders         = 10
	DefaultMinAgeSeconds      = 3600
	DefaultGraduationRetries  = 3
	DefaultMonitorInterval    = 30
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":                  DefaultListenAddr,
		"database_path":                DefaultDBPath,
		"default_base_price":           DefaultBasePrice,
		"default_growth_rate_bps":      DefaultGrowthRateBps,
		"default_max_supply":           DefaultMaxSupply,
		"default_market_cap_threshold": DefaultMarketCapThreshold,
		"default_min_holders":          DefaultMinHolders,
		"default_min_age_seconds":      DefaultMinAgeSeconds,
		"graduation_retries":           DefaultGraduationRetries,
		"monitor_interval_seconds":     DefaultMonitorInterval,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("missing listen_addr in configuration")
	}
	if cfg.DatabasePath == "" {
		return errors.New("missing database_path in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.DefaultBasePrice < 1_000 || cfg.DefaultBasePrice > 1_000_000_000 {
		return errors.New("default_base_price out of range [1e3, 1e9]")
	}
	if cfg.DefaultGrowthRateBps < 10 || cfg.DefaultGrowthRateBps > 1000 {
		return errors.New("default_growth_rate_bps out of range [10, 1000]")
	}
	if cfg.DefaultMaxSupply < 1_000_000 || cfg.DefaultMaxSupply > 100_000_000_000 {
		return errors.New("default_max_supply out of range [1e6, 1e11]")
	}
	if cfg.DefaultMarketCapThreshold == 0 {
		return errors.New("invalid default_market_cap_threshold")
	}
	if cfg.DefaultMinHolders < 0 {
		return errors.New("invalid default_min_holders")
	}
	if cfg.DefaultMinAgeSeconds < 0 {
		return errors.New("invalid default_min_age_seconds")
	}
	if cfg.GraduationRetries < 0 {
		return errors.New("invalid graduation_retries count")
	}
	if cfg.MonitorIntervalSeconds < 0 {
		return errors.New("invalid monitor_interval_seconds")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("CURVELAUNCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envListen := v.GetString("LISTEN_ADDR")
	if envListen != "" {
		cfg.ListenAddr = envListen
	}

	envDB := v.GetString("DATABASE_PATH")
	if envDB != "" {
		cfg.DatabasePath = envDB
	}
	return nil
}
