// Package config provides configuration management for the heat-pump
// bridge. It supports environment variables, a YAML config file, and
// defaults, and validates everything before the coordinator is constructed.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bridge.
type Config struct {
	// Environment is the deployment environment (development, production).
	Environment string `mapstructure:"environment"`

	// CatalogPath optionally points to a YAML register catalog that
	// replaces the built-in Heliotherm one.
	CatalogPath string `mapstructure:"catalog_path"`

	// Heatpump holds the device connection settings.
	Heatpump HeatpumpConfig `mapstructure:"heatpump"`

	// Polling holds the poll loop settings.
	Polling PollingConfig `mapstructure:"polling"`

	// HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`

	// MQTT snapshot publishing configuration.
	MQTT MQTTConfig `mapstructure:"mqtt"`

	// Logging configuration.
	Logging LoggingConfig `mapstructure:"logging"`
}

// HeatpumpConfig holds the Modbus device settings.
type HeatpumpConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	UnitID         int           `mapstructure:"unit_id"`
	ReadOnly       bool          `mapstructure:"read_only"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Address returns the host:port dial address.
func (h HeatpumpConfig) Address() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PollingConfig holds poll loop settings.
type PollingConfig struct {
	Interval            time.Duration `mapstructure:"interval"`
	FirstRefreshTimeout time.Duration `mapstructure:"first_refresh_timeout"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// MQTTConfig holds MQTT client configuration for snapshot publishing.
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// Load loads configuration from the config file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/heliotherm-bridge")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and env vars apply.
	}

	v.SetEnvPrefix("HELIOTHERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. The device defaults match
// the vendor's documentation: Modbus TCP port 502, unit ID 1, and read-only
// mode on, so a fresh install can never write to the heat pump by accident.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("catalog_path", "")

	v.SetDefault("heatpump.host", "")
	v.SetDefault("heatpump.port", 502)
	v.SetDefault("heatpump.unit_id", 1)
	v.SetDefault("heatpump.read_only", true)
	v.SetDefault("heatpump.connect_timeout", 5*time.Second)
	v.SetDefault("heatpump.request_timeout", 5*time.Second)

	v.SetDefault("polling.interval", 30*time.Second)
	v.SetDefault("polling.first_refresh_timeout", 10*time.Second)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "heliotherm-bridge")
	v.SetDefault("mqtt.topic_prefix", "heliotherm")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks the configuration for errors. The coordinator relies on
// these checks having run: it never re-validates host, port, or unit ID.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Heatpump.Host) == "" {
		return fmt.Errorf("heatpump.host is required")
	}
	if c.Heatpump.Port < 1 || c.Heatpump.Port > 65535 {
		return fmt.Errorf("heatpump.port must be 1-65535, got %d", c.Heatpump.Port)
	}
	if c.Heatpump.UnitID < 0 || c.Heatpump.UnitID > 247 {
		return fmt.Errorf("heatpump.unit_id must be 0-247, got %d", c.Heatpump.UnitID)
	}
	if c.Polling.Interval < time.Second {
		return fmt.Errorf("polling.interval must be at least 1s, got %v", c.Polling.Interval)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be 1-65535, got %d", c.HTTP.Port)
	}
	if c.MQTT.Enabled {
		if c.MQTT.BrokerURL == "" {
			return fmt.Errorf("mqtt.broker_url is required when mqtt.enabled is true")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
		}
	}
	return nil
}
