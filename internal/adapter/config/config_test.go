package config_test

import (
	"testing"
	"time"

	"github.com/tsoiks/heliotherm-bridge/internal/adapter/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Heatpump: config.HeatpumpConfig{
			Host:   "192.168.1.50",
			Port:   502,
			UnitID: 1,
		},
		Polling: config.PollingConfig{
			Interval: 30 * time.Second,
		},
		HTTP: config.HTTPConfig{
			Port: 8080,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing host", func(c *config.Config) { c.Heatpump.Host = "" }},
		{"blank host", func(c *config.Config) { c.Heatpump.Host = "   " }},
		{"port zero", func(c *config.Config) { c.Heatpump.Port = 0 }},
		{"port too large", func(c *config.Config) { c.Heatpump.Port = 70000 }},
		{"unit id negative", func(c *config.Config) { c.Heatpump.UnitID = -1 }},
		{"unit id too large", func(c *config.Config) { c.Heatpump.UnitID = 248 }},
		{"interval too short", func(c *config.Config) { c.Polling.Interval = 100 * time.Millisecond }},
		{"http port zero", func(c *config.Config) { c.HTTP.Port = 0 }},
		{"mqtt enabled without broker", func(c *config.Config) {
			c.MQTT.Enabled = true
			c.MQTT.BrokerURL = ""
		}},
		{"mqtt qos out of range", func(c *config.Config) {
			c.MQTT.Enabled = true
			c.MQTT.BrokerURL = "tcp://localhost:1883"
			c.MQTT.QoS = 3
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestConfig_ValidUnitIDZero(t *testing.T) {
	cfg := validConfig()
	cfg.Heatpump.UnitID = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("unit id 0 is valid, got %v", err)
	}
}

func TestHeatpumpConfig_Address(t *testing.T) {
	h := config.HeatpumpConfig{Host: "heatpump.local", Port: 502}
	if got := h.Address(); got != "heatpump.local:502" {
		t.Errorf("expected 'heatpump.local:502', got %q", got)
	}
}
