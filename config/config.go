package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/medrota/dispatch/core/alert"
	"github.com/medrota/dispatch/core/match"
	"github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/scheduler"
	"github.com/medrota/dispatch/infra/monitoring"
	"github.com/medrota/dispatch/infra/mqtt"
)

// Config is the root service configuration.
type Config struct {
	Match     match.Config      `json:"match"`
	Alerts    alert.Config      `json:"alerts"`
	Scheduler scheduler.Config  `json:"scheduler"`
	Metrics   metrics.Config    `json:"metrics"`
	MQTT      mqtt.Config       `json:"mqtt"`
	Sentry    monitoring.Config `json:"sentry"`
}

// Load reads the configuration file (yaml or json) and applies
// MEDROTA_-prefixed environment overrides, with "__" as the key
// separator.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("MEDROTA_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "medrota_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Match.SetDefaults()
	cfg.Alerts.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Sentry.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-section consistency.
func (c Config) Validate() error {
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt enabled without a broker")
	}
	if c.Metrics.InfluxEnabled && c.Metrics.InfluxURL == "" {
		return fmt.Errorf("influx enabled without a url")
	}
	return nil
}
