package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	ItemSearch ItemSearchConfig `json:"item_search" yaml:"item_search"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp" yaml:"whatsapp"`
	OneBot     OneBotConfig     `json:"onebot" yaml:"onebot"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// ItemSearchConfig holds the JX3Box search endpoint and the trigger phrases
type ItemSearchConfig struct {
	SearchURL      string `json:"search_url" yaml:"search_url" env:"JX3_SEARCH_URL"`
	DetailBaseURL  string `json:"detail_base_url" yaml:"detail_base_url" env:"JX3_DETAIL_BASE_URL"`
	PrimaryTrigger string `json:"primary_trigger" yaml:"primary_trigger" env:"JX3_PRIMARY_TRIGGER"`
	AliasTrigger   string `json:"alias_trigger" yaml:"alias_trigger" env:"JX3_ALIAS_TRIGGER"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" env:"JX3_TIMEOUT_SECONDS"`
}

// WhatsAppConfig holds configuration for the WhatsApp integration
type WhatsAppConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled" env:"WHATSAPP_ENABLED"`
	StoreDir      string   `json:"store_dir" yaml:"store_dir" env:"WHATSAPP_STORE_DIR"`
	AllowedGroups []string `json:"allowed_groups" yaml:"allowed_groups" env:"WHATSAPP_ALLOWED_GROUPS"`
	AllowDirect   bool     `json:"allow_direct" yaml:"allow_direct" env:"WHATSAPP_ALLOW_DIRECT"`
	RepliesPerSec float64  `json:"replies_per_second" yaml:"replies_per_second" env:"WHATSAPP_REPLIES_PER_SECOND"`
	ReplyBurst    int      `json:"reply_burst" yaml:"reply_burst" env:"WHATSAPP_REPLY_BURST"`
}

// OneBotConfig holds configuration for the OneBot v11 (QQ) integration
type OneBotConfig struct {
	Enabled                  bool    `json:"enabled" yaml:"enabled" env:"ONEBOT_ENABLED"`
	WSURL                    string  `json:"ws_url" yaml:"ws_url" env:"ONEBOT_WS_URL"`
	AccessToken              string  `json:"access_token" yaml:"access_token" env:"ONEBOT_ACCESS_TOKEN"`
	ReconnectIntervalSeconds int     `json:"reconnect_interval_seconds" yaml:"reconnect_interval_seconds" env:"ONEBOT_RECONNECT_INTERVAL_SECONDS"`
	RepliesPerSec            float64 `json:"replies_per_second" yaml:"replies_per_second" env:"ONEBOT_REPLIES_PER_SECOND"`
	ReplyBurst               int     `json:"reply_burst" yaml:"reply_burst" env:"ONEBOT_REPLY_BURST"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" env:"OTEL_ENABLED"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string  `json:"environment" yaml:"environment" env:"OTEL_ENVIRONMENT"`
	SampleRate   float64 `json:"sample_rate" yaml:"sample_rate" env:"OTEL_SAMPLE_RATE"`
}

// LoadConfig loads configuration from a JSON or YAML file on top of the
// defaults, then applies environment overrides
func LoadConfig(path string) (*Config, error) {
	return loadConfig(path, env.Options{})
}

func loadConfig(path string, opts env.Options) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
			}
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	s := c.ItemSearch
	if u, err := url.Parse(s.SearchURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("item_search.search_url %q is not an absolute URL", s.SearchURL))
	}
	if strings.TrimSpace(s.DetailBaseURL) == "" {
		errs = append(errs, errors.New("item_search.detail_base_url is required"))
	}
	if strings.TrimSpace(s.PrimaryTrigger) == "" || strings.TrimSpace(s.AliasTrigger) == "" {
		errs = append(errs, errors.New("item_search triggers must not be empty"))
	}
	if s.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("item_search.timeout_seconds must be positive, got %d", s.TimeoutSeconds))
	}

	if c.WhatsApp.Enabled && c.WhatsApp.StoreDir == "" {
		errs = append(errs, errors.New("whatsapp.store_dir is required when whatsapp is enabled"))
	}
	if c.OneBot.Enabled && c.OneBot.WSURL == "" {
		errs = append(errs, errors.New("onebot.ws_url is required when onebot is enabled"))
	}

	return errors.Join(errs...)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		ItemSearch: ItemSearchConfig{
			SearchURL:      "https://www.jx3box.com/api/wiki/item/search",
			DetailBaseURL:  "https://www.jx3box.com/item/",
			PrimaryTrigger: "剑网3物品",
			AliasTrigger:   "jx3物品",
			TimeoutSeconds: 10,
		},
		WhatsApp: WhatsAppConfig{
			Enabled:       false,
			StoreDir:      "./data/whatsapp",
			AllowedGroups: []string{},
			RepliesPerSec: 1,
			ReplyBurst:    10,
		},
		OneBot: OneBotConfig{
			Enabled:                  false,
			WSURL:                    "ws://127.0.0.1:3001",
			ReconnectIntervalSeconds: 5,
			RepliesPerSec:            1,
			ReplyBurst:               10,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Environment: "development",
			SampleRate:  1.0,
		},
	}
}
