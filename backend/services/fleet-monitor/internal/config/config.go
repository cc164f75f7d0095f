package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "batteryfleet/backend/libs/config"
	"batteryfleet/backend/services/fleet-monitor/internal/alerts"
	"batteryfleet/backend/services/fleet-monitor/internal/feed"
	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

const defaultPort = "8090"

// Config defines fleet monitor configuration.
type Config struct {
	HTTP struct {
		Port        string   `yaml:"port" env:"FLEET_HTTP_PORT"`
		CORSOrigins []string `yaml:"corsOrigins" env:"FLEET_CORS_ORIGINS"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"FLEET_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"FLEET_REDIS_ADDR"`
		Password string `yaml:"password" env:"FLEET_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"FLEET_REDIS_DB"`
		Key      string `yaml:"key" env:"FLEET_REDIS_KEY"`
	} `yaml:"redis"`
	Feed    feed.Config `yaml:"feed"`
	Buffers struct {
		Live         int           `yaml:"live"`
		Chart        int           `yaml:"chart"`
		Hourly       int           `yaml:"hourly"`
		HourlyBucket time.Duration `yaml:"hourlyBucket"`
	} `yaml:"buffers"`
	History struct {
		FetchLimit   int           `yaml:"fetchLimit"`
		FetchTimeout time.Duration `yaml:"fetchTimeout"`
		Lookback     time.Duration `yaml:"lookback"`
	} `yaml:"history"`
	Alerts struct {
		Retention    alerts.Retention `yaml:"retention"`
		StatusAlerts bool             `yaml:"statusAlerts"`
	} `yaml:"alerts"`
	Thresholds models.ThresholdConfig `yaml:"thresholds"`
	TimeRange  string                 `yaml:"timeRange" env:"FLEET_DEFAULT_TIME_RANGE"`
	Telegram   struct {
		Token     string  `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID    int64   `yaml:"chatId" env:"TELEGRAM_CHAT_ID"`
		PerSecond float64 `yaml:"perSecond"`
	} `yaml:"telegram"`
	Push struct {
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		Buffer       int           `yaml:"buffer"`
	} `yaml:"push"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = defaultPort
	cfg.Feed.Transport = feed.TransportNone
	cfg.Feed.ReconnectDelay = 5 * time.Second
	cfg.Feed.MQTT.QoS = 1
	cfg.Buffers.Live = 100
	cfg.Buffers.Chart = 100
	cfg.Buffers.Hourly = 24
	cfg.Buffers.HourlyBucket = time.Hour
	cfg.History.FetchLimit = 100
	cfg.History.FetchTimeout = 10 * time.Second
	cfg.History.Lookback = 5 * time.Minute
	cfg.Alerts.Retention = alerts.DefaultRetention()
	cfg.Thresholds = models.DefaultThresholds()
	cfg.TimeRange = string(models.DefaultTimeRange)
	cfg.Telegram.PerSecond = 1
	cfg.Push.WriteTimeout = 10 * time.Second
	cfg.Push.Buffer = 64

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Buffers.Live <= 0 || c.Buffers.Chart <= 0 || c.Buffers.Hourly <= 0 {
		return errors.New("config: buffer capacities must be positive")
	}
	if c.Buffers.HourlyBucket <= 0 {
		return errors.New("config: hourly bucket must be positive")
	}
	if c.History.FetchLimit <= 0 {
		return errors.New("config: history fetch limit must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Feed.Transport)) {
	case "", feed.TransportNone, feed.TransportWebSocket, feed.TransportMQTT, feed.TransportKafka:
	default:
		return fmt.Errorf("config: %w %q", feed.ErrUnknownTransport, c.Feed.Transport)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := models.ParseTimeRange(c.TimeRange); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Alerts.Retention.MaxPerBattery < 0 || c.Alerts.Retention.MaxAge < 0 {
		return errors.New("config: alert retention must not be negative")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("config: telegram chat id required when token is set")
	}
	return nil
}

// DefaultTimeRange returns the validated startup range.
func (c *Config) DefaultTimeRange() models.TimeRange {
	r, err := models.ParseTimeRange(c.TimeRange)
	if err != nil {
		return models.DefaultTimeRange
	}
	return r
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
