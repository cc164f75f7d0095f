package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownTransport is returned for an unsupported transport name.
var ErrUnknownTransport = errors.New("feed: unknown transport")

// Source pushes decoded updates into out until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- Update) error
}

const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
	TransportKafka     = "kafka"
	TransportNone      = "none"
)

// WebSocketConfig describes an upstream push socket.
type WebSocketConfig struct {
	URL string `yaml:"url"`
}

// MQTTConfig describes a broker subscription. The battery id is the last topic segment.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      uint8  `yaml:"qos"`
}

// KafkaConfig describes a consumer group subscription. The message key is the battery id fallback.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// AuthConfig is used to sign the bearer token presented upstream.
type AuthConfig struct {
	Secret  string        `yaml:"secret"`
	Subject string        `yaml:"subject"`
	TTL     time.Duration `yaml:"ttl"`
}

// Config selects and configures a transport.
type Config struct {
	Transport      string          `yaml:"transport"`
	ReconnectDelay time.Duration   `yaml:"reconnectDelay"`
	WebSocket      WebSocketConfig `yaml:"websocket"`
	MQTT           MQTTConfig      `yaml:"mqtt"`
	Kafka          KafkaConfig     `yaml:"kafka"`
	Auth           AuthConfig      `yaml:"auth"`
}

// NewSource builds the configured transport. TransportNone yields a nil Source.
func NewSource(cfg Config, logger *zap.Logger) (Source, error) {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case TransportWebSocket:
		if cfg.WebSocket.URL == "" {
			return nil, errors.New("feed: websocket url required")
		}
		return NewWebSocketSource(cfg.WebSocket.URL, tokenFunc(cfg.Auth), cfg.ReconnectDelay, logger), nil
	case TransportMQTT:
		if cfg.MQTT.Broker == "" || cfg.MQTT.Topic == "" {
			return nil, errors.New("feed: mqtt broker and topic required")
		}
		return NewMQTTSource(cfg.MQTT, logger), nil
	case TransportKafka:
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return nil, errors.New("feed: kafka brokers and topic required")
		}
		return NewKafkaSource(cfg.Kafka, cfg.ReconnectDelay, logger), nil
	case TransportNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
}

func tokenFunc(auth AuthConfig) func() (string, error) {
	if auth.Secret == "" {
		return nil
	}
	return func() (string, error) {
		return ServiceToken(auth.Secret, auth.Subject, auth.TTL, time.Now())
	}
}

// deliver hands updates to out unless ctx ends first.
func deliver(ctx context.Context, out chan<- Update, updates []Update) error {
	for _, u := range updates {
		select {
		case out <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
