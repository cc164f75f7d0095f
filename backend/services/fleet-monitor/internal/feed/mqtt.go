package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTSource subscribes to a topic filter such as "fleet/batteries/+".
type MQTTSource struct {
	cfg    MQTTConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewMQTTSource builds a source; QoS above 2 is lowered to 1.
func NewMQTTSource(cfg MQTTConfig, logger *zap.Logger) *MQTTSource {
	if cfg.QoS > 2 {
		cfg.QoS = 1
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fleet-monitor"
	}
	return &MQTTSource{cfg: cfg, logger: logger, now: time.Now}
}

// Run connects, subscribes and blocks until ctx is done. The paho client reconnects on its own.
func (s *MQTTSource) Run(ctx context.Context, out chan<- Update) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetUsername(s.cfg.Username).
		SetPassword(s.cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(false)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.handle(ctx, out, msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", zap.String("topic", s.cfg.Topic), zap.Error(token.Error()))
			return
		}
		s.logger.Info("feed connected", zap.String("transport", TransportMQTT), zap.String("topic", s.cfg.Topic))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("feed connection lost", zap.String("transport", TransportMQTT), zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("feed: mqtt connect: %w", err)
		}
	case <-ctx.Done():
		return nil
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

func (s *MQTTSource) handle(ctx context.Context, out chan<- Update, topic string, payload []byte) {
	updates, err := Decode(payload, TopicBatteryID(topic), s.now())
	if err != nil {
		s.logger.Warn("dropping feed message", zap.String("transport", TransportMQTT), zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := deliver(ctx, out, updates); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("feed delivery aborted", zap.Error(err))
	}
}

// TopicBatteryID returns the last non-empty segment of an MQTT topic.
func TopicBatteryID(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	return parts[len(parts)-1]
}
