package feed

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSource consumes readings from a topic as part of a consumer group.
type KafkaSource struct {
	cfg        KafkaConfig
	retryDelay time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewKafkaSource builds a source; the group defaults to "fleet-monitor".
func NewKafkaSource(cfg KafkaConfig, retryDelay time.Duration, logger *zap.Logger) *KafkaSource {
	if cfg.GroupID == "" {
		cfg.GroupID = "fleet-monitor"
	}
	return &KafkaSource{cfg: cfg, retryDelay: retryDelay, logger: logger, now: time.Now}
}

// Run reads until ctx is done. Offsets are committed by the reader as messages are fetched.
func (s *KafkaSource) Run(ctx context.Context, out chan<- Update) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		Topic:    s.cfg.Topic,
		GroupID:  s.cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()
	s.logger.Info("feed connected", zap.String("transport", TransportKafka), zap.String("topic", s.cfg.Topic))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("kafka read failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
			if sleepCtx(ctx, s.retryDelay) != nil {
				return nil
			}
			continue
		}
		updates, err := Decode(msg.Value, string(msg.Key), s.now())
		if err != nil {
			s.logger.Warn("dropping feed message", zap.String("transport", TransportKafka),
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		if err := deliver(ctx, out, updates); err != nil {
			return nil
		}
	}
}
