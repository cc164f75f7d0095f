package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// Notifier fans new alerts out to an operator channel. Notify must not block.
type Notifier interface {
	Notify(battery models.Battery, alert models.AlertRecord)
	Run(ctx context.Context) error
}

// Noop discards alerts.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(models.Battery, models.AlertRecord) {}

// Run blocks until ctx is done.
func (Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

const (
	defaultQueueSize = 128
	sendAttempts     = 3
)

// TelegramNotifier posts alerts to one chat, rate limited, from a background queue.
type TelegramNotifier struct {
	send    func(ctx context.Context, text string) error
	limiter *rate.Limiter
	queue   chan string
	logger  *zap.Logger
	backoff time.Duration
	dropped atomic.Uint64
}

// NewTelegramNotifier builds a notifier for chatID allowing perSecond messages.
func NewTelegramNotifier(token string, chatID int64, perSecond float64, logger *zap.Logger) (*TelegramNotifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("notify: telegram token required")
	}
	if chatID == 0 {
		return nil, errors.New("notify: telegram chat id required")
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("notify: init telegram bot: %w", err)
	}
	send := func(ctx context.Context, text string) error {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return err
	}
	return newTelegramNotifier(send, perSecond, logger), nil
}

func newTelegramNotifier(send func(context.Context, string) error, perSecond float64, logger *zap.Logger) *TelegramNotifier {
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &TelegramNotifier{
		send:    send,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		queue:   make(chan string, defaultQueueSize),
		logger:  logger,
		backoff: time.Second,
	}
}

// Notify queues the alert; when the queue is full the alert is dropped and counted.
func (n *TelegramNotifier) Notify(battery models.Battery, alert models.AlertRecord) {
	select {
	case n.queue <- Format(battery, alert):
	default:
		n.dropped.Add(1)
		n.logger.Warn("notification queue full, dropping alert", zap.String("alert_id", alert.ID))
	}
}

// Dropped returns how many alerts were not queued.
func (n *TelegramNotifier) Dropped() uint64 {
	return n.dropped.Load()
}

// Run delivers queued messages until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := n.deliver(ctx, text); err != nil {
				n.logger.Error("telegram delivery failed", zap.Error(err))
			}
		}
	}
}

func (n *TelegramNotifier) deliver(ctx context.Context, text string) error {
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err = n.send(ctx, text); err == nil {
			return nil
		}
		n.logger.Warn("telegram send failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == sendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.backoff * time.Duration(attempt)):
		}
	}
	return err
}

// Format renders the chat message for an alert.
func Format(battery models.Battery, alert models.AlertRecord) string {
	name := battery.Name
	if name == "" {
		name = alert.BatteryID
	}
	return fmt.Sprintf("[%s] %s (%s)\n%s", strings.ToUpper(string(alert.Direction)), name, alert.BatteryID, alert.Message)
}
