package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketSource reads JSON readings from an upstream socket, redialling after failures.
type WebSocketSource struct {
	url            string
	token          func() (string, error)
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logger         *zap.Logger
	now            func() time.Time
}

// NewWebSocketSource builds a source. token may be nil for unauthenticated feeds.
func NewWebSocketSource(url string, token func() (string, error), reconnectDelay time.Duration, logger *zap.Logger) *WebSocketSource {
	return &WebSocketSource{
		url:            url,
		token:          token,
		reconnectDelay: reconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:         logger,
		now:            time.Now,
	}
}

// Run keeps a connection open until ctx is done.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- Update) error {
	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("feed connection lost", zap.String("transport", TransportWebSocket), zap.Error(err))
		if err := sleepCtx(ctx, s.reconnectDelay); err != nil {
			return nil
		}
	}
}

func (s *WebSocketSource) session(ctx context.Context, out chan<- Update) error {
	header := http.Header{}
	if s.token != nil {
		tok, err := s.token()
		if err != nil {
			return err
		}
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Info("feed connected", zap.String("transport", TransportWebSocket), zap.String("url", s.url))

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		updates, err := Decode(message, "", s.now())
		if err != nil {
			s.logger.Warn("dropping feed message", zap.String("transport", TransportWebSocket), zap.Error(err))
			continue
		}
		if err := deliver(ctx, out, updates); err != nil {
			return err
		}
	}
}
