package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/store"
)

// Server upgrades dashboard requests to push sockets and fans store events out to them.
type Server struct {
	manager      *Manager
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	ctx          context.Context
}

// NewServer builds ws server. Connections live until the client leaves or ctx ends.
func NewServer(ctx context.Context, manager *Manager, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		manager:      manager,
		logger:       logger,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for /ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	connection := NewConnection(id, conn, s.writeTimeout, s.logger, s.manager.Remove)
	s.manager.Add(connection)

	go connection.Start(s.ctx)
	s.logger.Info("push client connected", zap.String("client_id", id))
}

// Pump broadcasts events until the channel closes or ctx ends.
func (s *Server) Pump(ctx context.Context, events <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode push event", zap.String("type", string(ev.Type)), zap.Error(err))
				continue
			}
			s.manager.Broadcast(data)
		}
	}
}
