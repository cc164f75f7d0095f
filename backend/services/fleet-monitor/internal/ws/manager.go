package ws

import (
	"sync"

	"batteryfleet/backend/services/fleet-monitor/internal/metrics"
)

// Manager tracks connected push clients.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewManager builds connection manager.
func NewManager() *Manager {
	return &Manager{connections: make(map[string]*Connection)}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
	metrics.PushClients.Set(float64(len(m.connections)))
}

// Remove removes connection.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
	metrics.PushClients.Set(float64(len(m.connections)))
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Broadcast queues msg on every connection and returns how many accepted it.
func (m *Manager) Broadcast(msg []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sent := 0
	for _, conn := range m.connections {
		if conn.Send(msg) {
			sent++
		}
	}
	return sent
}
