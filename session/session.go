// session/session.go
package session

import (
	"sync"
	"time"
)

// Sender is the outbound side of a player's connection.
type Sender interface {
	Send(msgID uint16, data []byte) error
	Close() error
}

type Session struct {
	ID         string
	Name       string // unique player name inside a room
	Color      string // assigned by the room on join
	Conn       Sender
	CreatedAt  time.Time
	LastActive time.Time
	roomID     string
	mutex      sync.RWMutex
}

func NewSession(id, name string, conn Sender) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Name:       name,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// RoomID returns the room the player is seated in, or "".
func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = id
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

// GetName returns the player name used by the turn order.
func (s *Session) GetName() string {
	return s.Name
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks every live session.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

// GetByName returns the sessions using a player name, across rooms.
func (m *Manager) GetByName(name string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.Name == name {
			result = append(result, session)
		}
	}
	return result
}
