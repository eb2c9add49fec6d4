// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/turnserver/logger"
	"github.com/wfunc/turnserver/room"
	"github.com/wfunc/turnserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Broadcaster fans messages out to sessions.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToPlayers(roomID string, names []string, msgID uint16, data []byte) error
}

// RoomBroadcaster resolves rooms and sessions through their managers.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom sends to every seated player in turn order. A failing
// session is logged and skipped.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	for _, s := range r.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Send %d to %s in room %s failed: %v", msgID, s.Name, roomID, err)
			continue
		}
	}
	return nil
}

// BroadcastToPlayers sends to the named players' sessions seated in roomID.
// The same name in another room is left alone.
func (b *RoomBroadcaster) BroadcastToPlayers(roomID string, names []string, msgID uint16, data []byte) error {
	for _, name := range names {
		for _, s := range b.sessionManager.GetByName(name) {
			if s.RoomID() != roomID {
				continue
			}
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Warnf("Send %d to %s in room %s failed: %v", msgID, name, roomID, err)
				continue
			}
		}
	}
	return nil
}
