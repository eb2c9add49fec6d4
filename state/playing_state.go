package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/turnserver/logger"
	"github.com/wfunc/turnserver/message"
)

// PlayingState rotates turns until the room empties.
type PlayingState struct {
	RoomStateBase
	StartedAt time.Time
}

// NewPlayingState creates a new playing state.
func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   "playing",
			Room: room,
		},
	}
}

// OnEnter grants the first turn.
func (s *PlayingState) OnEnter() {
	s.StartedAt = time.Now()
	logger.Log.Infof("Room %s started playing with %d players", s.Room.GetID(), s.Room.NumPlayers())
	s.Room.StartGame()
}

func (s *PlayingState) OnExit() {
	logger.Log.Infof("Room %s stopped playing after %v", s.Room.GetID(), time.Since(s.StartedAt))
}

func (s *PlayingState) OnUpdate() {
	if s.Room.NumPlayers() == 0 {
		s.Room.ChangeState(NewWaitingState(s.Room))
		return
	}
	s.Room.ExpireTurn(time.Now())
}

// HandleAction handles actions from players.
func (s *PlayingState) HandleAction(player Player, actionData []byte) error {
	var action message.Action
	if err := json.Unmarshal(actionData, &action); err != nil {
		return fmt.Errorf("failed to unmarshal action data: %w", err)
	}

	switch action.Type {
	case message.ActionEndTurn:
		return s.Room.EndTurn(player.GetName())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}
