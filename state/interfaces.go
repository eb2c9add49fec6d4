// state/interfaces.go
package state

import "time"

// Player defines the minimal interface for a player entity that a state needs to interact with.
type Player interface {
	GetID() string
	GetName() string
}

// RoomContext defines the interface that a Room must implement to be managed by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	NumPlayers() int
	GetMinPlayers() int
	ChangeState(newState State) error
	StartGame()
	StopGame()
	EndTurn(name string) error
	ExpireTurn(now time.Time)
}
