// message/message.go
package message

const (
	MsgTypePlayerJoined = 101
	MsgTypePlayerLeft   = 102
	MsgTypeRoomState    = 301
	MsgTypeGameStart    = 303
	MsgTypeTurnChanged  = 304
	MsgTypeYourTurn     = 305 // sent to the new turn holder only
)

// PlayerInfo describes one roster entry.
type PlayerInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PlayerEvent is the payload of MsgTypePlayerJoined and MsgTypePlayerLeft.
type PlayerEvent struct {
	RoomID string     `json:"room_id"`
	Player PlayerInfo `json:"player"`
}

// RoomState is the payload of MsgTypeRoomState.
type RoomState struct {
	RoomID  string       `json:"room_id"`
	Name    string       `json:"name"`
	Status  string       `json:"status"`
	Players []PlayerInfo `json:"players"` // turn order
	Host    string       `json:"host,omitempty"`
	Current string       `json:"current,omitempty"`
	Turn    int          `json:"turn"`
}

// TurnChanged is the payload of MsgTypeTurnChanged and MsgTypeYourTurn.
type TurnChanged struct {
	RoomID  string     `json:"room_id"`
	Player  PlayerInfo `json:"player"`
	Turn    int        `json:"turn"`
	Reason  string     `json:"reason"`
	Timeout int64      `json:"timeout_ms,omitempty"`
}

// Reasons a turn changed hands.
const (
	ReasonStart   = "start"
	ReasonEndTurn = "end_turn"
	ReasonTimeout = "timeout"
	ReasonLeft    = "player_left"
	ReasonSkip    = "skip"
)

// Action is a player action, e.g. {"type":"end_turn"}.
type Action struct {
	Type string `json:"type"`
}

// ActionEndTurn hands the turn to the next player.
const ActionEndTurn = "end_turn"
