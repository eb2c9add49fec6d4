// turn/tracker.go
package turn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/turnserver/logger"
)

var (
	// ErrDuplicatePlayer is the panic cause when a name is added twice.
	ErrDuplicatePlayer = errors.New("player with identical name added twice")
	// ErrPlayerNotFound is the panic cause when removing a name that is not playing.
	ErrPlayerNotFound = errors.New("player not found")
)

// Player is a participant in the rotation. Names are unique within a Tracker;
// Color is presentation data the tracker never looks at.
type Player struct {
	Name  string
	Color string
}

// Tracker decides whose turn is next for an ordered roster that can change
// mid-game. It has no internal locking; the owner serializes calls.
type Tracker struct {
	players []Player
	next    int

	// Set by AdvancePlayer whenever it runs with exactly one player and read
	// by AddPlayer when the second player joins.
	singlePlayerStarted bool
}

// NewTracker creates a tracker whose turn order is the order of players.
// Names must already be unique.
func NewTracker(players []Player) *Tracker {
	logger.Log.Debugf("Creating turn tracker with players %v", players)
	return &Tracker{
		players: append([]Player(nil), players...),
	}
}

// IsPlaying reports whether a player named name is on the roster.
func (t *Tracker) IsPlaying(name string) bool {
	return t.indexOf(name) >= 0
}

// NumPlayers returns the roster size.
func (t *Tracker) NumPlayers() int {
	return len(t.players)
}

// IsFirstPlayer reports whether name is first in turn order. False when empty.
func (t *Tracker) IsFirstPlayer(name string) bool {
	return len(t.players) > 0 && t.players[0].Name == name
}

// Players returns a copy of the roster in turn order.
func (t *Tracker) Players() []Player {
	return append([]Player(nil), t.players...)
}

// AddPlayer appends p so it acts last in the current round.
// It panics with ErrDuplicatePlayer if the name is already playing.
func (t *Tracker) AddPlayer(p Player) {
	if t.IsPlaying(p.Name) {
		panic(fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.Name))
	}
	t.players = append(t.players, p)

	// While alone the sole player's turn is already under way, so the newcomer
	// goes next instead of the cursor handing the turn back to player 0.
	if len(t.players) == 2 && t.singlePlayerStarted {
		t.next = 1
	}
	logger.Log.Debugf("Adding player %s, new: %s", p.Name, t)
}

// RemovePlayer drops the named player and keeps the cursor on whoever would
// naturally act next. It panics with ErrPlayerNotFound for unknown names.
func (t *Tracker) RemovePlayer(name string) {
	i := t.indexOf(name)
	if i < 0 {
		panic(fmt.Errorf("%w: %q", ErrPlayerNotFound, name))
	}

	switch {
	case i < t.next:
		// Everyone after i shifts left by one, including the next player.
		t.next--
	case i == t.next && t.next == len(t.players)-1:
		// The next player was also the last one; wrap to the front.
		t.next = 0
	case i == t.next:
		// The player after i slides into the cursor slot.
	default:
		// i > t.next: the cursor is unaffected.
	}

	t.players = append(t.players[:i], t.players[i+1:]...)
	logger.Log.Debugf("Removing player %s, left: %s", name, t)
}

// AdvancePlayer returns the player whose turn it is and moves the cursor on.
// ok is false when the roster is empty.
func (t *Tracker) AdvancePlayer() (p Player, ok bool) {
	if len(t.players) == 0 {
		return Player{}, false
	}
	// Consumed by AddPlayer.
	t.singlePlayerStarted = len(t.players) == 1

	p = t.players[t.next]
	t.next = (t.next + 1) % len(t.players)
	logger.Log.Debugf("Advancing player, new: %s", t)
	return p, true
}

// String lists the roster in turn order with the next player marked by '*'.
func (t *Tracker) String() string {
	var b strings.Builder
	for i, p := range t.players {
		if i > 0 {
			b.WriteString(", ")
		}
		if i == t.next {
			b.WriteByte('*')
		}
		b.WriteString(p.Name)
	}
	return b.String()
}

func (t *Tracker) indexOf(name string) int {
	for i, p := range t.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}
