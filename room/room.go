// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/turnserver/logger"
	"github.com/wfunc/turnserver/message"
	"github.com/wfunc/turnserver/monitor"
	"github.com/wfunc/turnserver/session"
	"github.com/wfunc/turnserver/state"
	"github.com/wfunc/turnserver/turn"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrNameTaken       = errors.New("player name already taken in room")
	ErrPlayerNotInRoom = errors.New("player not in room")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNoActiveState   = errors.New("room has no active state")
	ErrRoomEmpty       = errors.New("room is empty")
)

// RoomStatus is the business status of a room.
type RoomStatus int

const (
	StatusIdle RoomStatus = iota
	StatusWaiting
	StatusPlaying
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Options configures a room.
type Options struct {
	MinPlayers int
	MaxPlayers int
	// TickInterval drives the state machine. Zero runs no loop; callers
	// then call Update themselves.
	TickInterval time.Duration
	// TurnTimeout passes the turn on when a player holds it too long. Zero disables it.
	TurnTimeout time.Duration
	Monitor     *monitor.Monitor
}

// Room owns one turn order and serializes every call into it.
type Room struct {
	ID           string
	Name         string
	MinPlayers   int
	MaxPlayers   int
	TurnTimeout  time.Duration
	Status       RoomStatus
	Players      map[string]*session.Session // player name -> session
	StateMachine state.StateMachine
	CreatedAt    time.Time

	// Guarded by playerMutex.
	turns        *turn.Tracker
	current      *turn.Player
	turnNumber   int
	turnStarted  time.Time
	turnDeadline time.Time

	broadcaster Broadcaster
	monitor     *monitor.Monitor
	statusMutex sync.RWMutex
	playerMutex sync.Mutex
	updateMutex sync.Mutex
	ticker      *time.Ticker
	closeChan   chan bool
	closeOnce   sync.Once
	now         func() time.Time
}

type outbound struct {
	msgID   uint16
	payload interface{}
	to      []string // player names; empty means the whole room
}

// NewRoom creates a room in the waiting state.
func NewRoom(id, name string, opts Options, broadcaster Broadcaster) *Room {
	if opts.MinPlayers < 1 {
		opts.MinPlayers = 1
	}
	if opts.MaxPlayers < opts.MinPlayers {
		opts.MaxPlayers = opts.MinPlayers
	}

	room := &Room{
		ID:          id,
		Name:        name,
		MinPlayers:  opts.MinPlayers,
		MaxPlayers:  opts.MaxPlayers,
		TurnTimeout: opts.TurnTimeout,
		Status:      StatusIdle,
		Players:     make(map[string]*session.Session),
		CreatedAt:   time.Now(),
		turns:       turn.NewTracker(nil),
		broadcaster: broadcaster,
		monitor:     opts.Monitor,
		closeChan:   make(chan bool),
		now:         time.Now,
	}

	// The room itself is the state machine's context.
	waiting, playing := state.NewWaitingState(room), state.NewPlayingState(room)
	sm := state.NewBaseStateMachine(waiting)
	sm.AddTransition(waiting, playing, func() bool {
		return room.NumPlayers() >= room.MinPlayers
	})
	// A phase never re-enters itself; re-entering playing would deal a second first turn.
	sm.AddTransition(playing, playing, func() bool { return false })
	sm.AddTransition(waiting, waiting, func() bool { return false })
	room.StateMachine = sm

	if opts.TickInterval > 0 {
		room.ticker = time.NewTicker(opts.TickInterval)
		go room.loop()
	}

	return room
}

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) GetMinPlayers() int {
	return r.MinPlayers
}

func (r *Room) NumPlayers() int {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	return r.turns.NumPlayers()
}

func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// StartGame marks the room as playing and hands out the first turn.
func (r *Room) StartGame() {
	r.SetStatus(StatusPlaying)

	r.playerMutex.Lock()
	events := []outbound{{msgID: message.MsgTypeGameStart, payload: r.snapshotLocked()}}
	events = append(events, r.advanceLocked(message.ReasonStart)...)
	r.playerMutex.Unlock()

	r.emit(events)
}

// StopGame returns the room to waiting. Nobody holds the turn afterwards.
func (r *Room) StopGame() {
	r.SetStatus(StatusWaiting)

	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	r.current = nil
	r.turnDeadline = time.Time{}
}

// EndTurn passes the turn on, provided name currently holds it.
func (r *Room) EndTurn(name string) error {
	r.playerMutex.Lock()
	if r.current == nil || r.current.Name != name {
		r.playerMutex.Unlock()
		return fmt.Errorf("%w: %q", ErrNotYourTurn, name)
	}
	events := r.advanceLocked(message.ReasonEndTurn)
	r.playerMutex.Unlock()

	r.emit(events)
	return nil
}

// ExpireTurn passes the turn on if its deadline is before now.
func (r *Room) ExpireTurn(now time.Time) {
	r.playerMutex.Lock()
	if r.current == nil || r.turnDeadline.IsZero() || now.Before(r.turnDeadline) {
		r.playerMutex.Unlock()
		return
	}
	logger.Log.Infof("Room %s: turn %d of %s timed out", r.ID, r.turnNumber, r.current.Name)
	r.monitor.TurnExpired()
	events := r.advanceLocked(message.ReasonTimeout)
	r.playerMutex.Unlock()

	r.emit(events)
}

// --- roster ---

// AddPlayer seats s at the end of the turn order.
func (r *Room) AddPlayer(s *session.Session) error {
	events, err := r.addPlayer(s)
	if err != nil {
		return err
	}
	r.monitor.PlayerJoined()
	r.emit(events)
	return nil
}

func (r *Room) addPlayer(s *session.Session) ([]outbound, error) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if r.turns.NumPlayers() >= r.MaxPlayers {
		return nil, ErrRoomFull
	}
	// Check first: the tracker treats a duplicate name as a programming error.
	if r.turns.IsPlaying(s.Name) {
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, s.Name)
	}

	used := make(map[string]bool, len(r.Players))
	for _, p := range r.Players {
		used[p.Color] = true
	}
	s.Color = pickColor(used)
	s.SetRoomID(r.ID)
	r.Players[s.Name] = s
	r.turns.AddPlayer(turn.Player{Name: s.Name, Color: s.Color})

	logger.Log.Infof("Player %s joined room %s: %s", s.Name, r.ID, r.turns)
	events := []outbound{
		{msgID: message.MsgTypePlayerJoined, payload: message.PlayerEvent{RoomID: r.ID, Player: playerInfo(s.Name, s.Color)}},
	}
	// A playing room that emptied out has nobody holding the turn.
	if r.current == nil && r.GetStatus() == StatusPlaying {
		events = append(events, r.advanceLocked(message.ReasonStart)...)
	}
	return append(events, outbound{msgID: message.MsgTypeRoomState, payload: r.snapshotLocked()}), nil
}

// RemovePlayer takes name out of the turn order. If name held the turn, it
// passes straight to the next player.
func (r *Room) RemovePlayer(name string) error {
	events, err := r.removePlayer(name)
	if err != nil {
		return err
	}
	r.monitor.PlayerLeft()
	r.emit(events)
	return nil
}

func (r *Room) removePlayer(name string) ([]outbound, error) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	s, ok := r.Players[name]
	if !ok || !r.turns.IsPlaying(name) {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotInRoom, name)
	}
	s.SetRoomID("")
	delete(r.Players, name)
	r.turns.RemovePlayer(name)

	logger.Log.Infof("Player %s left room %s: %s", name, r.ID, r.turns)
	events := []outbound{
		{msgID: message.MsgTypePlayerLeft, payload: message.PlayerEvent{RoomID: r.ID, Player: playerInfo(s.Name, s.Color)}},
	}

	if r.current != nil && r.current.Name == name {
		if r.GetStatus() == StatusPlaying {
			// advanceLocked still sees the leaver as holder and records the turn length.
			events = append(events, r.advanceLocked(message.ReasonLeft)...)
		} else {
			r.current = nil
		}
	}
	return append(events, outbound{msgID: message.MsgTypeRoomState, payload: r.snapshotLocked()}), nil
}

// AdvanceTurn forces the turn to the next player regardless of who holds it.
// Only a playing room has a turn to pass.
func (r *Room) AdvanceTurn() (turn.Player, error) {
	if r.GetStatus() != StatusPlaying {
		return turn.Player{}, state.ErrGameNotStarted
	}

	r.playerMutex.Lock()
	events := r.advanceLocked(message.ReasonSkip)
	current := r.current
	r.playerMutex.Unlock()

	r.emit(events)
	if current == nil {
		return turn.Player{}, ErrRoomEmpty
	}
	return *current, nil
}

// advanceLocked asks the tracker for the next player. r.playerMutex must be held.
func (r *Room) advanceLocked(reason string) []outbound {
	now := r.now()
	if r.current != nil {
		r.monitor.ObserveTurnDuration(now.Sub(r.turnStarted))
	}

	p, ok := r.turns.AdvancePlayer()
	if !ok {
		r.current = nil
		r.turnDeadline = time.Time{}
		return nil
	}

	r.current = &p
	r.turnNumber++
	r.turnStarted = now
	r.turnDeadline = time.Time{}
	if r.TurnTimeout > 0 {
		r.turnDeadline = now.Add(r.TurnTimeout)
	}
	r.monitor.TurnAdvanced()

	changed := message.TurnChanged{
		RoomID:  r.ID,
		Player:  playerInfo(p.Name, p.Color),
		Turn:    r.turnNumber,
		Reason:  reason,
		Timeout: r.TurnTimeout.Milliseconds(),
	}
	return []outbound{
		{msgID: message.MsgTypeTurnChanged, payload: changed},
		{msgID: message.MsgTypeYourTurn, payload: changed, to: []string{p.Name}},
	}
}

// CurrentPlayer returns who holds the turn.
func (r *Room) CurrentPlayer() (turn.Player, bool) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	if r.current == nil {
		return turn.Player{}, false
	}
	return *r.current, true
}

// IsHost reports whether name is first in turn order.
func (r *Room) IsHost(name string) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	return r.turns.IsFirstPlayer(name)
}

// Snapshot describes the roster and whose turn it is.
func (r *Room) Snapshot() message.RoomState {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() message.RoomState {
	players := r.turns.Players()
	st := message.RoomState{
		RoomID:  r.ID,
		Name:    r.Name,
		Status:  r.GetStatus().String(),
		Players: make([]message.PlayerInfo, 0, len(players)),
		Turn:    r.turnNumber,
	}
	for _, p := range players {
		st.Players = append(st.Players, playerInfo(p.Name, p.Color))
	}
	if len(players) > 0 {
		st.Host = players[0].Name
	}
	if r.current != nil {
		st.Current = r.current.Name
	}
	return st
}

// GetPlayer looks up a seated player by name.
func (r *Room) GetPlayer(name string) (*session.Session, bool) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	player, exists := r.Players[name]
	return player, exists
}

// GetSessions returns the room's sessions in turn order.
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	players := r.turns.Players()
	sessions := make([]*session.Session, 0, len(players))
	for _, p := range players {
		if s, ok := r.Players[p.Name]; ok {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// HandleAction routes a player action to the current state.
func (r *Room) HandleAction(name string, actionData []byte) error {
	player, ok := r.GetPlayer(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPlayerNotInRoom, name)
	}
	currentState := r.StateMachine.GetCurrentState()
	if currentState == nil {
		return ErrNoActiveState
	}
	return currentState.HandleAction(player, actionData)
}

func (r *Room) SetStatus(status RoomStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.Status = status
}

func (r *Room) GetStatus() RoomStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.Status
}

// emit broadcasts events. Must be called without r.playerMutex held, since
// broadcasters read the room's sessions.
func (r *Room) emit(events []outbound) {
	if r.broadcaster == nil {
		return
	}
	for _, ev := range events {
		data, err := json.Marshal(ev.payload)
		if err != nil {
			logger.Log.Errorf("Room %s: marshal message %d: %v", r.ID, ev.msgID, err)
			continue
		}
		if len(ev.to) > 0 {
			err = r.broadcaster.BroadcastToPlayers(r.ID, ev.to, ev.msgID, data)
		} else {
			err = r.broadcaster.BroadcastToRoom(r.ID, ev.msgID, data)
		}
		if err != nil {
			logger.Log.Warnf("Room %s: broadcast message %d: %v", r.ID, ev.msgID, err)
		}
	}
}

func playerInfo(name, color string) message.PlayerInfo {
	return message.PlayerInfo{Name: name, Color: color}
}

// loop drives state updates until Close.
func (r *Room) loop() {
	for {
		select {
		case <-r.ticker.C:
			r.Update()
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Update ticks the current state. Ticks from the loop and from callers never overlap.
func (r *Room) Update() {
	r.updateMutex.Lock()
	defer r.updateMutex.Unlock()

	if r.StateMachine != nil {
		currentState := r.StateMachine.GetCurrentState()
		if currentState != nil {
			currentState.OnUpdate()
		}
	}
}

// Close stops the room loop and takes its seated players off the online count.
// Safe to call more than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
		r.monitor.PlayersLeft(r.NumPlayers())
	})
}

// --- room manager ---

// Manager tracks all rooms.
type Manager struct {
	rooms   map[string]*Room
	monitor *monitor.Monitor
	mutex   sync.RWMutex
}

func NewRoomManager(mon *monitor.Monitor) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		monitor: mon,
	}
}

// CreateRoom creates a room with a fresh ID and registers it.
func (m *Manager) CreateRoom(name string, opts Options, broadcaster Broadcaster) *Room {
	if opts.Monitor == nil {
		opts.Monitor = m.monitor
	}
	room := NewRoom(uuid.New().String(), name, opts, broadcaster)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rooms[room.ID] = room
	m.monitor.SetActiveRooms(len(m.rooms))
	return room
}

// RemoveRoom closes a room and forgets it.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
		m.monitor.SetActiveRooms(len(m.rooms))
	}
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}
