package state

import (
	"errors"
	"sync"
)

// StateMachine switches a room between phases.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// State is one room phase, ticked by the room loop.
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
	HandleAction(player Player, actionData []byte) error
}

var (
	// ErrTransitionNotAllowed is returned when a state transition is not allowed.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrGameNotStarted       = errors.New("game has not started")
	ErrUnknownAction        = errors.New("unknown action")
)

// BaseStateMachine is a mutex-guarded StateMachine with optional transition guards.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // from -> to -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			if condition != nil && !condition() {
				return ErrTransitionNotAllowed
			}
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// RoomStateBase provides no-op hooks for embedding states.
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) OnUpdate() {}

func (s *RoomStateBase) HandleAction(player Player, actionData []byte) error {
	return nil
}

// NewWaitingState creates a new waiting state.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   "waiting",
			Room: room,
		},
	}
}

// WaitingState holds the room until enough players have joined.
type WaitingState struct {
	RoomStateBase
}

func (s *WaitingState) OnEnter() {
	s.Room.StopGame()
}

func (s *WaitingState) OnUpdate() {
	if s.Room.NumPlayers() >= s.Room.GetMinPlayers() {
		s.Room.ChangeState(NewPlayingState(s.Room))
	}
}

func (s *WaitingState) HandleAction(player Player, actionData []byte) error {
	return ErrGameNotStarted
}
