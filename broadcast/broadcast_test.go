package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/turnserver/message"
	"github.com/wfunc/turnserver/room"
	"github.com/wfunc/turnserver/session"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs map[uint16][][]byte
	err  error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{msgs: make(map[uint16][][]byte)}
}

func (r *recordingSender) Send(msgID uint16, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs[msgID] = append(r.msgs[msgID], data)
	return nil
}

func (r *recordingSender) Close() error { return nil }

func (r *recordingSender) received(msgID uint16) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[msgID]
}

func setup() (*room.Manager, *session.Manager, *RoomBroadcaster) {
	rooms := room.NewRoomManager(nil)
	sessions := session.NewManager()
	return rooms, sessions, NewRoomBroadcaster(rooms, sessions)
}

func TestBroadcastToRoom_UnknownRoom(t *testing.T) {
	_, _, b := setup()
	assert.ErrorIs(t, b.BroadcastToRoom("nope", message.MsgTypeRoomState, nil), ErrRoomNotFound)
}

func TestBroadcastToRoom_TurnChangesReachEveryone(t *testing.T) {
	rooms, sessions, b := setup()
	r := rooms.CreateRoom("table", room.Options{MinPlayers: 2, MaxPlayers: 4}, b)
	defer rooms.RemoveRoom(r.ID)

	alice, bob := newRecordingSender(), newRecordingSender()
	for name, conn := range map[string]*recordingSender{"alice": alice, "bob": bob} {
		s := session.NewSession("id_"+name, name, conn)
		sessions.Add(s)
		require.NoError(t, r.AddPlayer(s))
	}
	r.Update()

	for _, conn := range []*recordingSender{alice, bob} {
		got := conn.received(message.MsgTypeTurnChanged)
		require.Len(t, got, 1)
		var tc message.TurnChanged
		require.NoError(t, json.Unmarshal(got[0], &tc))
		assert.Equal(t, r.ID, tc.RoomID)
		assert.Equal(t, 1, tc.Turn)
	}
}

func TestBroadcastToRoom_SkipsFailingSession(t *testing.T) {
	rooms, _, b := setup()
	r := rooms.CreateRoom("table", room.Options{MaxPlayers: 4}, b)
	defer rooms.RemoveRoom(r.ID)

	broken, ok := newRecordingSender(), newRecordingSender()
	broken.err = errors.New("connection reset")
	require.NoError(t, r.AddPlayer(session.NewSession("1", "broken", broken)))
	require.NoError(t, r.AddPlayer(session.NewSession("2", "ok", ok)))

	require.NoError(t, b.BroadcastToRoom(r.ID, message.MsgTypeRoomState, []byte("{}")))
	assert.Empty(t, broken.received(message.MsgTypeRoomState))
	assert.NotEmpty(t, ok.received(message.MsgTypeRoomState))
}

func TestBroadcastToPlayers_OnlyTurnHolderInRoom(t *testing.T) {
	rooms, sessions, b := setup()
	table := rooms.CreateRoom("table", room.Options{MinPlayers: 2, MaxPlayers: 4}, b)
	other := rooms.CreateRoom("other", room.Options{MaxPlayers: 4}, b)
	defer rooms.RemoveRoom(table.ID)
	defer rooms.RemoveRoom(other.ID)

	alice, bob, elsewhere := newRecordingSender(), newRecordingSender(), newRecordingSender()
	seat := func(r *room.Room, id, name string, conn *recordingSender) {
		s := session.NewSession(id, name, conn)
		sessions.Add(s)
		require.NoError(t, r.AddPlayer(s))
	}
	seat(table, "1", "alice", alice)
	seat(table, "2", "bob", bob)
	seat(other, "3", "alice", elsewhere)

	table.Update()
	require.Len(t, alice.received(message.MsgTypeYourTurn), 1)
	assert.Empty(t, bob.received(message.MsgTypeYourTurn))
	assert.Empty(t, elsewhere.received(message.MsgTypeYourTurn), "same name in another room")

	require.NoError(t, table.EndTurn("alice"))
	assert.Len(t, alice.received(message.MsgTypeYourTurn), 1)
	require.Len(t, bob.received(message.MsgTypeYourTurn), 1)

	var tc message.TurnChanged
	require.NoError(t, json.Unmarshal(bob.received(message.MsgTypeYourTurn)[0], &tc))
	assert.Equal(t, "bob", tc.Player.Name)
	assert.Equal(t, 2, tc.Turn)
}
