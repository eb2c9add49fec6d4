package turn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePlayer(name string) Player {
	return Player{Name: name, Color: "blue"}
}

func requireNext(t *testing.T, tr *Tracker, want Player) {
	t.Helper()
	got, ok := tr.AdvancePlayer()
	require.True(t, ok, "expected %s, got no player", want.Name)
	require.Equal(t, want, got)
}

func requireNone(t *testing.T, tr *Tracker) {
	t.Helper()
	_, ok := tr.AdvancePlayer()
	require.False(t, ok, "expected no player")
}

// panicCause runs fn and returns the error it panicked with.
func panicCause(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		err, ok = r.(error)
		require.True(t, ok, "panic value should be an error, got %T", r)
	}()
	fn()
	return nil
}

func TestConstructAndLoop(t *testing.T) {
	p1, p2, p3 := makePlayer("p1"), makePlayer("p2"), makePlayer("p3")
	tr := NewTracker([]Player{p1, p2, p3})

	for i := 0; i < 50; i++ {
		requireNext(t, tr, p1)
		requireNext(t, tr, p2)
		requireNext(t, tr, p3)
	}
}

func TestNewTrackerCopiesInput(t *testing.T) {
	players := []Player{makePlayer("p1"), makePlayer("p2")}
	tr := NewTracker(players)
	players[0] = makePlayer("intruder")

	assert.True(t, tr.IsPlaying("p1"))
	assert.False(t, tr.IsPlaying("intruder"))
}

func TestAddOneAfterAdvance(t *testing.T) {
	p1, p2, p3 := makePlayer("p1"), makePlayer("p2"), makePlayer("p3")
	tr := NewTracker([]Player{p1, p2})

	requireNext(t, tr, p1)
	tr.AddPlayer(p3)
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p2)
		requireNext(t, tr, p3)
		requireNext(t, tr, p1)
	}
}

func TestAddTwoAfterSinglePlayer(t *testing.T) {
	p1, p2, p3 := makePlayer("p1"), makePlayer("p2"), makePlayer("p3")
	tr := NewTracker([]Player{p1})

	requireNext(t, tr, p1)
	tr.AddPlayer(p2)
	tr.AddPlayer(p3)
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p2)
		requireNext(t, tr, p3)
		requireNext(t, tr, p1)
	}
}

func TestSinglePlayer(t *testing.T) {
	p1 := makePlayer("p1")
	tr := NewTracker([]Player{p1})
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p1)
	}
}

func TestSinglePlayerJoinCorrection(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1})

	for i := 0; i < 3; i++ {
		requireNext(t, tr, p1)
	}
	tr.AddPlayer(p2)
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p2)
		requireNext(t, tr, p1)
	}
}

func TestSecondPlayerBeforeAnyAdvance(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1})

	tr.AddPlayer(p2)
	requireNext(t, tr, p1)
	requireNext(t, tr, p2)
}

func TestRemoveLast(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1, p2})

	requireNext(t, tr, p1)
	tr.RemovePlayer("p1")
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p2)
	}
}

func TestRemoveNext(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1, p2})

	requireNext(t, tr, p1)
	tr.RemovePlayer("p2")
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p1)
	}
}

func TestRemoveAll(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1, p2})

	requireNext(t, tr, p1)
	tr.RemovePlayer("p2")
	tr.RemovePlayer("p1")
	assert.Equal(t, 0, tr.NumPlayers())
	for i := 0; i < 10; i++ {
		requireNone(t, tr)
	}
}

func TestRemoveCursorCases(t *testing.T) {
	a, b, c, d := makePlayer("a"), makePlayer("b"), makePlayer("c"), makePlayer("d")

	tests := []struct {
		name     string
		advances int
		remove   string
		want     []Player
	}{
		// cursor at c (index 2), removed b at index 1
		{name: "before cursor", advances: 2, remove: "b", want: []Player{c, d, a, c, d, a}},
		// cursor at d (index 3, last), removed d
		{name: "at cursor and last", advances: 3, remove: "d", want: []Player{a, b, c, a}},
		// cursor at b (index 1), removed b
		{name: "at cursor mid list", advances: 1, remove: "b", want: []Player{c, d, a, c}},
		// cursor at b (index 1), removed d
		{name: "after cursor", advances: 1, remove: "d", want: []Player{b, c, a, b}},
		// cursor at a (index 0), removed a
		{name: "at cursor at front", advances: 0, remove: "a", want: []Player{b, c, d, b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker([]Player{a, b, c, d})
			for i := 0; i < tt.advances; i++ {
				_, ok := tr.AdvancePlayer()
				require.True(t, ok)
			}
			tr.RemovePlayer(tt.remove)
			require.Equal(t, 3, tr.NumPlayers())
			for _, want := range tt.want {
				requireNext(t, tr, want)
			}
		})
	}
}

func TestStartEmpty(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker(nil)

	requireNone(t, tr)
	tr.AddPlayer(p1)
	tr.AddPlayer(p2)
	for i := 0; i < 10; i++ {
		requireNext(t, tr, p1)
		requireNext(t, tr, p2)
	}
}

func TestAddOneAdvanceAddOneThenRinseRepeat(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker(nil)

	for round := 0; round < 2; round++ {
		requireNone(t, tr)
		tr.AddPlayer(p1)
		requireNext(t, tr, p1)
		tr.AddPlayer(p2)
		requireNext(t, tr, p2)

		tr.RemovePlayer("p1")
		tr.RemovePlayer("p2")
	}
}

func TestAddDuplicatePanics(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1, p2})
	requireNext(t, tr, p1)
	before := tr.String()

	err := panicCause(t, func() { tr.AddPlayer(Player{Name: "p1", Color: "red"}) })
	assert.True(t, errors.Is(err, ErrDuplicatePlayer))

	assert.Equal(t, 2, tr.NumPlayers())
	assert.Equal(t, before, tr.String())
	requireNext(t, tr, p2)
}

func TestRemoveUnknownPanics(t *testing.T) {
	p1, p2 := makePlayer("p1"), makePlayer("p2")
	tr := NewTracker([]Player{p1, p2})
	requireNext(t, tr, p1)
	before := tr.String()

	err := panicCause(t, func() { tr.RemovePlayer("ghost") })
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	assert.Equal(t, 2, tr.NumPlayers())
	assert.Equal(t, before, tr.String())
	requireNext(t, tr, p2)
}

func TestLookups(t *testing.T) {
	tr := NewTracker(nil)
	assert.False(t, tr.IsFirstPlayer("p1"))
	assert.False(t, tr.IsPlaying("p1"))
	assert.Equal(t, 0, tr.NumPlayers())

	tr.AddPlayer(makePlayer("p1"))
	tr.AddPlayer(makePlayer("p2"))
	assert.True(t, tr.IsFirstPlayer("p1"))
	assert.False(t, tr.IsFirstPlayer("p2"))
	assert.True(t, tr.IsPlaying("p2"))
	assert.Equal(t, 2, tr.NumPlayers())

	tr.RemovePlayer("p1")
	assert.True(t, tr.IsFirstPlayer("p2"))
	assert.Equal(t, []Player{makePlayer("p2")}, tr.Players())
}

func TestString(t *testing.T) {
	tr := NewTracker([]Player{makePlayer("a"), makePlayer("b"), makePlayer("c")})
	assert.Equal(t, "*a, b, c", tr.String())

	tr.AdvancePlayer()
	assert.Equal(t, "a, *b, c", tr.String())

	assert.Equal(t, "", NewTracker(nil).String())
}
