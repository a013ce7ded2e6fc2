package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encountergrid/backend/internal/grid"
	"github.com/encountergrid/backend/internal/types"
)

func freshGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(16)
	require.NoError(t, err)
	return g
}

func inSession(t *testing.T) *Reconciler {
	t.Helper()
	r := New()
	r.Connect()
	r.Apply(types.ServerMessage{
		Type:      types.MsgSessionCreated,
		SessionID: "xk3p9q1z",
		Grid:      freshGrid(t),
	})
	require.Equal(t, PhaseInSession, r.Phase())
	return r
}

func TestCreatedSnapshotEntersSession(t *testing.T) {
	r := New()
	assert.Equal(t, PhaseDisconnected, r.Phase())
	r.Connect()
	assert.Equal(t, PhaseConnected, r.Phase())

	r.Apply(types.ServerMessage{Type: types.MsgSessionCreated, SessionID: "xk3p9q1z", Grid: freshGrid(t)})

	assert.Equal(t, PhaseInSession, r.Phase())
	assert.Equal(t, "xk3p9q1z", r.SessionID())
	require.NotNil(t, r.Grid())
	require.Len(t, r.Grid().Cells, 256)
	for _, c := range r.Grid().Cells {
		require.False(t, c.Occupied)
		require.Nil(t, c.Occupant)
	}
}

func TestJoinedSnapshotReplacesGridVerbatim(t *testing.T) {
	r := inSession(t)
	_, err := r.ToggleCell(3)
	require.NoError(t, err)

	server := freshGrid(t)
	_, _ = server.PlaceMonster(7, grid.Monster{ID: "orc", Name: "Orc"})
	r.Apply(types.ServerMessage{Type: types.MsgSessionJoined, SessionID: "ab12cd34", Grid: server})

	assert.Equal(t, "ab12cd34", r.SessionID())
	assert.False(t, r.Grid().Cells[3].Occupied, "local edit must not survive a snapshot")
	assert.True(t, r.Grid().Cells[7].Occupied)
}

func TestToggleCell_OptimisticAndIntentMatch(t *testing.T) {
	r := inSession(t)

	msg, err := r.ToggleCell(5)
	require.NoError(t, err)

	assert.Equal(t, types.MsgUpdateGrid, msg.Type)
	assert.Equal(t, "xk3p9q1z", msg.SessionID)
	require.NotNil(t, msg.CellIndex)
	assert.Equal(t, 5, *msg.CellIndex)
	require.NotNil(t, msg.Value)
	assert.True(t, msg.Value.Occupied)
	assert.True(t, r.Grid().Cells[5].Occupied, "toggle applies before the round-trip")
}

func TestEchoIsIdempotent(t *testing.T) {
	r := inSession(t)

	msg, err := r.ToggleCell(5)
	require.NoError(t, err)
	afterLocal := r.Grid().Snapshot()

	echo := types.ServerMessage{Type: types.MsgGridUpdated, CellIndex: msg.CellIndex, Value: msg.Value}
	r.Apply(echo)
	r.Apply(echo) // applying the same payload twice converges

	assert.Equal(t, afterLocal.Cells, r.Grid().Cells)
}

func TestPlaceMonsterThenToggleOff(t *testing.T) {
	r := inSession(t)

	msg, err := r.PlaceMonster(10, grid.Monster{ID: "goblin", Name: "Goblin"})
	require.NoError(t, err)
	require.NotNil(t, msg.Value.Occupant)
	assert.Equal(t, "goblin", msg.Value.Occupant.ID)
	assert.True(t, r.Grid().Cells[10].Occupied)

	off, err := r.ToggleCell(10)
	require.NoError(t, err)
	assert.False(t, off.Value.Occupied)
	assert.Nil(t, off.Value.Occupant)
	assert.Nil(t, r.Grid().Cells[10].Occupant)
}

func TestIntentsRequireSession(t *testing.T) {
	r := New()
	r.Connect()

	_, err := r.ToggleCell(0)
	assert.ErrorIs(t, err, ErrNotInSession)
	_, err = r.PlaceMonster(0, grid.Monster{ID: "goblin", Name: "Goblin"})
	assert.ErrorIs(t, err, ErrNotInSession)
}

func TestErrorIsTransientAndKeepsPhase(t *testing.T) {
	r := New()
	r.Connect()

	var notified string
	r.OnError = func(m string) { notified = m }
	r.Apply(types.ServerMessage{Type: types.MsgError, Message: "Session not found."})

	assert.Equal(t, "Session not found.", notified)
	assert.Equal(t, PhaseConnected, r.Phase(), "error must not change state")
	assert.Nil(t, r.Grid())
}

func TestLeaveResetsLocally(t *testing.T) {
	r := inSession(t)
	r.Leave()

	assert.Equal(t, PhaseConnected, r.Phase())
	assert.Empty(t, r.SessionID())
	assert.Nil(t, r.Grid())

	// Stray broadcasts after leaving are ignored.
	idx := 0
	r.Apply(types.ServerMessage{Type: types.MsgGridUpdated, CellIndex: &idx, Value: &grid.Cell{Occupied: true}})
	assert.Nil(t, r.Grid())
}
