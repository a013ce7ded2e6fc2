// Package reconcile is the client-side half of the sync protocol: it keeps a
// local copy of the session grid, applies the user's edits optimistically,
// and folds server broadcasts back in. The server is always authoritative;
// local optimism is only ever overwritten, never rejected.
package reconcile

import (
	"errors"

	"github.com/encountergrid/backend/internal/grid"
	"github.com/encountergrid/backend/internal/types"
)

var ErrNotInSession = errors.New("not in a session")

type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnected    Phase = "connected"
	PhaseInSession    Phase = "in_session"
)

type Reconciler struct {
	phase     Phase
	sessionID string
	grid      *grid.Grid

	// OnError, when set, receives protocol error messages. They are
	// transient notifications; no state changes on error.
	OnError func(message string)
}

func New() *Reconciler {
	return &Reconciler{phase: PhaseDisconnected}
}

func (r *Reconciler) Phase() Phase      { return r.phase }
func (r *Reconciler) SessionID() string { return r.sessionID }
func (r *Reconciler) Grid() *grid.Grid  { return r.grid }

// Connect marks the transport as up. No session yet.
func (r *Reconciler) Connect() {
	if r.phase == PhaseDisconnected {
		r.phase = PhaseConnected
	}
}

func (r *Reconciler) CreateSession() types.ClientMessage {
	return types.ClientMessage{Type: types.MsgCreateSession}
}

func (r *Reconciler) JoinSession(sessionID string) types.ClientMessage {
	return types.ClientMessage{Type: types.MsgJoinSession, SessionID: sessionID}
}

// ToggleCell flips the marker at i on the local grid immediately and
// returns the intent to send. The server's echo re-applies the same value,
// which is a no-op unless another member's edit landed in between.
func (r *Reconciler) ToggleCell(i int) (types.ClientMessage, error) {
	if r.phase != PhaseInSession {
		return types.ClientMessage{}, ErrNotInSession
	}
	cell, err := r.grid.ToggleOccupancy(i)
	if err != nil {
		return types.ClientMessage{}, err
	}
	return r.updateMessage(i, cell), nil
}

// PlaceMonster puts m at i optimistically and returns the intent to send.
func (r *Reconciler) PlaceMonster(i int, m grid.Monster) (types.ClientMessage, error) {
	if r.phase != PhaseInSession {
		return types.ClientMessage{}, ErrNotInSession
	}
	cell, err := r.grid.PlaceMonster(i, m)
	if err != nil {
		return types.ClientMessage{}, err
	}
	return r.updateMessage(i, cell), nil
}

// Leave resets local session state. Purely client-side: the server learns
// of departure from the connection close, not from this.
func (r *Reconciler) Leave() {
	if r.phase == PhaseInSession {
		r.phase = PhaseConnected
		r.sessionID = ""
		r.grid = nil
	}
}

// Apply folds a server message into local state. Snapshot messages replace
// the grid verbatim; grid_updated is a plain set-cell, so applying the same
// payload twice converges to the same grid.
func (r *Reconciler) Apply(msg types.ServerMessage) {
	switch msg.Type {
	case types.MsgSessionCreated, types.MsgSessionJoined:
		if msg.Grid == nil {
			return
		}
		r.phase = PhaseInSession
		r.sessionID = msg.SessionID
		r.grid = msg.Grid.Snapshot()

	case types.MsgGridUpdated:
		if r.phase != PhaseInSession || msg.CellIndex == nil || msg.Value == nil {
			return
		}
		_, _ = r.grid.SetCell(*msg.CellIndex, *msg.Value)

	case types.MsgError:
		if r.OnError != nil {
			r.OnError(msg.Message)
		}
	}
}

func (r *Reconciler) updateMessage(i int, cell grid.Cell) types.ClientMessage {
	idx := i
	val := cell
	return types.ClientMessage{
		Type:      types.MsgUpdateGrid,
		SessionID: r.sessionID,
		CellIndex: &idx,
		Value:     &val,
	}
}
