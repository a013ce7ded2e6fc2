package types

import "github.com/encountergrid/backend/internal/grid"

// Client -> server intents.
const (
	MsgCreateSession = "create_session"
	MsgJoinSession   = "join_session"
	MsgUpdateGrid    = "update_grid"
)

// Server -> client confirmations and broadcasts.
const (
	MsgSessionCreated = "session_created"
	MsgSessionJoined  = "session_joined"
	MsgGridUpdated    = "grid_updated"
	MsgError          = "error"
)

type ClientMessage struct {
	Type      string     `json:"type"`
	SessionID string     `json:"session_id,omitempty"`
	CellIndex *int       `json:"cell_index,omitempty"`
	Value     *grid.Cell `json:"value,omitempty"`
}

type ServerMessage struct {
	Type      string     `json:"type"` // "session_created" | "session_joined" | "grid_updated" | "error"
	SessionID string     `json:"session_id,omitempty"`
	Grid      *grid.Grid `json:"grid,omitempty"`
	CellIndex *int       `json:"cell_index,omitempty"`
	Value     *grid.Cell `json:"value,omitempty"`
	Message   string     `json:"message,omitempty"`
}
