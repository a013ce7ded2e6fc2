package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/registry"
	"github.com/encountergrid/backend/internal/session"
	"github.com/encountergrid/backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

// membership is one attachment of a connection to a session. Each
// membership gets its own outbox: the session owns that channel
// exclusively and closes it on drop or shutdown, so a channel is never
// shared between two sessions across a switch.
type membership struct {
	sess   *session.Session
	outbox chan session.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// conn tracks one client connection and the session it is attached to.
// A connection is a member of at most one session at a time.
type conn struct {
	clientID string
	ws       *websocket.Conn
	reg      *registry.Registry
	member   *membership
	log      *zap.Logger
}

func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wsc, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer wsc.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		c := &conn{
			clientID: clientID,
			ws:       wsc,
			reg:      reg,
			log:      log.With(zap.String("client_id", clientID)),
		}
		c.log.Info("client connected")
		defer c.log.Info("client disconnected")

		// Membership follows the connection: whatever session we're in
		// when the socket dies, leave it.
		defer func() {
			if c.member != nil {
				c.member.sess.Inbox() <- session.Leave{ClientID: c.clientID}
			}
		}()

		c.readLoop(r.Context())
	}
}

func (c *conn) readLoop(ctx context.Context) {
	for {
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := c.ws.Read(rctx)
		cancel()
		if err != nil {
			// Clean close/going-away is normal; either way the deferred
			// Leave keeps the member set honest.
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.writeError(ctx, "bad json")
			continue
		}

		switch cm.Type {
		case types.MsgCreateSession:
			c.handleCreate(ctx)
		case types.MsgJoinSession:
			c.handleJoin(ctx, cm.SessionID)
		case types.MsgUpdateGrid:
			c.handleUpdate(ctx, cm)
		default:
			c.writeError(ctx, "unknown type")
		}
	}
}

func (c *conn) handleCreate(ctx context.Context) {
	reply := make(chan registry.Created, 1)
	c.reg.Inbox() <- registry.CreateSession{Reply: reply}
	created := <-reply
	if created.Sess == nil {
		c.writeError(ctx, "failed to create session")
		return
	}
	c.attach(ctx, created.Sess, session.EvtSessionCreated)
}

func (c *conn) handleJoin(ctx context.Context, sessionID string) {
	reply := make(chan *session.Session, 1)
	c.reg.Inbox() <- registry.GetSession{ID: sessionID, Reply: reply}
	sess := <-reply
	if sess == nil {
		c.writeError(ctx, "Session not found.")
		return
	}
	c.attach(ctx, sess, session.EvtSessionJoined)
}

func (c *conn) handleUpdate(ctx context.Context, cm types.ClientMessage) {
	if cm.CellIndex == nil || cm.Value == nil {
		c.writeError(ctx, "missing cell_index or value")
		return
	}
	if c.member == nil || c.member.sess.ID() != cm.SessionID {
		// Distinguish an unknown session from one we're just not in.
		reply := make(chan *session.Session, 1)
		c.reg.Inbox() <- registry.GetSession{ID: cm.SessionID, Reply: reply}
		if <-reply == nil {
			c.writeError(ctx, "Session not found.")
		} else {
			c.writeError(ctx, "not a member of this session")
		}
		return
	}

	c.member.sess.Inbox() <- session.UpdateCell{ClientID: c.clientID, Index: *cm.CellIndex, Value: *cm.Value}
}

// attach switches the connection onto sess. The old membership is left
// and its forwarder fully stopped first, so no broadcast from the former
// session can be written after the new session's snapshot.
func (c *conn) attach(ctx context.Context, sess *session.Session, ack session.EventKind) {
	c.detach()

	fctx, cancel := context.WithCancel(ctx)
	m := &membership{
		sess:   sess,
		outbox: make(chan session.Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.forward(fctx, m)
	c.member = m
	sess.Inbox() <- session.Join{ClientID: c.clientID, Outbox: m.outbox, Ack: ack}
}

// detach leaves the current session, if any, and waits for its forwarder
// to stop. Buffered events from the old session are discarded, not
// written.
func (c *conn) detach() {
	if c.member == nil {
		return
	}
	c.member.sess.Inbox() <- session.Leave{ClientID: c.clientID}
	c.member.cancel()
	<-c.member.done
	c.member = nil
}

// forward drains one membership's events to the socket. A closed outbox
// means the session dropped us as slow, shut down, or refused the join;
// closing the socket then unblocks the read loop so the client can
// reconnect and rejoin.
func (c *conn) forward(ctx context.Context, m *membership) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.outbox:
			if !ok {
				c.ws.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			payload, _ := json.Marshal(toServerMessage(ev))
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = c.ws.Write(wctx, websocket.MessageText, payload)
			cancel()
		}
	}
}

func (c *conn) writeError(ctx context.Context, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: types.MsgError, Message: msg})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(wctx, websocket.MessageText, payload); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug("error write failed", zap.Error(err))
	}
}

func toServerMessage(ev session.Event) types.ServerMessage {
	switch ev.Kind {
	case session.EvtSessionCreated, session.EvtSessionJoined:
		return types.ServerMessage{Type: string(ev.Kind), SessionID: ev.SessionID, Grid: ev.Grid}
	case session.EvtGridUpdated:
		idx := ev.CellIndex
		val := ev.Value
		return types.ServerMessage{Type: types.MsgGridUpdated, CellIndex: &idx, Value: &val}
	default:
		return types.ServerMessage{Type: types.MsgError, Message: ev.Message}
	}
}
