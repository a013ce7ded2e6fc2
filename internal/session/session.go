package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/grid"
)

// How long a retired session keeps refusing stragglers before its
// goroutine exits.
const stragglerLinger = 3 * time.Second

type EventKind string

const (
	EvtSessionCreated EventKind = "session_created"
	EvtSessionJoined  EventKind = "session_joined"
	EvtGridUpdated    EventKind = "grid_updated"
	EvtError          EventKind = "error"
)

// Event is what a session delivers on a member's outbox. Snapshot events
// carry the full grid; grid updates carry only the changed cell.
type Event struct {
	Kind      EventKind
	SessionID string
	Grid      *grid.Grid
	CellIndex int
	Value     grid.Cell
	Message   string
}

type Msg interface{ isSessionMsg() }

// Join registers a member and immediately sends it a snapshot event of
// kind Ack (EvtSessionCreated for the creator, EvtSessionJoined otherwise).
// The session takes exclusive ownership of Outbox and closes it on
// slow-drop, shutdown, or refusal — allocate a fresh channel per join and
// never hand the same one to two sessions.
type Join struct {
	ClientID string
	Outbox   chan Event
	Ack      EventKind
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type UpdateCell struct {
	ClientID string
	Index    int
	Value    grid.Cell
}

func (UpdateCell) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type View struct {
	NumClients int
	Grid       *grid.Grid
}

// Session owns one grid. All mutations flow through the inbox loop, so
// updates within a session are totally ordered and members observe
// broadcasts in that same order.
type Session struct {
	id      string
	inbox   chan Msg
	grid    *grid.Grid
	clients map[string]chan Event
	onEmpty func()
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the session loop. onEmpty (optional) fires when the member
// set empties, so the owner can retire the session.
func New(parent context.Context, id string, g *grid.Grid, log *zap.Logger, onEmpty func()) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:      id,
		inbox:   make(chan Msg, 64),
		grid:    g,
		clients: make(map[string]chan Event),
		onEmpty: onEmpty,
		log:     log.With(zap.String("session_id", id)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Never block the loop on a joiner: refuse anyone whose
				// outbox can't even hold the snapshot.
				select {
				case msg.Outbox <- Event{Kind: msg.Ack, SessionID: s.id, Grid: s.grid.Snapshot()}:
					s.clients[msg.ClientID] = msg.Outbox
				default:
					s.log.Warn("joiner outbox full, refusing join", zap.String("client_id", msg.ClientID))
					close(msg.Outbox)
				}

			case Leave:
				if _, ok := s.clients[msg.ClientID]; !ok {
					break
				}
				delete(s.clients, msg.ClientID)
				if len(s.clients) == 0 && s.onEmpty != nil {
					s.onEmpty()
				}

			case UpdateCell:
				out, ok := s.clients[msg.ClientID]
				if !ok {
					// No outbox to deliver an error to; the transport
					// layer already rejects non-members.
					s.log.Warn("update from non-member dropped", zap.String("client_id", msg.ClientID))
					break
				}
				stored, err := s.grid.SetCell(msg.Index, msg.Value)
				if err != nil {
					select {
					case out <- Event{Kind: EvtError, SessionID: s.id, Message: err.Error()}:
					default:
						s.log.Warn("dropping slow client", zap.String("client_id", msg.ClientID))
						close(out)
						delete(s.clients, msg.ClientID)
						if len(s.clients) == 0 && s.onEmpty != nil {
							s.onEmpty()
						}
					}
					break
				}
				s.broadcast(Event{Kind: EvtGridUpdated, SessionID: s.id, CellIndex: msg.Index, Value: stored})

			case GetState:
				msg.Reply <- View{NumClients: len(s.clients), Grid: s.grid.Snapshot()}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
	go s.refuseStragglers()
}

// A join the registry admitted just before removal can land after the
// loop exits. Linger briefly and refuse stragglers so a late joiner sees
// a closed outbox instead of silence.
func (s *Session) refuseStragglers() {
	timer := time.NewTimer(stragglerLinger)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				close(msg.Outbox)
			case GetState:
				msg.Reply <- View{}
			}
		}
	}
}

func (s *Session) broadcast(ev Event) {
	for id, ch := range s.clients {
		select {
		case ch <- ev:
		default:
			// Client is slow/full - drop them.
			s.log.Warn("dropping slow client", zap.String("client_id", id))
			close(ch)
			delete(s.clients, id)
		}
	}
	if len(s.clients) == 0 && s.onEmpty != nil {
		s.onEmpty()
	}
}
