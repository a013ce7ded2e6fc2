package registry

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/grid"
	"github.com/encountergrid/backend/internal/session"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
const idLength = 8

type Msg interface{ isRegistryMsg() }

type CreateSession struct {
	Reply chan Created
}

type Created struct {
	ID   string
	Sess *session.Session
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type RemoveSession struct {
	ID string
}

type ShutdownRegistry struct{}

func (CreateSession) isRegistryMsg()    {}
func (GetSession) isRegistryMsg()       {}
func (RemoveSession) isRegistryMsg()    {}
func (ShutdownRegistry) isRegistryMsg() {}

// Registry is the process-wide session table. Ids are generated inside the
// loop so the collision check and the insert can't race.
type Registry struct {
	inbox    chan Msg
	sessions map[string]*session.Session
	gridSize int
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, gridSize int, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan Msg, 64),
		sessions: make(map[string]*session.Session),
		gridSize: gridSize,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case CreateSession:
				id := r.freshID()
				g, err := grid.New(r.gridSize)
				if err != nil {
					// Grid size is validated at config load; this only
					// trips on a programming error.
					r.log.Error("grid allocation failed", zap.Error(err))
					msg.Reply <- Created{}
					break
				}
				sess := session.New(r.ctx, id, g, r.log, func() {
					r.inbox <- RemoveSession{ID: id}
				})
				r.sessions[id] = sess
				r.log.Info("session created", zap.String("session_id", id))
				msg.Reply <- Created{ID: id, Sess: sess}

			case GetSession:
				msg.Reply <- r.sessions[msg.ID] // May be nil

			case RemoveSession:
				if sess := r.sessions[msg.ID]; sess != nil {
					delete(r.sessions, msg.ID)
					sess.Inbox() <- session.Shutdown{}
					r.log.Info("session removed", zap.String("session_id", msg.ID))
				}

			case ShutdownRegistry:
				for _, sess := range r.sessions {
					sess.Inbox() <- session.Shutdown{}
				}
				clear(r.sessions)
				r.cancel()
			}
		}
	}
}

func (r *Registry) freshID() string {
	for {
		id := randomID()
		if _, taken := r.sessions[id]; !taken {
			return id
		}
		r.log.Warn("session id collision, regenerating", zap.String("session_id", id))
	}
}

func randomID() string {
	id := make([]byte, idLength)
	for i := range id {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		id[i] = idCharset[num.Int64()]
	}
	return string(id)
}
