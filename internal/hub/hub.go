package hub

import (
	"context"

	"github.com/DoyleJ11/arena-battle-client/internal/session"
)

type HubMsg interface{ isHubMsg() }

// CreateSession returns the session for BattleID, creating it if needed.
type CreateSession struct {
	BattleID string
	Reply    chan *session.Session
}

type GetSession struct {
	BattleID string
	Reply    chan *session.Session
}

type ListSessions struct {
	Reply chan []string
}

// RemoveSession closes the session and forgets it.
type RemoveSession struct {
	BattleID string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (ListSessions) isHubMsg()  {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	cfg      session.Config
	sessions map[string]*session.Session
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts a registry whose sessions are all built from cfg.
func NewHub(parent context.Context, cfg session.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		cfg:      cfg,
		sessions: make(map[string]*session.Session),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.BattleID]; s != nil {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, h.cfg)
				h.sessions[msg.BattleID] = s
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.BattleID] // May be nil

			case ListSessions:
				ids := make([]string, 0, len(h.sessions))
				for id := range h.sessions {
					ids = append(ids, id)
				}
				msg.Reply <- ids

			case RemoveSession:
				if s := h.sessions[msg.BattleID]; s != nil {
					s.Close()
					delete(h.sessions, msg.BattleID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.Close()
		delete(h.sessions, id)
	}
	h.cancel()
}

// Get asks the hub for a session without going through the inbox by hand.
func (h *Hub) Get(ctx context.Context, battleID string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.ask(ctx, GetSession{BattleID: battleID, Reply: reply}, reply)
}

func (h *Hub) Create(ctx context.Context, battleID string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.ask(ctx, CreateSession{BattleID: battleID, Reply: reply}, reply)
}

func (h *Hub) ask(ctx context.Context, m HubMsg, reply chan *session.Session) (*session.Session, error) {
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, session.ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, session.ErrClosed
	}
}
