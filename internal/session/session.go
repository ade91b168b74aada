package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
	"github.com/DoyleJ11/arena-battle-client/internal/conn"
	"github.com/DoyleJ11/arena-battle-client/internal/protocol"
)

var ErrClosed = errors.New("session closed")
var ErrAlreadyStarted = errors.New("session already started")

type Msg interface{ isSessionMsg() }

type Start struct {
	SessionID string
	Reply     chan error
}

type Submit struct {
	Cmd   battle.Command
	Reply chan error
}

type GetView struct {
	Reply chan View
}

type Subscribe struct {
	ClientID string
	Outbox   chan View // must be buffered; a full outbox gets dropped
}

type Unsubscribe struct{ ClientID string }

type ClearError struct{ Reply chan error }

type Retry struct{ Reply chan error }

// Leave disconnects and resets to idle.
type Leave struct{ Reply chan error }

type Shutdown struct{}

type fromConn struct{ n conn.Notice }

func (Start) isSessionMsg()       {}
func (Submit) isSessionMsg()      {}
func (GetView) isSessionMsg()     {}
func (Subscribe) isSessionMsg()   {}
func (Unsubscribe) isSessionMsg() {}
func (ClearError) isSessionMsg()  {}
func (Retry) isSessionMsg()       {}
func (Leave) isSessionMsg()       {}
func (Shutdown) isSessionMsg()    {}
func (fromConn) isSessionMsg()    {}

type View struct {
	Version int          `json:"version"`
	State   battle.State `json:"state"`
}

// Archiver receives the turn log once a battle ends.
type Archiver interface {
	Archive(ctx context.Context, battleID string, entries []battle.LogEntry) error
}

type Config struct {
	Conn      conn.Options
	Dial      conn.Dialer
	Scheduler conn.Scheduler
	Archiver  Archiver
	Log       *zap.Logger
}

type Session struct {
	inbox    chan Msg
	state    battle.State
	version  int
	subs     map[string]chan View
	conn     *conn.Manager
	archiver Archiver
	base     *zap.Logger
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	archiveMu  sync.Mutex
	archivedTo map[string]int
}

func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	dial := cfg.Dial
	if dial == nil {
		dial = conn.WebsocketDialer(nil)
	}

	s := &Session{
		inbox:    make(chan Msg, 64),
		state:    battle.NewIdleState(),
		subs:     make(map[string]chan View),
		archiver: cfg.Archiver,
		base:     log,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.conn = conn.NewManager(cfg.Conn, dial, cfg.Scheduler, s.notify, log)

	go s.loop()
	return s
}

// notify runs on the connection manager's goroutines.
func (s *Session) notify(n conn.Notice) {
	select {
	case s.inbox <- fromConn{n: n}:
	case <-s.ctx.Done():
	}
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Start:
				msg.Reply <- s.start(msg.SessionID)

			case Submit:
				msg.Reply <- s.submit(msg.Cmd)

			case GetView:
				msg.Reply <- View{Version: s.version, State: s.state.Clone()}

			case Subscribe:
				if prev, ok := s.subs[msg.ClientID]; ok && prev != msg.Outbox {
					close(prev)
				}
				s.subs[msg.ClientID] = msg.Outbox
				s.send(msg.ClientID, msg.Outbox, View{Version: s.version, State: s.state.Clone()})

			case Unsubscribe:
				if ch, ok := s.subs[msg.ClientID]; ok {
					close(ch)
					delete(s.subs, msg.ClientID)
				}

			case ClearError:
				s.apply(battle.ErrorCleared{})
				msg.Reply <- nil

			case Retry:
				err := s.conn.Retry()
				if err == nil {
					s.apply(battle.ErrorCleared{})
				}
				msg.Reply <- err

			case Leave:
				s.conn.Disconnect()
				s.apply(battle.Reset{})
				msg.Reply <- nil

			case fromConn:
				s.onConn(s.conn.Handle(msg.n))

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) start(id string) error {
	if s.state.Status != battle.StatusIdle {
		return ErrAlreadyStarted
	}
	s.apply(battle.Began{SessionID: id})
	s.log = s.base.With(zap.String("battle_id", id))
	s.conn.Connect(id)
	return nil
}

func (s *Session) submit(cmd battle.Command) error {
	if err := battle.Check(s.state, cmd); err != nil {
		s.apply(battle.LocalError{Err: err})
		return err
	}
	if !s.conn.Connected() {
		s.apply(battle.LocalError{Err: conn.ErrNotConnected})
		return conn.ErrNotConnected
	}
	msg, err := protocol.FromCommand(cmd)
	if err != nil {
		s.apply(battle.LocalError{Err: err})
		return err
	}
	sel, holds := battle.SelectionFor(cmd)
	if holds {
		s.apply(battle.SelectionMade{Selection: sel})
	}
	if err := s.conn.Send(msg); err != nil {
		// Nothing went out, so no answer will come for the selection.
		if holds {
			s.apply(battle.SelectionWithdrawn{})
		}
		s.apply(battle.LocalError{Err: err})
		return err
	}
	s.log.Debug("command sent", zap.String("type", string(cmd.Type)))
	return nil
}

func (s *Session) onConn(u conn.Update) {
	switch {
	case u.Opened:
		s.apply(battle.ConnectionOpened{})
		if u.Err != nil {
			s.apply(battle.LocalError{Err: u.Err})
		}

	case u.Frame != nil:
		ev, err := protocol.Decode(u.Frame)
		if errors.Is(err, protocol.ErrUnknownMessageType) {
			s.log.Warn("ignoring server message", zap.Error(err))
			return
		}
		if err != nil {
			s.log.Warn("bad server frame", zap.Error(err), zap.ByteString("frame", u.Frame))
			s.apply(battle.LocalError{Err: err})
			return
		}
		s.apply(ev)

	case u.Exhausted:
		s.apply(battle.ConnectionLost{Reason: u.Err.Error()})

	case u.Closed:
		s.apply(battle.ConnectionClosed{})
	}
}

func (s *Session) apply(ev battle.Event) {
	prev := s.state
	s.state = battle.Apply(prev, ev)
	s.version++
	if s.state.Status == battle.StatusEnded && (prev.Status != battle.StatusEnded || len(s.state.TurnLog) > len(prev.TurnLog)) {
		s.archive()
	}
	s.broadcast(View{Version: s.version, State: s.state})
}

func (s *Session) archive() {
	if s.archiver == nil {
		return
	}
	id := s.state.SessionID
	entries := s.state.Clone().TurnLog
	log := s.log
	go func() {
		s.archiveMu.Lock()
		defer s.archiveMu.Unlock()
		// A longer log for this battle already landed.
		if len(entries) < s.archivedTo[id] {
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 10*time.Second)
		defer cancel()
		if err := s.archiver.Archive(ctx, id, entries); err != nil {
			log.Error("archive turn log", zap.Error(err))
			return
		}
		if s.archivedTo == nil {
			s.archivedTo = make(map[string]int)
		}
		s.archivedTo[id] = len(entries)
		log.Info("turn log archived", zap.Int("entries", len(entries)))
	}()
}

func (s *Session) shutdown() {
	s.conn.Disconnect()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

func (s *Session) broadcast(v View) {
	for id, ch := range s.subs {
		s.send(id, ch, View{Version: v.Version, State: v.State.Clone()})
	}
}

func (s *Session) send(id string, ch chan View, v View) {
	select {
	case ch <- v:
	default:
		// Slow subscriber.
		close(ch)
		delete(s.subs, id)
	}
}
