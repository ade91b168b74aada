package conn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/protocol"
)

var ErrNotConnected = errors.New("socket not open")
var ErrSendQueueFull = errors.New("send queue full")
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
var ErrNoSession = errors.New("no session to connect")

// Socket is the subset of *websocket.Conn the manager drives.
type Socket interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

type Dialer func(ctx context.Context, url string) (Socket, error)

func WebsocketDialer(opts *websocket.DialOptions) Dialer {
	return func(ctx context.Context, url string) (Socket, error) {
		c, _, err := websocket.Dial(ctx, url, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type Options struct {
	BaseURL      string
	MaxAttempts  int
	BaseDelay    time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:      baseURL,
		MaxAttempts:  5,
		BaseDelay:    time.Second,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
		SendBuffer:   16,
	}
}

// Notice is posted by the manager's goroutines and timers. The owner hands
// each one back to Handle on its own goroutine.
type Notice interface{ isNotice() }

type opened struct {
	gen  uint64
	sock Socket
}

type frame struct {
	gen  uint64
	data []byte
}

type closed struct {
	gen  uint64
	code websocket.StatusCode
	err  error
}

type reconnectDue struct{ gen uint64 }

func (opened) isNotice()       {}
func (frame) isNotice()        {}
func (closed) isNotice()       {}
func (reconnectDue) isNotice() {}

type Retry struct {
	Attempt int
	Delay   time.Duration
}

// Update is what a notice meant for the session. The zero value means the
// notice was stale and should be ignored.
type Update struct {
	Opened    bool
	Frame     []byte
	Closed    bool
	Retry     *Retry
	Exhausted bool
	Err       error
}

// Manager owns at most one socket for one battle session. It is not safe for
// concurrent use: every method runs on the owner's goroutine, and the
// manager's own goroutines only talk back through notify.
type Manager struct {
	opts   Options
	dial   Dialer
	sched  Scheduler
	notify func(Notice)
	log    *zap.Logger

	sessionID string
	gen       uint64
	sock      Socket
	out       chan []byte
	cancel    context.CancelFunc
	timer     Timer
	attempts  int
	exhausted bool
	// reopen is set once the session has had a socket.
	reopen bool
}

func NewManager(opts Options, dial Dialer, sched Scheduler, notify func(Notice), log *zap.Logger) *Manager {
	if sched == nil {
		sched = RealScheduler
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	return &Manager{opts: opts, dial: dial, sched: sched, notify: notify, log: log}
}

func (m *Manager) Connected() bool { return m.sock != nil }

func (m *Manager) Exhausted() bool { return m.exhausted }

func (m *Manager) Attempts() int { return m.attempts }

// Connect opens a connection scoped to sessionID with a fresh retry budget.
func (m *Manager) Connect(sessionID string) {
	m.teardown()
	m.sessionID = sessionID
	m.attempts = 0
	m.exhausted = false
	m.reopen = false
	m.startDial()
}

// Retry redials after the budget ran out or the server closed normally.
func (m *Manager) Retry() error {
	if m.sessionID == "" {
		return ErrNoSession
	}
	if m.sock != nil {
		return nil
	}
	m.stopTimer()
	m.attempts = 0
	m.exhausted = false
	m.startDial()
	return nil
}

// Disconnect closes with a normal closure, cancels any pending reconnect and
// releases the session. Notices already in flight become stale.
func (m *Manager) Disconnect() {
	m.teardown()
	m.sessionID = ""
	m.attempts = 0
	m.exhausted = false
	m.reopen = false
}

// Send queues msg for the writer. Delivery is not guaranteed.
func (m *Manager) Send(msg protocol.ClientMessage) error {
	if m.sock == nil {
		return ErrNotConnected
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case m.out <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (m *Manager) Handle(n Notice) Update {
	switch n := n.(type) {
	case opened:
		if n.gen != m.gen || m.sessionID == "" {
			go n.sock.Close(websocket.StatusNormalClosure, "stale connection")
			return Update{}
		}
		return m.onOpened(n.sock)

	case frame:
		if n.gen != m.gen || m.sock == nil {
			return Update{}
		}
		return Update{Frame: n.data}

	case closed:
		if n.gen != m.gen || m.sessionID == "" {
			return Update{}
		}
		return m.onClosed(n.code, n.err)

	case reconnectDue:
		if n.gen != m.gen || m.sessionID == "" || m.sock != nil {
			return Update{}
		}
		m.timer = nil
		m.log.Info("reconnecting", zap.String("battle_id", m.sessionID), zap.Int("attempt", m.attempts))
		m.startDial()
		return Update{}
	}
	return Update{}
}

func (m *Manager) onOpened(sock Socket) Update {
	m.sock = sock
	m.attempts = 0
	m.exhausted = false
	m.out = make(chan []byte, m.opts.SendBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	prev := m.cancel
	m.cancel = cancel
	if prev != nil {
		prev()
	}

	go m.readPump(ctx, sock, m.gen)
	go m.writePump(ctx, sock, m.out)

	m.log.Info("battle socket connected", zap.String("battle_id", m.sessionID))

	// battle_init is idempotent, so every (re)connect asks for a full resync.
	// battle_init alone does not replay a pending ko_switch_prompt.
	if err := m.Send(protocol.BattleInit()); err != nil {
		return Update{Opened: true, Err: fmt.Errorf("send battle_init: %w", err)}
	}
	if m.reopen {
		if err := m.Send(protocol.Reconnect()); err != nil {
			return Update{Opened: true, Err: fmt.Errorf("send reconnect: %w", err)}
		}
	}
	m.reopen = true
	return Update{Opened: true}
}

func (m *Manager) onClosed(code websocket.StatusCode, cause error) Update {
	m.sock = nil
	m.out = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	u := Update{Closed: true, Err: cause}
	if code == websocket.StatusNormalClosure {
		m.log.Info("battle socket closed normally", zap.String("battle_id", m.sessionID))
		return u
	}

	if m.attempts >= m.opts.MaxAttempts {
		m.exhausted = true
		m.log.Error("giving up on battle socket",
			zap.String("battle_id", m.sessionID),
			zap.Int("attempts", m.attempts),
			zap.Error(cause))
		u.Exhausted = true
		u.Err = fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, m.attempts, cause)
		return u
	}

	m.attempts++
	delay := m.opts.BaseDelay * time.Duration(m.attempts)
	gen := m.gen
	m.timer = m.sched.AfterFunc(delay, func() { m.notify(reconnectDue{gen: gen}) })
	m.log.Warn("battle socket dropped",
		zap.String("battle_id", m.sessionID),
		zap.Int("close_code", int(code)),
		zap.Int("attempt", m.attempts),
		zap.Duration("retry_in", delay),
		zap.Error(cause))
	u.Retry = &Retry{Attempt: m.attempts, Delay: delay}
	return u
}

func (m *Manager) startDial() {
	m.gen++
	gen := m.gen
	target := m.endpoint()
	timeout := m.opts.DialTimeout

	ctx, cancel := context.WithCancel(context.Background())
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel

	go func() {
		dctx := ctx
		if timeout > 0 {
			var dcancel context.CancelFunc
			dctx, dcancel = context.WithTimeout(ctx, timeout)
			defer dcancel()
		}
		sock, err := m.dial(dctx, target)
		if err != nil {
			m.notify(closed{gen: gen, code: -1, err: err})
			return
		}
		if ctx.Err() != nil {
			sock.Close(websocket.StatusNormalClosure, "dial cancelled")
			return
		}
		m.notify(opened{gen: gen, sock: sock})
	}()
}

func (m *Manager) readPump(ctx context.Context, sock Socket, gen uint64) {
	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			m.notify(closed{gen: gen, code: websocket.CloseStatus(err), err: err})
			return
		}
		m.notify(frame{gen: gen, data: data})
	}
}

func (m *Manager) writePump(ctx context.Context, sock Socket, out <-chan []byte) {
	timeout := m.opts.WriteTimeout
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-out:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := sock.Write(wctx, websocket.MessageText, p)
			cancel()
			if err != nil {
				// The reader sees the close and reports it.
				m.log.Warn("battle socket write failed", zap.Error(err))
				sock.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (m *Manager) teardown() {
	m.stopTimer()
	m.gen++
	sock, cancel := m.sock, m.cancel
	m.sock, m.cancel, m.out = nil, nil, nil
	if sock == nil {
		if cancel != nil {
			cancel()
		}
		return
	}
	go func() {
		sock.Close(websocket.StatusNormalClosure, "Client disconnect")
		if cancel != nil {
			cancel()
		}
	}()
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) endpoint() string {
	return fmt.Sprintf("%s/ws/battle/%s/", strings.TrimRight(m.opts.BaseURL, "/"), url.PathEscape(m.sessionID))
}
