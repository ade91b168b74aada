package session

import (
	"context"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
)

// The methods below wrap the inbox for callers that want a synchronous answer.
// Each blocks until the session loop has handled the message.

func (s *Session) Start(ctx context.Context, sessionID string) error {
	reply := make(chan error, 1)
	return s.call(ctx, Start{SessionID: sessionID, Reply: reply}, reply)
}

// Submit validates cmd against the current state and sends it. A command the
// session cannot accept is never sent; the error is also left in LastError.
func (s *Session) Submit(ctx context.Context, cmd battle.Command) error {
	reply := make(chan error, 1)
	return s.call(ctx, Submit{Cmd: cmd, Reply: reply}, reply)
}

func (s *Session) SubmitMove(ctx context.Context, moveID string) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdMove, MoveID: moveID})
}

func (s *Session) SubmitSwitch(ctx context.Context, coreIndex int) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdSwitch, CoreIndex: coreIndex})
}

func (s *Session) SubmitPass(ctx context.Context) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdPass})
}

func (s *Session) SubmitGainResource(ctx context.Context) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdGainResource})
}

func (s *Session) SubmitDiceAllocation(ctx context.Context, allocations []battle.Allocation) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdAllocateDice, Allocations: allocations})
}

func (s *Session) SubmitKoSwitch(ctx context.Context, coreIndex int) error {
	return s.Submit(ctx, battle.Command{Type: battle.CmdKoSwitch, CoreIndex: coreIndex})
}

func (s *Session) ClearError(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.call(ctx, ClearError{Reply: reply}, reply)
}

// Retry redials after the connection was lost for good.
func (s *Session) Retry(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.call(ctx, Retry{Reply: reply}, reply)
}

func (s *Session) Leave(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.call(ctx, Leave{Reply: reply}, reply)
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.post(ctx, GetView{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}
}

// Subscribe registers an outbox that receives the current view immediately
// and every view after it. The session closes the outbox when it drops the
// subscriber.
func (s *Session) Subscribe(ctx context.Context, clientID string, buffer int) (<-chan View, error) {
	if buffer < 1 {
		buffer = 1
	}
	out := make(chan View, buffer)
	if err := s.post(ctx, Subscribe{ClientID: clientID, Outbox: out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) Unsubscribe(ctx context.Context, clientID string) error {
	return s.post(ctx, Unsubscribe{ClientID: clientID})
}

// Close disconnects and stops the loop.
func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.ctx.Done():
	}
}

func (s *Session) post(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func (s *Session) call(ctx context.Context, m Msg, reply <-chan error) error {
	if err := s.post(ctx, m); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}
