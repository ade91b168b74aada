package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/arena"
	"github.com/DoyleJ11/arena-battle-client/internal/battle"
	"github.com/DoyleJ11/arena-battle-client/internal/conn"
	"github.com/DoyleJ11/arena-battle-client/internal/hub"
	"github.com/DoyleJ11/arena-battle-client/internal/session"
	"github.com/DoyleJ11/arena-battle-client/internal/types"
)

type BattleStarter interface {
	StartBattle(ctx context.Context, npcID, operatorID string) (string, error)
}

type LogLoader interface {
	Load(ctx context.Context, battleID string) ([]battle.LogEntry, error)
}

type Deps struct {
	Hub        *hub.Hub
	Arena      BattleStarter
	Archive    LogLoader // optional
	OperatorID string
	Log        *zap.Logger
}

func StartBattle(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StartBattleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		id := req.BattleID
		if id == "" {
			if req.NPCID == "" {
				writeError(w, http.StatusBadRequest, "npc_id or battle_id required")
				return
			}
			op := req.OperatorID
			if op == "" {
				op = d.OperatorID
			}
			var err error
			id, err = d.Arena.StartBattle(r.Context(), req.NPCID, op)
			if err != nil {
				d.Log.Warn("arena start failed", zap.String("npc_id", req.NPCID), zap.Error(err))
				writeError(w, arenaStatus(err), err.Error())
				return
			}
		}

		s, err := d.Hub.Create(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if err := s.Start(r.Context(), id); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, types.StartBattleResponse{BattleID: id})
	}
}

func ListBattles(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		select {
		case d.Hub.Inbox() <- hub.ListSessions{Reply: reply}:
		case <-r.Context().Done():
			return
		}
		select {
		case ids := <-reply:
			writeJSON(w, http.StatusOK, struct {
				Battles []string `json:"battles"`
			}{Battles: ids})
		case <-r.Context().Done():
		}
	}
}

func GetBattle(d Deps) http.HandlerFunc {
	return withSession(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, err := s.View(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
}

// GetLog serves the live turn log, or the archived one once the session is
// gone. ?format=text renders it for humans.
func GetLog(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var entries []battle.LogEntry

		s, err := d.Hub.Get(r.Context(), id)
		switch {
		case err != nil:
			writeError(w, statusFor(err), err.Error())
			return
		case s != nil:
			v, err := s.View(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
			entries = v.State.TurnLog
		case d.Archive != nil:
			entries, err = d.Archive.Load(r.Context(), id)
			if err != nil {
				d.Log.Error("load archived log", zap.String("battle_id", id), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "archive unavailable")
				return
			}
			if len(entries) == 0 {
				writeError(w, http.StatusNotFound, "battle not found")
				return
			}
		default:
			writeError(w, http.StatusNotFound, "battle not found")
			return
		}

		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(battle.Render(entries)))
			return
		}
		if entries == nil {
			entries = []battle.LogEntry{}
		}
		writeJSON(w, http.StatusOK, struct {
			Entries []battle.LogEntry `json:"entries"`
		}{Entries: entries})
	}
}

func SubmitAction(d Deps) http.HandlerFunc {
	return withSession(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var msg types.ClientMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := s.Submit(r.Context(), msg.Command()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func RetryConnection(d Deps) http.HandlerFunc {
	return withSession(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := s.Retry(r.Context()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func ClearError(d Deps) http.HandlerFunc {
	return withSession(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := s.ClearError(r.Context()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// LeaveBattle closes the socket normally and drops the session.
func LeaveBattle(d Deps) http.HandlerFunc {
	return withSession(d, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := s.Leave(r.Context()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		select {
		case d.Hub.Inbox() <- hub.RemoveSession{BattleID: chi.URLParam(r, "id")}:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func withSession(d Deps, next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Hub.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if s == nil {
			writeError(w, http.StatusNotFound, "battle not found")
			return
		}
		next(w, r, s)
	}
}

// statusFor maps session and dispatch errors onto HTTP. Anything the battle
// refused in its current state is a conflict.
func statusFor(err error) int {
	switch {
	case errors.Is(err, battle.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, battle.ErrNotActive),
		errors.Is(err, battle.ErrWrongPhase),
		errors.Is(err, battle.ErrSelectionPending),
		errors.Is(err, battle.ErrUnknownMove),
		errors.Is(err, battle.ErrUnaffordable),
		errors.Is(err, battle.ErrInvalidCore),
		errors.Is(err, battle.ErrBadAllocation),
		errors.Is(err, conn.ErrNotConnected),
		errors.Is(err, conn.ErrSendQueueFull),
		errors.Is(err, conn.ErrNoSession),
		errors.Is(err, session.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func arenaStatus(err error) int {
	var apiErr *arena.APIError
	switch {
	case errors.Is(err, arena.ErrBadOperator):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ServerMessage{Type: "error", Error: msg})
}
