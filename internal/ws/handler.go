package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/hub"
	"github.com/DoyleJ11/arena-battle-client/internal/types"
)

// Handler streams a battle's views to a local UI and accepts its commands on
// the same socket.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "battle not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("battle_id", id), zap.String("client_id", clientID))

		views, err := s.Subscribe(r.Context(), clientID, 8)
		if err != nil {
			return
		}
		defer func() { _ = s.Unsubscribe(context.Background(), clientID) }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for v := range views {
				msg := types.ServerMessage{Type: "view", Version: v.Version, State: &v.State}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err := c.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			// Dropped as a slow subscriber, or the session went away.
			c.Close(websocket.StatusGoingAway, "view stream ended")
		}()

		// Reader loop
		for {
			_, data, err := c.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("view socket read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), c, "bad json")
				continue
			}
			if err := s.Submit(r.Context(), cm.Command()); err != nil {
				writeError(r.Context(), c, err.Error())
			}
		}
	}
}

func writeError(ctx context.Context, c *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Error: msg})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, payload)
}
