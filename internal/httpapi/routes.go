package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Log))

	r.Get("/healthz", Healthz)

	r.Route("/battles", func(r chi.Router) {
		r.Post("/", StartBattle(d))
		r.Get("/", ListBattles(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetBattle(d))
			r.Delete("/", LeaveBattle(d))
			r.Get("/log", GetLog(d))
			r.Post("/actions", SubmitAction(d))
			r.Post("/retry", RetryConnection(d))
			r.Delete("/error", ClearError(d))
			r.Get("/ws", ws.Handler(d.Hub, d.Log))
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
