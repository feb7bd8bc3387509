package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hwzhu/mowan-server/internal/auth"
	"github.com/hwzhu/mowan-server/internal/ws"
)

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Post("/api/register", a.Register)
	r.Post("/api/login", a.Login)
	r.Get("/api/leaderboard", a.Leaderboard)

	// The ws handler verifies the token itself; browsers cannot set
	// headers on websocket requests.
	r.Get("/ws", ws.Handler(a.Hub, []byte(a.Cfg.JWTSecret), a.Log))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware([]byte(a.Cfg.JWTSecret)))
		r.Get("/api/me", a.Me)
		r.Post("/api/logout", a.Logout)
		r.Post("/api/rooms", a.CreateRoom)
		r.Get("/api/rooms/{code}", a.GetRoom)
		r.Post("/api/rooms/{code}/join", a.JoinRoom)
		r.Post("/api/rooms/{code}/leave", a.LeaveRoom)
		r.Post("/api/rooms/{code}/kick", a.KickPlayer)
		r.Post("/api/rooms/{code}/start", a.StartGame)
	})

	return r
}
