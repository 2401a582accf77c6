package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hl-pug-backend/internal/hub"
	"github.com/DoyleJ11/hl-pug-backend/internal/ws"
)

// SetupRoutes builds the router. games may be nil when no database is
// configured.
func SetupRoutes(h *hub.Hub, games GameLister, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/lobbies", CreateLobby(h, log))
	r.Get("/lobbies", ListLobbies(h))
	r.Get("/lobbies/{code}", GetLobby(h))
	r.Get("/games", RecentGames(games, log))
	r.Get("/games/{id}", GetGame(games, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}
