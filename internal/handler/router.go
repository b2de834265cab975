/*
Package handler provides the HTTP handlers and routing setup for the TeamSync server.

This file defines the main Router, applying middleware like logging, CORS and IP-based rate
limiting before delegating requests to the REST handlers and the websocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"teamsync/internal/pkg/auth/jwt"
	"teamsync/internal/pkg/limiter"
	"teamsync/internal/pkg/logx"
	"teamsync/internal/pkg/resp"
)

const (
	ConnectRate  = 1
	ConnectBurst = 10
	ArchiveRate  = 0.05
	ArchiveBurst = 2
)

// Router sets up the main HTTP routing table for the application. The returned stop func ends
// the background work of the rate limiters and is safe to call more than once.
func Router(deps *AppDeps) (http.Handler, func()) {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	archiveLimiter := limiter.NewIPRateLimiter(rate.Limit(ArchiveRate), ArchiveBurst)
	stop := func() {
		connectLimiter.Stop()
		archiveLimiter.Stop()
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": "TeamSync Server",
			"clients": deps.Hub.ConnectedClients(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Issuer))

		api.Get("/workspace", HandleGetWorkspace(deps))

		api.Group(func(authed chi.Router) {
			authed.Use(jwt.RequireIdentity)

			authed.Get("/me", HandleGetMe(deps))
			authed.With(archiveLimiter.Middleware).Post("/workspace/archive", HandleArchiveWorkspace(deps))
		})
	})

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r, stop
}
