package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/salvioris-chat/internal/config"
	"github.com/AnshRaj112/salvioris-chat/internal/handlers"
	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
)

func SetupRoutes(r *chi.Mux, cfg *config.Config) {
	// Auth
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthRateLimit)
		r.Post("/api/auth/signup", handlers.Signup)
		r.Post("/api/auth/signin", handlers.Signin)
	})
	r.Post("/api/auth/signout", handlers.Signout)
	r.With(middleware.RequireSession).Get("/api/auth/me", handlers.Me)

	// Conversation sidebar
	r.With(middleware.RequireSession).Get("/api/users", handlers.ListUsers)

	// Message history (Mongo, Redis recent-cache in front)
	r.With(middleware.RequireSession, middleware.HistoryRateLimit).
		Get("/api/chat/history", handlers.ConversationHistory)

	// Attachment upload; the descriptor comes back verbatim in file messages
	r.With(middleware.RequireSession, middleware.UploadRateLimit).
		Post("/api/upload", handlers.UploadAttachment)

	// Static serving for disk-stored attachments (dev without Cloudinary)
	if !cfg.HasCloudinary() {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	// WebSocket gateway; auth happens inside the handler (query token)
	r.With(middleware.WSHandshakeRateLimit).Get("/ws/chat", handlers.ChatWebSocket)
}
