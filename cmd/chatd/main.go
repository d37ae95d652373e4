package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/salvioris-chat/internal/config"
	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/handlers"
	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
	"github.com/AnshRaj112/salvioris-chat/internal/routes"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Running without a .env file is normal in deployment.
	}
	cfg := config.Load()

	logger.Init(!cfg.IsProduction())
	defer logger.Sync()
	log := logger.L()

	log.Info("connecting to PostgreSQL")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatalw("failed to connect to PostgreSQL", "error", err)
	}
	defer database.DisconnectPostgres()

	log.Info("connecting to Redis")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatalw("failed to connect to Redis", "error", err)
	}
	defer database.DisconnectRedis()

	log.Info("connecting to MongoDB")
	if err := database.ConnectMongo(cfg.MongoURI); err != nil {
		log.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer database.DisconnectMongo()

	if err := services.EnsureChatIndexes(context.Background()); err != nil {
		log.Warnw("failed to ensure MongoDB chat indexes", "error", err)
	}

	if err := handlers.InitFileStorage(cfg); err != nil {
		log.Fatalw("failed to initialize attachment storage", "error", err)
	}

	// Cross-node message fan-out.
	services.StartRedisChatSubscriber(context.Background())

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, cfg)

	log.Infow("salvioris chat backend running", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}
