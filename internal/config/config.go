package config

import (
	"os"
	"strings"
)

// Config carries everything the chat daemon and the terminal client read
// from the environment.
type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string
	Port           string
	Environment    string   // ENV: production, development, etc.
	AllowedOrigins []string // CORS allow-list; must include the production frontend origin

	// Upload storage. Cloudinary when credentials are present, local disk
	// under UploadDir otherwise.
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	UploadDir           string

	// Client-side settings (cmd/chat).
	ServerURL    string // http(s) base URL of the chat backend
	SessionToken string // bearer token for an existing session
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseList(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/salvioris_chat"),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/salvioris_chat?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:                getEnv("PORT", "8080"),
		Environment:         env,
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		ServerURL:           getEnv("CHAT_SERVER_URL", "http://localhost:8080"),
		SessionToken:        getEnv("CHAT_SESSION_TOKEN", ""),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasCloudinary reports whether cloudinary storage is configured.
func (c *Config) HasCloudinary() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
