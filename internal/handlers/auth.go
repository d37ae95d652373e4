package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
	"github.com/AnshRaj112/salvioris-chat/pkg/utils"
)

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup, signin and /me.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Signup registers a username + password account and opens a session.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateUsername(req.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	username := utils.NormalizeUsername(req.Username)

	var existing string
	err := database.PostgresDB.QueryRowContext(r.Context(),
		"SELECT username FROM users WHERE LOWER(username) = $1", username).Scan(&existing)
	if err == nil {
		http.Error(w, "Username is already taken", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	userID := uuid.New()
	now := time.Now().UTC()

	_, err = database.PostgresDB.ExecContext(r.Context(), `
		INSERT INTO users (id, username, password_hash, bio, created_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, userID, username, hashedPassword, req.Bio, now)
	if err != nil {
		logger.L().Errorw("failed to create user", "error", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := services.CreateSession(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   username,
			"bio":        req.Bio,
			"created_at": now,
		},
		Token: token,
	})
}

// Signin verifies credentials and opens a session, invalidating any prior
// session for the account.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var (
		userID       uuid.UUID
		username     string
		passwordHash string
		bio          sql.NullString
		createdAt    time.Time
	)
	err := database.PostgresDB.QueryRowContext(r.Context(), `
		SELECT id, username, password_hash, bio, created_at
		FROM users WHERE LOWER(username) = $1 AND is_active = TRUE
	`, utils.NormalizeUsername(req.Username)).Scan(&userID, &username, &passwordHash, &bio, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := services.CreateSession(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   username,
			"bio":        bio.String,
			"created_at": createdAt,
		},
		Token: token,
	})
}

// Signout invalidates the current session token.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token != "" {
		_ = services.InvalidateSession(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out"})
}

// Me returns the authenticated user's profile.
func Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SessionUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		username  string
		bio       sql.NullString
		avatarURL sql.NullString
		createdAt time.Time
	)
	err := database.PostgresDB.QueryRowContext(r.Context(), `
		SELECT username, bio, avatar_url, created_at
		FROM users WHERE id = $1 AND is_active = TRUE
	`, userID).Scan(&username, &bio, &avatarURL, &createdAt)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "OK",
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   username,
			"bio":        bio.String,
			"avatar_url": avatarURL.String,
			"created_at": createdAt,
		},
	})
}
