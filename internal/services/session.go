package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
)

const (
	// SessionDuration is 7 days; logging in again resets the timer.
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions.
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix maps a user to their current session token.
	UserSessionKeyPrefix = "user_session:"
)

// CreateSession creates a session for a user and stores it in Redis. Any
// existing session for the user is invalidated first so each account has at
// most one live token.
func CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	_ = InvalidateUserSessions(ctx, userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	sessionKey := SessionKeyPrefix + sessionToken
	userSessionKey := UserSessionKeyPrefix + userID.String()

	if err := database.RedisClient.Set(ctx, sessionKey, userID.String(), SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := database.RedisClient.Set(ctx, userSessionKey, sessionToken, SessionDuration).Err(); err != nil {
		return "", err
	}

	return sessionToken, nil
}

// ValidateSession checks a session token and returns the owning user id.
func ValidateSession(ctx context.Context, sessionToken string) (uuid.UUID, bool, error) {
	if sessionToken == "" {
		return uuid.Nil, false, nil
	}

	userIDStr, err := database.RedisClient.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if err != nil {
		return uuid.Nil, false, nil
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, true, nil
}

// InvalidateSession removes a session from Redis.
func InvalidateSession(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + sessionToken
	if userIDStr, err := database.RedisClient.Get(ctx, sessionKey).Result(); err == nil && userIDStr != "" {
		database.RedisClient.Del(ctx, UserSessionKeyPrefix+userIDStr)
	}
	return database.RedisClient.Del(ctx, sessionKey).Err()
}

// InvalidateUserSessions drops the user's current session, if any.
func InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	userSessionKey := UserSessionKeyPrefix + userID.String()
	if sessionToken, err := database.RedisClient.Get(ctx, userSessionKey).Result(); err == nil && sessionToken != "" {
		database.RedisClient.Del(ctx, SessionKeyPrefix+sessionToken)
	}
	return database.RedisClient.Del(ctx, userSessionKey).Err()
}
