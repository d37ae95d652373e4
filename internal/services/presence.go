package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
)

const (
	presenceKeyPrefix = "presence:"
	// presenceTTL is refreshed by gateway pings; expiry means offline.
	presenceTTL = 2 * time.Minute
)

// SetUserPresence marks a user online for the presence TTL window.
func SetUserPresence(ctx context.Context, userID uuid.UUID) {
	if database.RedisClient == nil {
		return
	}
	database.RedisClient.Set(ctx, presenceKeyPrefix+userID.String(), "online", presenceTTL)
}

// UserStatus returns "online" or "offline" for the given user.
func UserStatus(ctx context.Context, userID string) string {
	if database.RedisClient == nil {
		return "offline"
	}
	exists, err := database.RedisClient.Exists(ctx, presenceKeyPrefix+userID).Result()
	if err != nil || exists == 0 {
		return "offline"
	}
	return "online"
}
