package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

const (
	chatRecentKeyPrefix = "chat:dm:"
	chatRecentKeySuffix = ":recent"
	chatRecentMaxLen    = 50
	chatRecentTTL       = 1 * time.Hour
)

// chatRecentKey derives the cache key for a conversation. The pair is
// ordered so both participants hit the same key.
func chatRecentKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return chatRecentKeyPrefix + userA + ":" + userB + chatRecentKeySuffix
}

// PushMessageToRecentCache adds a message to the Redis recent cache (newest
// at head). Call after saving to Mongo. LPUSH + LTRIM keeps last 50.
func PushMessageToRecentCache(msg *models.Message) {
	if database.RedisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := chatRecentKey(msg.SenderID, msg.ReceiverID)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	pipe := database.RedisClient.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warnw("recent cache push failed", "key", key, "error", err)
	}
}

// InvalidateRecentCache drops the cached window for a conversation. Used
// when a seen update lands so the cache never serves stale seen flags.
func InvalidateRecentCache(ctx context.Context, userA, userB string) {
	if database.RedisClient == nil {
		return
	}
	database.RedisClient.Del(ctx, chatRecentKey(userA, userB))
}

// recentMessagesFromCache returns the most recent messages for a
// conversation (oldest-first). Only valid for the initial page.
func recentMessagesFromCache(ctx context.Context, userA, userB string) ([]models.Message, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	raw, err := database.RedisClient.LRange(ctx, chatRecentKey(userA, userB), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var msgs []models.Message
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.Message
		if json.Unmarshal([]byte(raw[i]), &m) != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// LoadConversationWithCache returns history for a conversation. For the
// initial page (before == nil) it tries Redis first; on a miss it fetches
// from Mongo and warms the cache.
func LoadConversationWithCache(ctx context.Context, userA, userB string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if before == nil && limit > 0 && limit <= chatRecentMaxLen {
		if cached, ok := recentMessagesFromCache(ctx, userA, userB); ok {
			out := cached
			if int64(len(cached)) > limit {
				out = cached[int64(len(cached))-limit:]
			}
			hasMore := int64(len(cached)) >= limit
			return out, hasMore, nil
		}
	}

	msgs, hasMore, err := LoadConversation(ctx, userA, userB, before, limit)
	if err != nil {
		return nil, false, err
	}
	if before == nil && len(msgs) > 0 {
		warmRecentCache(ctx, userA, userB, msgs)
	}
	return msgs, hasMore, nil
}

// warmRecentCache stores an oldest-first page in Redis with the newest
// message at the head of the list.
func warmRecentCache(ctx context.Context, userA, userB string, msgs []models.Message) {
	if database.RedisClient == nil || len(msgs) == 0 {
		return
	}

	key := chatRecentKey(userA, userB)
	pipe := database.RedisClient.Pipeline()
	pipe.Del(ctx, key)
	for i := len(msgs) - 1; i >= 0; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warnw("recent cache warm failed", "key", key, "error", err)
	}
}
