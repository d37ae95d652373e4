package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

const userChannelPrefix = "chat:user:"

// subscriber is one local WebSocket connection's event feed.
type subscriber struct {
	ch chan models.ChatEvent
}

// chatHub fans events out to local connections, keyed by user id. Cross-node
// delivery goes through Redis pub/sub; the subscriber loop feeds this hub.
type chatHub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

var (
	hub          = &chatHub{subs: make(map[string]map[*subscriber]struct{})}
	redisStarted sync.Once
)

// Subscribe registers a local event feed for a user. The returned channel is
// buffered; slow consumers drop events rather than block the fan-out.
// unsubscribe must be called on disconnect.
func Subscribe(userID string) (<-chan models.ChatEvent, func()) {
	sub := &subscriber{ch: make(chan models.ChatEvent, 32)}

	hub.mu.Lock()
	set, ok := hub.subs[userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		hub.subs[userID] = set
	}
	set[sub] = struct{}{}
	hub.mu.Unlock()

	unsubscribe := func() {
		hub.mu.Lock()
		if set, ok := hub.subs[userID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(hub.subs, userID)
			}
		}
		hub.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, unsubscribe
}

func deliverLocal(userID string, evt models.ChatEvent) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for sub := range hub.subs[userID] {
		select {
		case sub.ch <- evt:
		default:
			logger.L().Warnw("dropping chat event for slow consumer", "user_id", userID, "type", evt.Type)
		}
	}
}

// PublishChatEvent publishes an event addressed to a single user. Delivery
// goes through Redis so any node holding the user's connection picks it up.
func PublishChatEvent(ctx context.Context, userID string, evt models.ChatEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, userChannelPrefix+userID, data).Err()
}

// StartRedisChatSubscriber ensures a single shared Redis listener per
// instance.
func StartRedisChatSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runRedisSubscriber(ctx)
	})
}

func runRedisSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		logger.L().Warn("redis client not initialized; chat subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, userChannelPrefix+"*")
			defer pubsub.Close()

			logger.L().Infow("chat redis subscriber started", "pattern", userChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					logger.L().Warnw("redis subscriber error", "error", err, "backoff", backoff)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				userID := strings.TrimPrefix(msg.Channel, userChannelPrefix)
				var evt models.ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					logger.L().Warnw("failed to unmarshal chat event", "error", err)
					continue
				}
				deliverLocal(userID, evt)
			}
		}()
	}
}
