package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for the HTTP endpoints is handled at the router layer.
		return true
	},
}

// ChatWebSocket is the direct-message gateway. One connection per signed-in
// user; the session token rides the Authorization header or the `token`
// query parameter.
//
// Inbound frames: "message" (persist, push to receiver, ack sender),
// "seen" (flip the flag, notify the sender), "ping" (refresh presence).
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}
	userID, ok, err := services.ValidateSession(r.Context(), token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services.SetUserPresence(ctx, userID)

	eventsCh, unsubscribe := services.Subscribe(userID.String())
	defer unsubscribe()

	// Single writer goroutine; gorilla connections allow one concurrent
	// writer, so acks and errors funnel through outbound too.
	outbound := make(chan models.ChatEvent, 32)
	go func() {
		for {
			select {
			case evt, ok := <-eventsCh:
				if !ok {
					return
				}
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			case evt := <-outbound:
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Presence falls back to TTL expiry on disconnect.
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var frame models.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "message":
			handleInboundMessage(ctx, outbound, userID, frame)
		case "seen":
			handleSeenFrame(ctx, userID, frame)
		case "ping":
			services.SetUserPresence(ctx, userID)
		default:
			// Ignore unknown frame types.
		}
	}
}

// handleInboundMessage validates, persists to Mongo, publishes to the
// receiver via Redis and acks the sender with the saved copy so both sides
// agree on the message id.
func handleInboundMessage(ctx context.Context, outbound chan<- models.ChatEvent, userID uuid.UUID, frame models.ClientFrame) {
	receiverID := strings.TrimSpace(frame.ReceiverID)
	msg := &models.Message{
		SenderID:   userID.String(),
		ReceiverID: receiverID,
		Text:       strings.TrimSpace(frame.Text),
		Image:      frame.Image,
		File:       frame.File,
	}
	if receiverID == "" || !msg.HasBody() {
		sendError(outbound, "message needs a receiver and a body")
		return
	}
	if receiverID == userID.String() {
		sendError(outbound, "cannot message yourself")
		return
	}
	if _, err := uuid.Parse(receiverID); err != nil {
		sendError(outbound, "invalid receiver id")
		return
	}
	if msg.File != nil && !msg.File.Valid() {
		sendError(outbound, "malformed file descriptor")
		return
	}

	saved, err := services.SaveMessage(ctx, msg)
	if err != nil {
		logger.L().Errorw("failed to persist message", "error", err)
		sendError(outbound, "failed to persist message")
		return
	}

	services.PushMessageToRecentCache(saved)

	if err := services.PublishChatEvent(ctx, receiverID, models.ChatEvent{
		Type:    models.EventTypeMessage,
		Message: saved,
	}); err != nil {
		logger.L().Warnw("failed to publish message event", "error", err)
	}

	select {
	case outbound <- models.ChatEvent{
		Type:      models.EventTypeMessageAck,
		Message:   saved,
		Timestamp: time.Now().UTC(),
	}:
	case <-ctx.Done():
	}
}

// handleSeenFrame flips the seen flag and notifies the message's sender.
func handleSeenFrame(ctx context.Context, userID uuid.UUID, frame models.ClientFrame) {
	if frame.MessageID == "" {
		return
	}

	senderID, err := services.MarkMessageSeen(ctx, frame.MessageID, userID.String())
	if err != nil {
		if err != services.ErrMessageNotFound {
			logger.L().Warnw("failed to mark message seen", "message_id", frame.MessageID, "error", err)
		}
		return
	}

	services.InvalidateRecentCache(ctx, userID.String(), senderID)

	if err := services.PublishChatEvent(ctx, senderID, models.ChatEvent{
		Type:      models.EventTypeSeen,
		MessageID: frame.MessageID,
		UserID:    userID.String(),
	}); err != nil {
		logger.L().Warnw("failed to publish seen event", "error", err)
	}
}

func sendError(outbound chan<- models.ChatEvent, msg string) {
	select {
	case outbound <- models.ChatEvent{
		Type:      models.EventTypeError,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}
