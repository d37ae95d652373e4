package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

// ConversationHistoryResponse is returned when loading historical messages.
type ConversationHistoryResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// ConversationHistory loads paginated history with a peer, oldest-first.
// Query params:
//
//	peer   (required user id)
//	before (optional RFC3339 timestamp for pagination)
//	limit  (optional, default 50, max 100)
func ConversationHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SessionUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "peer is required",
		})
		return
	}

	limit := int64(50)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var before *time.Time
	if bStr := r.URL.Query().Get("before"); bStr != "" {
		if t, err := time.Parse(time.RFC3339, bStr); err == nil {
			before = &t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msgs, hasMore, err := services.LoadConversationWithCache(ctx, userID.String(), peerID, before, limit)
	if err != nil {
		logger.L().Errorw("failed to load conversation", "peer", peerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "failed to load messages",
		})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	writeJSON(w, http.StatusOK, ConversationHistoryResponse{
		Success:  true,
		Messages: msgs,
		HasMore:  hasMore,
	})
}
