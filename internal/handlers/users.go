package handlers

import (
	"net/http"

	"github.com/AnshRaj112/salvioris-chat/internal/middleware"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/internal/services"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

// ListUsersResponse is the conversation sidebar payload.
type ListUsersResponse struct {
	Success bool             `json:"success"`
	Users   []models.Contact `json:"users"`
}

// ListUsers returns every active user except the caller, with presence.
func ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SessionUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	contacts, err := services.ListContacts(r.Context(), userID)
	if err != nil {
		logger.L().Errorw("failed to list contacts", "error", err)
		http.Error(w, "Failed to load users", http.StatusInternalServerError)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}

	writeJSON(w, http.StatusOK, ListUsersResponse{Success: true, Users: contacts})
}
