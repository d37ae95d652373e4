package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// API is the HTTP side of the chat backend: history and the user list. The
// WebSocket side lives in Push.
type API struct {
	baseURL string
	token   func() string
	client  *http.Client
}

func NewAPI(baseURL string, token func() string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *API) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token())

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type historyResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// History fetches paginated conversation history with a peer, oldest-first.
func (a *API) History(ctx context.Context, peerID string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	q := url.Values{"peer": {peerID}}
	if before != nil {
		q.Set("before", before.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		q.Set("limit", strconv.FormatInt(limit, 10))
	}

	var out historyResponse
	if err := a.get(ctx, "/api/chat/history", q, &out); err != nil {
		return nil, false, err
	}
	return out.Messages, out.HasMore, nil
}

type meResponse struct {
	Success bool `json:"success"`
	User    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Me resolves the session's own user id and username.
func (a *API) Me(ctx context.Context) (id, username string, err error) {
	var out meResponse
	if err := a.get(ctx, "/api/auth/me", nil, &out); err != nil {
		return "", "", err
	}
	return out.User.ID, out.User.Username, nil
}

type contactsResponse struct {
	Success bool             `json:"success"`
	Users   []models.Contact `json:"users"`
}

// Contacts fetches the conversation sidebar: everyone except the caller,
// with presence.
func (a *API) Contacts(ctx context.Context) ([]models.Contact, error) {
	var out contactsResponse
	if err := a.get(ctx, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}
