package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// gatewayStub upgrades one connection and speaks just enough of the chat
// protocol to exercise the client.
type gatewayStub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	seen     []string
	tokens   []string
}

func (g *gatewayStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.tokens = append(g.tokens, r.Header.Get("Authorization"))
		g.mu.Unlock()

		conn, err := g.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			var frame models.ClientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Type {
			case "message":
				saved := models.Message{
					ID:         uuid.NewString(),
					SenderID:   "me",
					ReceiverID: frame.ReceiverID,
					Text:       frame.Text,
					Image:      frame.Image,
					File:       frame.File,
					CreatedAt:  time.Now().UTC(),
				}
				_ = conn.WriteJSON(models.ChatEvent{Type: models.EventTypeMessageAck, Message: &saved})
			case "seen":
				g.mu.Lock()
				g.seen = append(g.seen, frame.MessageID)
				g.mu.Unlock()
				_ = conn.WriteJSON(models.ChatEvent{Type: models.EventTypeSeen, MessageID: frame.MessageID, UserID: "me"})
			}
		}
	}
}

func dialStub(t *testing.T, g *gatewayStub) (*Push, func()) {
	t.Helper()
	srv := httptest.NewServer(g.handler(t))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	p, err := Dial(context.Background(), wsURL, "tok-abc")
	require.NoError(t, err)
	return p, func() {
		p.Close()
		srv.Close()
	}
}

func TestSendMessageWaitsForGatewayAck(t *testing.T) {
	g := &gatewayStub{}
	p, stop := dialStub(t, g)
	defer stop()

	msg, err := p.SendMessage(context.Background(), "alice", "hi there", "", nil)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.ID, "gateway assigns the authoritative id")
	assert.Equal(t, "alice", msg.ReceiverID)
	assert.Equal(t, "hi there", msg.Text)

	g.mu.Lock()
	assert.Equal(t, []string{"Bearer tok-abc"}, g.tokens)
	g.mu.Unlock()
}

func TestMarkSeenWritesSeenFrame(t *testing.T) {
	g := &gatewayStub{}
	p, stop := dialStub(t, g)
	defer stop()

	require.NoError(t, p.MarkSeen(context.Background(), "m-42"))

	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.seen) == 1 && g.seen[0] == "m-42"
	}, time.Second, 5*time.Millisecond)

	// The echoed seen event also arrives on the event stream.
	select {
	case evt := <-p.Events():
		assert.Equal(t, models.EventTypeSeen, evt.Type)
		assert.Equal(t, "m-42", evt.MessageID)
	case <-time.After(time.Second):
		t.Fatal("expected a seen event")
	}
}

func TestMarkSeenHonoursCancelledContext(t *testing.T) {
	g := &gatewayStub{}
	p, stop := dialStub(t, g)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.MarkSeen(ctx, "m-42"), context.Canceled)

	// No frame reached the gateway.
	time.Sleep(20 * time.Millisecond)
	g.mu.Lock()
	assert.Empty(t, g.seen)
	g.mu.Unlock()
}

func TestOperationsAfterCloseFail(t *testing.T) {
	g := &gatewayStub{}
	p, stop := dialStub(t, g)
	stop()

	_, err := p.SendMessage(context.Background(), "alice", "late", "", nil)
	require.Error(t, err)
	require.Error(t, p.MarkSeen(context.Background(), "m-1"))
}
