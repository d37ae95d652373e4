// Package client provides the transports the panel engine consumes: the
// WebSocket push channel and the multipart file uploader.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

const (
	// pingInterval keeps the server-side presence TTL fresh. The gateway
	// expires reads after 90s, so this leaves plenty of slack.
	pingInterval = 30 * time.Second
	ackTimeout   = 10 * time.Second
)

// ErrPushClosed is returned for operations on a closed push channel.
var ErrPushClosed = errors.New("push channel closed")

// Push is the client side of the chat gateway. It delivers inbound
// ChatEvents through Events() and implements panel.PushChannel for sends and
// seen acknowledgements. Sends are serialized: the gateway acknowledges each
// message with a message_ack carrying the saved message, and SendMessage
// blocks until that ack arrives.
type Push struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	sendMu  sync.Mutex

	events  chan models.ChatEvent
	acks    chan *models.Message
	closed  chan struct{}
	closeMu sync.Once
}

// Dial connects to the gateway websocket endpoint, authenticating with the
// bearer token from the caller's session.
func Dial(ctx context.Context, wsURL, token string) (*Push, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	p := &Push{
		conn:   conn,
		events: make(chan models.ChatEvent, 64),
		acks:   make(chan *models.Message, 1),
		closed: make(chan struct{}),
	}
	go p.readPump()
	go p.pingLoop()
	return p, nil
}

// Events yields every event the gateway pushes, including the sender-side
// acks. The channel closes when the connection drops.
func (p *Push) Events() <-chan models.ChatEvent {
	return p.events
}

func (p *Push) readPump() {
	defer func() {
		p.shutdown()
		close(p.events)
	}()
	for {
		var evt models.ChatEvent
		if err := p.conn.ReadJSON(&evt); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.L().Debugw("push channel read ended", "error", err)
			}
			return
		}
		if evt.Type == models.EventTypeMessageAck && evt.Message != nil {
			select {
			case p.acks <- evt.Message:
			default:
			}
		}
		select {
		case p.events <- evt:
		case <-p.closed:
			return
		}
	}
}

func (p *Push) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.writeFrame(models.ClientFrame{Type: "ping"}); err != nil {
				return
			}
		case <-p.closed:
			return
		}
	}
}

func (p *Push) writeFrame(frame models.ClientFrame) error {
	select {
	case <-p.closed:
		return ErrPushClosed
	default:
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(frame)
}

// SendMessage writes a message frame and waits for the gateway's ack, which
// carries the saved message with its authoritative id.
func (p *Push) SendMessage(ctx context.Context, receiverID, text, image string, file *models.FileDescriptor) (*models.Message, error) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	// Drop any ack left over from an earlier timed-out send.
	select {
	case <-p.acks:
	default:
	}

	err := p.writeFrame(models.ClientFrame{
		Type:       "message",
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		File:       file,
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()
	select {
	case msg := <-p.acks:
		return msg, nil
	case <-timer.C:
		return nil, errors.New("timed out waiting for message ack")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, ErrPushClosed
	}
}

// MarkSeen requests a seen-acknowledgement for the given message. The frame
// write is fire-and-forget, but a context that is already done aborts it.
func (p *Push) MarkSeen(ctx context.Context, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.writeFrame(models.ClientFrame{Type: "seen", MessageID: messageID})
}

func (p *Push) shutdown() {
	p.closeMu.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}

// Close tears the connection down.
func (p *Push) Close() error {
	p.shutdown()
	return nil
}
