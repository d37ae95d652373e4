// Package panel implements the conversation session engine behind the chat
// view: the per-conversation message stream, seen tracking, attachment
// staging and the single-slot upload lifecycle. One Panel exists per open
// chat view; it is the single owner of its state and serializes the
// callbacks that reach it from the push channel pump, upload progress and
// user input.
package panel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/AnshRaj112/salvioris-chat/internal/models"
	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

// PushChannel is the transport the panel sends through. SendMessage blocks
// until the server acknowledges the message and returns the saved message
// with its authoritative id.
type PushChannel interface {
	SendMessage(ctx context.Context, receiverID, text, image string, file *models.FileDescriptor) (*models.Message, error)
	MarkSeen(ctx context.Context, messageID string) error
}

var (
	// ErrNoConversation is returned for send/upload actions with no user selected.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrNothingToSend is returned when neither text nor a staged image exists.
	ErrNothingToSend = errors.New("nothing to send")
)

// Panel composes the session engine for one chat view. Streams are keyed by
// peer id and survive conversation switches; input, staging and the upload
// slot are view-local.
type Panel struct {
	mu            sync.Mutex
	currentUserID string
	push          PushChannel
	streams       map[string]*Stream
	selected      string
	input         string

	staging *StagingArea
	tracker *UploadTracker
	seen    *SeenTracker
}

// NewPanel builds a panel for the given user. onUpload may be nil; it
// receives upload slot snapshots for progress display.
func NewPanel(currentUserID string, push PushChannel, uploader Uploader, onUpload func(UploadSnapshot)) *Panel {
	return &Panel{
		currentUserID: currentUserID,
		push:          push,
		streams:       make(map[string]*Stream),
		staging:       NewStagingArea(),
		tracker:       NewUploadTracker(uploader, onUpload),
		seen:          NewSeenTracker(currentUserID, push),
	}
}

// SelectUser switches the active conversation. Staged attachment and pending
// input are reset; an in-flight upload is deliberately left running (it
// auto-sends to the receiver captured when the file was picked). A fresh
// seen sweep runs over the newly visible stream.
func (p *Panel) SelectUser(ctx context.Context, peerID string) {
	p.mu.Lock()
	p.selected = peerID
	p.input = ""
	s := p.streamLocked(peerID)
	p.staging.Clear()
	p.seen.Sweep(ctx, s)
	p.mu.Unlock()
}

// Selected returns the peer id of the active conversation ("" if none).
func (p *Panel) Selected() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

func (p *Panel) streamLocked(peerID string) *Stream {
	s, ok := p.streams[peerID]
	if !ok {
		s = NewStream()
		p.streams[peerID] = s
	}
	return s
}

// Messages returns the active conversation in arrival order.
func (p *Panel) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == "" {
		return nil
	}
	return p.streamLocked(p.selected).Messages()
}

// SetInput replaces the pending outbound text buffer.
func (p *Panel) SetInput(text string) {
	p.mu.Lock()
	p.input = text
	p.mu.Unlock()
}

// AppendInput appends to the pending buffer; used by the emoji picker.
func (p *Panel) AppendInput(s string) {
	p.mu.Lock()
	p.input += s
	p.mu.Unlock()
}

// Input returns the pending outbound text buffer.
func (p *Panel) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// StageImage stages an image for the next send. The returned channel yields
// once the attachment is visible.
func (p *Panel) StageImage(name, mimetype string, data []byte) <-chan StagedAttachment {
	return p.staging.Stage(name, mimetype, data)
}

// StagedImage returns the currently staged attachment, if any.
func (p *Panel) StagedImage() (StagedAttachment, bool) {
	return p.staging.Current()
}

// RemoveImage discards the staged attachment.
func (p *Panel) RemoveImage() {
	p.staging.Clear()
}

// Send delivers the pending text and/or staged image to the selected peer.
// Input and staging are cleared only after the transport resolves; on error
// both are left intact so the user can retry.
func (p *Panel) Send(ctx context.Context) error {
	p.mu.Lock()
	receiver := p.selected
	text := strings.TrimSpace(p.input)
	p.mu.Unlock()

	if receiver == "" {
		return ErrNoConversation
	}
	image := ""
	if att, ok := p.staging.Current(); ok {
		image = att.DataURI
	}
	if text == "" && image == "" {
		return ErrNothingToSend
	}

	msg, err := p.push.SendMessage(ctx, receiver, text, image, nil)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if msg != nil {
		p.streamLocked(receiver).Append(*msg)
	}
	p.input = ""
	p.mu.Unlock()
	p.staging.Clear()
	return nil
}

// SubmitFile hands a file to the upload slot. The receiver is captured now:
// switching conversations mid-upload does not redirect the resulting file
// message. Validation errors surface synchronously; transfer errors surface
// through the upload snapshot observer.
func (p *Panel) SubmitFile(ctx context.Context, file LocalFile) error {
	p.mu.Lock()
	receiver := p.selected
	p.mu.Unlock()
	if receiver == "" {
		return ErrNoConversation
	}

	return p.tracker.Submit(ctx, file, func(ctx context.Context, desc *models.FileDescriptor) error {
		msg, err := p.push.SendMessage(ctx, receiver, "", "", desc)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.streamLocked(receiver).Append(*msg)
		p.mu.Unlock()
		return nil
	})
}

// CancelUpload aborts the in-flight upload, if any.
func (p *Panel) CancelUpload() {
	p.tracker.Cancel()
}

// Upload returns the current upload slot snapshot.
func (p *Panel) Upload() UploadSnapshot {
	return p.tracker.Snapshot()
}

// HandleEvent reconciles one push-channel event into the session state.
// Appends are idempotent, so at-least-once delivery and the sender-side ack
// overlapping with SendMessage's own append are both harmless.
func (p *Panel) HandleEvent(ctx context.Context, evt models.ChatEvent) {
	switch evt.Type {
	case models.EventTypeMessage, models.EventTypeMessageAck:
		if evt.Message == nil || evt.Message.ID == "" {
			return
		}
		m := *evt.Message
		peer := m.SenderID
		if m.IsOutgoing(p.currentUserID) {
			peer = m.ReceiverID
		}
		p.mu.Lock()
		s := p.streamLocked(peer)
		s.Append(m)
		if peer == p.selected {
			p.seen.Sweep(ctx, s)
		}
		p.mu.Unlock()

	case models.EventTypeSeen:
		if evt.MessageID == "" {
			return
		}
		p.mu.Lock()
		if evt.UserID != "" {
			if s, ok := p.streams[evt.UserID]; ok {
				s.MarkSeen(evt.MessageID)
				p.mu.Unlock()
				return
			}
		}
		for _, s := range p.streams {
			if s.MarkSeen(evt.MessageID) {
				break
			}
		}
		p.mu.Unlock()

	case models.EventTypeError:
		logger.L().Warnw("push channel error event", "error", evt.Error)
	}
}

// ImportHistory replays persisted messages for a conversation through the
// stream. Appends are idempotent, so overlap with live events is safe. A
// seen sweep follows when the conversation is the visible one.
func (p *Panel) ImportHistory(ctx context.Context, peerID string, msgs []models.Message) {
	p.mu.Lock()
	s := p.streamLocked(peerID)
	for _, m := range msgs {
		s.Append(m)
	}
	if peerID == p.selected {
		p.seen.Sweep(ctx, s)
	}
	p.mu.Unlock()
}
