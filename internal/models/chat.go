package models

import (
	"time"
)

// FileDescriptor points at an uploaded file attached to a message.
// This exact shape is returned by the upload endpoint and echoed into the
// message's file field, so the client never re-derives any of it.
type FileDescriptor struct {
	URL      string `bson:"url" json:"url"`
	Filename string `bson:"filename" json:"filename"`
	Size     int64  `bson:"size" json:"size"`
	Mimetype string `bson:"mimetype" json:"mimetype"`
}

// Valid reports whether the descriptor carries every required field.
// A 200 response missing any of these is treated as a failed upload.
func (f *FileDescriptor) Valid() bool {
	return f != nil && f.URL != "" && f.Filename != "" && f.Size > 0 && f.Mimetype != ""
}

// Message is a single direct message between two users. Immutable once
// created except for Seen, which flips false→true exactly once.
type Message struct {
	ID         string          `bson:"_id" json:"id"`
	SenderID   string          `bson:"sender_id" json:"sender_id"`
	ReceiverID string          `bson:"receiver_id" json:"receiver_id"`
	Text       string          `bson:"text,omitempty" json:"text,omitempty"`
	Image      string          `bson:"image,omitempty" json:"image,omitempty"` // data URI, staged client-side
	File       *FileDescriptor `bson:"file,omitempty" json:"file,omitempty"`
	CreatedAt  time.Time       `bson:"created_at" json:"created_at"`
	Seen       bool            `bson:"seen" json:"seen"`
}

// HasBody reports whether at least one body variant is populated.
func (m *Message) HasBody() bool {
	return m.Text != "" || m.Image != "" || m.File != nil
}

// IsOutgoing reports message direction relative to the given user.
func (m *Message) IsOutgoing(currentUserID string) bool {
	return m.SenderID == currentUserID
}

// Chat event types broadcast over Redis and WebSocket.
const (
	EventTypeMessage    = "message"     // new message for the receiving side
	EventTypeMessageAck = "message_ack" // saved message echoed back to the sender
	EventTypeSeen       = "seen"        // receiver displayed the message
	EventTypeError      = "error"
)

// ChatEvent is the payload delivered over the push channel.
type ChatEvent struct {
	Type      string    `json:"type"`
	Message   *Message  `json:"message,omitempty"`
	MessageID string    `json:"message_id,omitempty"` // seen events
	UserID    string    `json:"user_id,omitempty"`    // user who triggered the event
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ClientFrame is what the frontend writes over the WebSocket.
type ClientFrame struct {
	Type       string          `json:"type"` // "message", "seen", "ping"
	ReceiverID string          `json:"receiver_id,omitempty"`
	Text       string          `json:"text,omitempty"`
	Image      string          `json:"image,omitempty"`
	File       *FileDescriptor `json:"file,omitempty"`
	MessageID  string          `json:"message_id,omitempty"`
}
