package panel

import (
	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// Stream is the ordered, append-only message view for one conversation.
// Messages are kept in arrival order — never re-sorted by timestamp — with an
// id-keyed index so duplicate deliveries from the push channel are absorbed.
//
// A Stream is owned by the Panel that created it and is not safe for
// concurrent use on its own; the Panel serializes all access.
type Stream struct {
	byID   map[string]*models.Message
	order  []*models.Message
	scroll chan struct{}
}

// NewStream returns an empty stream.
func NewStream() *Stream {
	return &Stream{
		byID:   make(map[string]*models.Message),
		scroll: make(chan struct{}, 1),
	}
}

// Append adds a message in arrival order. Appending an id that already
// exists is a no-op (the push channel is at-least-once). Returns whether the
// message was actually added.
func (s *Stream) Append(msg models.Message) bool {
	if msg.ID == "" {
		return false
	}
	if _, ok := s.byID[msg.ID]; ok {
		return false
	}
	m := msg
	s.byID[m.ID] = &m
	s.order = append(s.order, &m)
	s.signalScroll()
	return true
}

// MarkSeen flips the seen flag for the matching message. No-op if the id is
// unknown or the message is already seen; the flag never reverts.
func (s *Stream) MarkSeen(id string) bool {
	m, ok := s.byID[id]
	if !ok || m.Seen {
		return false
	}
	m.Seen = true
	s.signalScroll()
	return true
}

// Messages returns a copy of the stream in arrival order.
func (s *Stream) Messages() []models.Message {
	out := make([]models.Message, len(s.order))
	for i, m := range s.order {
		out[i] = *m
	}
	return out
}

// Len returns the number of messages in the stream.
func (s *Stream) Len() int {
	return len(s.order)
}

// Scroll yields a signal after every mutation so the view layer can jump to
// the latest message. The channel is buffered and coalescing; consumers that
// fall behind see at most one pending signal.
func (s *Stream) Scroll() <-chan struct{} {
	return s.scroll
}

func (s *Stream) signalScroll() {
	select {
	case s.scroll <- struct{}{}:
	default:
	}
}
