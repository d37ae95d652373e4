package panel

import (
	"context"

	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

// SeenTracker sweeps a stream for inbound messages that have not been
// acknowledged yet and requests a seen-acknowledgement for each, exactly
// once. Idempotence comes from the message's own seen flag: a message is
// marked locally the moment its ack succeeds, so a second sweep over the
// same stream issues zero further requests.
type SeenTracker struct {
	currentUserID string
	ack           SeenAcker
}

// SeenAcker is the slice of the push channel the tracker needs.
type SeenAcker interface {
	MarkSeen(ctx context.Context, messageID string) error
}

// NewSeenTracker returns a tracker acknowledging on behalf of currentUserID.
func NewSeenTracker(currentUserID string, ack SeenAcker) *SeenTracker {
	return &SeenTracker{currentUserID: currentUserID, ack: ack}
}

// Sweep walks the stream and acknowledges every unseen message addressed to
// the current user. Messages the current user sent are never touched — the
// sender cannot mark its own message seen. Returns the number of
// acknowledgements issued. A failed ack leaves the message unseen so the
// next sweep retries it.
func (t *SeenTracker) Sweep(ctx context.Context, s *Stream) int {
	acked := 0
	for _, m := range s.order {
		if m.Seen || m.ReceiverID != t.currentUserID {
			continue
		}
		if err := t.ack.MarkSeen(ctx, m.ID); err != nil {
			logger.L().Warnw("seen ack failed", "message_id", m.ID, "error", err)
			continue
		}
		m.Seen = true
		acked++
	}
	if acked > 0 {
		s.signalScroll()
	}
	return acked
}
