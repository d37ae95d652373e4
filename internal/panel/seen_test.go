package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcker struct {
	mu    sync.Mutex
	acked []string
	fail  map[string]error
}

func (r *recordingAcker) MarkSeen(_ context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[messageID]; ok {
		return err
	}
	r.acked = append(r.acked, messageID)
	return nil
}

func TestSweepAcksInboundUnseenExactlyOnce(t *testing.T) {
	s := NewStream()
	s.Append(msg("in1", "peer", "me", "hello"))
	s.Append(msg("out1", "me", "peer", "hi back"))
	s.Append(msg("in2", "peer", "me", "you there?"))

	acker := &recordingAcker{}
	tracker := NewSeenTracker("me", acker)

	require.Equal(t, 2, tracker.Sweep(context.Background(), s))
	assert.ElementsMatch(t, []string{"in1", "in2"}, acker.acked)

	// Re-entrant: everything is marked now, so a second sweep is silent.
	require.Equal(t, 0, tracker.Sweep(context.Background(), s))
	assert.Len(t, acker.acked, 2)

	// Own outgoing message never gets acked from this side.
	for _, m := range s.Messages() {
		if m.ID == "out1" {
			assert.False(t, m.Seen)
		} else {
			assert.True(t, m.Seen)
		}
	}
}

func TestSweepRetriesFailedAcks(t *testing.T) {
	s := NewStream()
	s.Append(msg("in1", "peer", "me", "a"))
	s.Append(msg("in2", "peer", "me", "b"))

	acker := &recordingAcker{fail: map[string]error{"in2": errors.New("socket closed")}}
	tracker := NewSeenTracker("me", acker)

	require.Equal(t, 1, tracker.Sweep(context.Background(), s))

	// The failed message stays unseen and is retried next sweep.
	acker.mu.Lock()
	delete(acker.fail, "in2")
	acker.mu.Unlock()
	require.Equal(t, 1, tracker.Sweep(context.Background(), s))
	assert.Equal(t, []string{"in1", "in2"}, acker.acked)
}
