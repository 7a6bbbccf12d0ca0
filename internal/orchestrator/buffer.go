package orchestrator

import (
	"sync"

	"github.com/SignHolo/companion/internal/store"
)

// Buffer holds the short-term transcript window per conversation. It is a
// plain FIFO; older turns fall off the far end and survive only in the
// Postgres transcript.
type Buffer struct {
	mu    sync.Mutex
	size  int
	turns map[string][]store.Message
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 12
	}
	return &Buffer{size: size, turns: make(map[string][]store.Message)}
}

// Append adds one message and evicts from the front past capacity.
func (b *Buffer) Append(conversationID string, msg store.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	window := append(b.turns[conversationID], msg)
	if len(window) > b.size {
		window = window[len(window)-b.size:]
	}
	b.turns[conversationID] = window
}

// Window returns a copy of the current window.
func (b *Buffer) Window(conversationID string) []store.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	window := b.turns[conversationID]
	out := make([]store.Message, len(window))
	copy(out, window)
	return out
}

// Reset clears the window for a conversation, used on session idle reset.
func (b *Buffer) Reset(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.turns, conversationID)
}
