package lobby

import (
	"sync"
	"time"

	"github.com/juce/fiveserver/internal/model"
)

// ChatHistory is a lobby's bounded chat log (spec.md §3, §8 property 3):
// at most model.ChatHistoryMax messages, none older than
// model.ChatHistoryMaxAge after a purge.
type ChatHistory struct {
	mu       sync.Mutex
	messages []model.ChatMessage
}

// Append adds a message, trimming the oldest entries beyond
// model.ChatHistoryMax immediately so the in-memory slice never grows
// unbounded between purges.
func (h *ChatHistory) Append(msg model.ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if over := len(h.messages) - model.ChatHistoryMax; over > 0 {
		h.messages = h.messages[over:]
	}
}

// Purge drops messages older than model.ChatHistoryMaxAge as of now, and
// re-enforces the count bound (spec.md §4.9 daily rollover, §8 property 3).
func (h *ChatHistory) Purge(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.purgeLocked(now)
}

func (h *ChatHistory) purgeLocked(now time.Time) {
	cutoff := now.Add(-model.ChatHistoryMaxAge)
	kept := h.messages[:0]
	for _, m := range h.messages {
		if m.Timestamp.After(cutoff) {
			kept = append(kept, m)
		}
	}
	h.messages = kept
	if over := len(h.messages) - model.ChatHistoryMax; over > 0 {
		h.messages = h.messages[over:]
	}
}

// Snapshot returns a copy of the currently retained messages, oldest first.
func (h *ChatHistory) Snapshot() []model.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the current retained message count.
func (h *ChatHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}
