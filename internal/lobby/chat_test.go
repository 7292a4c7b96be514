package lobby

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/juce/fiveserver/internal/model"
)

// TestChatHistory_PurgeBounds is spec.md §8 property 3: after any sequence
// of appends and one purge, history length <= 50 and every retained
// message has age < 5 days.
func TestChatHistory_PurgeBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	for iter := 0; iter < 50; iter++ {
		var h ChatHistory
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			ageDays := rng.Intn(10)
			h.Append(model.ChatMessage{
				FromProfileID: int64(i),
				Text:          "hi",
				Timestamp:     now.Add(-time.Duration(ageDays) * 24 * time.Hour),
			})
		}
		h.Purge(now)

		snapshot := h.Snapshot()
		require.LessOrEqual(t, len(snapshot), model.ChatHistoryMax)
		for _, m := range snapshot {
			require.Less(t, now.Sub(m.Timestamp), model.ChatHistoryMaxAge)
		}
	}
}

func TestChatHistory_AppendTrimsEagerly(t *testing.T) {
	var h ChatHistory
	now := time.Now()
	for i := 0; i < 100; i++ {
		h.Append(model.ChatMessage{FromProfileID: int64(i), Timestamp: now})
	}
	require.Equal(t, model.ChatHistoryMax, h.Len())
}
