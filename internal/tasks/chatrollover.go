package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/model"
)

// LobbySource supplies the set of lobbies to roll over, mirroring
// *fiveserver.Server.Lobbies without importing fiveserver.
type LobbySource interface {
	Lobbies() map[int]*lobby.Lobby
}

// ChatRollover runs until ctx is cancelled. At every local-time midnight it
// posts a "Date: ..." system message to each lobby, then purges chat
// history older than model.ChatHistoryMaxAge (spec.md §4.9 daily chat
// rollover).
func ChatRollover(ctx context.Context, server LobbySource, logger *zap.Logger) {
	for {
		wait := time.Until(nextMidnight(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			rolloverOnce(server, logger)
		}
	}
}

func nextMidnight(from time.Time) time.Time {
	y, m, d := from.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	return midnight.AddDate(0, 0, 1)
}

func rolloverOnce(server LobbySource, logger *zap.Logger) {
	now := time.Now()
	dateMsg := model.ChatMessage{
		Text:      fmt.Sprintf("Date: %s", now.Format("2006-01-02")),
		Timestamp: now,
	}
	for idx, l := range server.Lobbies() {
		l.History.Append(dateMsg)
		l.History.Purge(now)
		logger.Info("chat rollover", zap.Int("lobby", idx), zap.Int("remaining", l.History.Len()))
	}
}
