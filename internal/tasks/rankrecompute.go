package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/store"
)

// RankRecompute runs store.Profiles().RecomputeRanks once immediately and
// then every interval until ctx is cancelled (spec.md §4.9 global rank
// recomputation; default interval is a server config value, typically one
// day).
func RankRecompute(ctx context.Context, st store.Store, interval time.Duration, logger *zap.Logger) {
	runOnce(ctx, st, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, st, logger)
		}
	}
}

func runOnce(ctx context.Context, st store.Store, logger *zap.Logger) {
	start := time.Now()
	if err := st.Profiles().RecomputeRanks(ctx); err != nil {
		logger.Warn("rank recompute failed", zap.Error(err))
		return
	}
	logger.Info("rank recompute complete", zap.Duration("took", time.Since(start)))
}
