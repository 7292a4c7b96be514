package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/juce/fiveserver/internal/model"
)

// TestRecomputeRanks_Scenario6 is spec.md §8 scenario S6: four profiles
// with points [900, 900, 500, 100] and play-times [10, 5, 99, 1] yield
// ranks [1, 1, 3, 4].
func TestRecomputeRanks_Scenario6(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	profiles := s.Profiles()

	seed := []struct {
		points   int
		playTime time.Duration
	}{
		{900, 10 * time.Second},
		{900, 5 * time.Second},
		{500, 99 * time.Second},
		{100, 1 * time.Second},
	}

	var ids []int64
	for i, sd := range seed {
		p := &model.Profile{
			UserID:   int64(i + 1),
			Name:     string(rune('A' + i)),
			Points:   sd.points,
			PlayTime: sd.playTime,
		}
		require.NoError(t, profiles.Store(ctx, p))
		ids = append(ids, p.ID)
	}

	require.NoError(t, profiles.RecomputeRanks(ctx))

	wantRanks := map[int64]int{ids[0]: 1, ids[1]: 1, ids[2]: 3, ids[3]: 4}
	for id, want := range wantRanks {
		got, err := profiles.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Rank, "profile %d", id)
	}
}

func TestRecordMatchResult_SkipsNoStatsLobby(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	p := &model.Profile{Name: "solo"}
	require.NoError(t, s.Profiles().Store(ctx, p))

	err := s.Matches().RecordMatchResult(ctx, MatchResult{
		LobbyNoStats: true,
		Participants: []Participant{{ProfileID: p.ID, Home: true, Outcome: model.OutcomeWin}},
	})
	require.NoError(t, err)

	streak, err := s.Streaks().Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 0, streak.Wins)
}

func TestRecordMatchResult_UpdatesStreakAndPlayTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	home := &model.Profile{Name: "home"}
	away := &model.Profile{Name: "away"}
	require.NoError(t, s.Profiles().Store(ctx, home))
	require.NoError(t, s.Profiles().Store(ctx, away))

	err := s.Matches().RecordMatchResult(ctx, MatchResult{
		ScoreHome: 2,
		ScoreAway: 1,
		Duration:  10 * time.Minute,
		Participants: []Participant{
			{ProfileID: home.ID, Home: true, Outcome: model.OutcomeWin},
			{ProfileID: away.ID, Home: false, Outcome: model.OutcomeLoss},
		},
	})
	require.NoError(t, err)

	homeStreak, err := s.Streaks().Get(ctx, home.ID)
	require.NoError(t, err)
	require.Equal(t, 1, homeStreak.Wins)
	require.Equal(t, 1, homeStreak.Best)

	awayStreak, err := s.Streaks().Get(ctx, away.ID)
	require.NoError(t, err)
	require.Equal(t, 0, awayStreak.Wins)

	updatedHome, err := s.Profiles().Get(ctx, home.ID)
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, updatedHome.PlayTime)
	require.Positive(t, updatedHome.Points)
}

func TestProfiles_NameUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	require.NoError(t, s.Profiles().Store(ctx, &model.Profile{Name: "dupe"}))
	err := s.Profiles().Store(ctx, &model.Profile{Name: "dupe"})
	require.ErrorIs(t, err, ErrNameTaken)
}
