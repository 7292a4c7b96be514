package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStreak_Monotonicity is spec.md §8 property 6: for any match
// sequence, best is non-decreasing, and wins equals the length of the
// current consecutive-wins suffix.
func TestStreak_Monotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for iter := 0; iter < 100; iter++ {
		var s Streak
		bestSoFar := 0
		suffix := 0

		for i := 0; i < 50; i++ {
			outcome := Outcome(rng.Intn(3))
			s.Apply(outcome)

			if outcome == OutcomeWin {
				suffix++
			} else {
				suffix = 0
			}

			require.Equal(t, suffix, s.Wins)
			require.GreaterOrEqual(t, s.Best, bestSoFar)
			bestSoFar = s.Best
		}
	}
}
