package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoints_ZeroGames(t *testing.T) {
	assert.Equal(t, 0, Points(0, 0, 0))
}

func TestPoints_MonotonicInWins(t *testing.T) {
	prev := Points(0, 2, 3)
	for wins := 1; wins <= 20; wins++ {
		cur := Points(wins, 2, 3)
		assert.GreaterOrEqualf(t, cur, prev, "wins=%d", wins)
		prev = cur
	}
}

func TestPoints_Bounded(t *testing.T) {
	for n := 0; n < 500; n++ {
		p := Points(n, 0, 0)
		assert.LessOrEqual(t, p, 1000)
	}
}

func TestDivision_Thresholds(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0},
		{249, 0},
		{250, 1},
		{449, 1},
		{450, 2},
		{599, 2},
		{600, 3},
		{749, 3},
		{750, 4},
		{1000, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Division(tt.points), "points=%d", tt.points)
	}
}
