package match

import "github.com/juce/fiveserver/internal/model"

// Outcomes derives each side's Outcome from final scores, used when
// building the streak/points update of spec.md §4.7.
func Outcomes(scoreHome, scoreAway int) (home, away model.Outcome) {
	switch {
	case scoreHome > scoreAway:
		return model.OutcomeWin, model.OutcomeLoss
	case scoreHome < scoreAway:
		return model.OutcomeLoss, model.OutcomeWin
	default:
		return model.OutcomeDraw, model.OutcomeDraw
	}
}

// AddGoalA records a dialect-A goal for the given side (spec.md §4.6:
// "dialect-A adds 1 to the flat counter").
func AddGoalA(m *MatchA, home bool) {
	if home {
		m.Data.ScoreHome++
	} else {
		m.Data.ScoreAway++
	}
}

// AddGoalB routes a dialect-B goal to the half bucket implied by the
// match's current state, returning false if the state does not currently
// accept goals (spec.md §4.6).
func AddGoalB(m *MatchB, home bool) bool {
	return m.Data.AddGoal(home)
}

// ScoreA returns the dialect-A flat score pair.
func ScoreA(m *MatchA) (home, away int) {
	return m.Data.ScoreHome, m.Data.ScoreAway
}

// ScoreB returns the dialect-B total score pair, summed across all halves.
func ScoreB(m *MatchB) (home, away int) {
	return m.Data.Home.Total(), m.Data.Away.Total()
}
