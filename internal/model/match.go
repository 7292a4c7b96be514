package model

import "time"

// ExitType records how a side left a dialect-A match series (spec.md §4.4,
// §4.6 MatchExit). Nil means the side has not exited yet.
type ExitType int

const (
	ExitNone ExitType = iota
	ExitClean
	ExitDisconnect
)

// MatchA is the dialect-A flat-score match variant (spec.md §3).
type MatchA struct {
	HomeProfileID int64
	AwayProfileID int64
	HomeTeamID    int32
	AwayTeamID    int32
	ScoreHome     int
	ScoreAway     int
	Start         time.Time
	HomeExit      *ExitType
	AwayExit      *ExitType
}

// BothExited reports whether both sides have recorded an exit flag
// of exactly Clean, used by the dialect-A series-exit "disregard" rule
// (spec.md §4.4).
func (m *MatchA) BothExited() bool {
	return m.HomeExit != nil && *m.HomeExit == ExitClean && m.AwayExit != nil && *m.AwayExit == ExitClean
}

// HalfScores holds dialect-B's per-half sub-scores for one side (spec.md §3).
type HalfScores struct {
	First       int
	Second      int
	ExtraFirst  int
	ExtraSecond int
	Penalties   int
}

func (h HalfScores) Total() int {
	return h.First + h.Second + h.ExtraFirst + h.ExtraSecond + h.Penalties
}

// MatchState is dialect-B's match clock state machine (spec.md §3).
type MatchState int

const (
	NotStarted MatchState = iota
	FirstHalf
	HalfTime
	SecondHalf
	BeforeExtraTime
	ETFirstHalf
	ETBreak
	ETSecondHalf
	BeforePenalties
	Penalties
	Finished
)

// AcceptsGoals reports whether a goal event may be recorded while in this
// state (spec.md §4.6: "only FIRST_HALF, SECOND_HALF, ET_FIRST_HALF,
// ET_SECOND_HALF, PENALTIES accept goals").
func (s MatchState) AcceptsGoals() bool {
	switch s {
	case FirstHalf, SecondHalf, ETFirstHalf, ETSecondHalf, Penalties:
		return true
	default:
		return false
	}
}

// TeamSelection is dialect-B's pregame captain/team picks (spec.md §3).
type TeamSelection struct {
	HomeCaptainProfileID int64
	AwayCaptainProfileID int64
	HomeExtraProfileIDs  []int64 // up to 2
	AwayExtraProfileIDs  []int64
	HomeTeamID           int32
	AwayTeamID           int32
}

// MatchB is the dialect-B match variant, with per-half scoring and a clock
// state machine (spec.md §3).
type MatchB struct {
	Selection TeamSelection
	Home      HalfScores
	Away      HalfScores
	ClockMin  int
	State     MatchState
	Start     time.Time
}

// AddGoal routes a goal to the correct half-score bucket for the match's
// current state (spec.md §4.6).
func (m *MatchB) AddGoal(home bool) bool {
	if !m.State.AcceptsGoals() {
		return false
	}
	side := &m.Away
	if home {
		side = &m.Home
	}
	switch m.State {
	case FirstHalf:
		side.First++
	case SecondHalf:
		side.Second++
	case ETFirstHalf:
		side.ExtraFirst++
	case ETSecondHalf:
		side.ExtraSecond++
	case Penalties:
		side.Penalties++
	}
	return true
}

// RoomPhase is dialect-B's room pregame/postgame state machine (spec.md §3).
type RoomPhase int

const (
	PhaseIdle RoomPhase = iota
	PhaseSideSelect
	PhaseSettingsSelect
	PhaseTeamSelect
	PhaseStripSelect
	PhaseFormationSelect
	PhaseMatchStarted
	PhaseMatchFinished
	PhaseSeriesEnding
)

// Next returns the phase that follows linear pregame progression
// (IDLE -> SIDE_SELECT -> ... -> FORMATION_SELECT -> MATCH_STARTED), or the
// same phase if there is no further linear step (spec.md §3).
func (p RoomPhase) Next() RoomPhase {
	switch p {
	case PhaseIdle:
		return PhaseSideSelect
	case PhaseSideSelect:
		return PhaseSettingsSelect
	case PhaseSettingsSelect:
		return PhaseTeamSelect
	case PhaseTeamSelect:
		return PhaseStripSelect
	case PhaseStripSelect:
		return PhaseFormationSelect
	case PhaseFormationSelect:
		return PhaseMatchStarted
	default:
		return p
	}
}
