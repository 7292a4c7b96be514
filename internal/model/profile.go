package model

import "time"

// MaxProfilesPerUser is the number of ordinal profile slots a User owns
// (spec.md §3: "Owns ≤3 Profiles by ordinal index ∈ {0,1,2}").
const MaxProfilesPerUser = 3

// Profile is a named play identity (spec.md §3).
type Profile struct {
	ID              int64
	UserID          int64
	Ordinal         int // 0-2
	Name            string
	FavouriteTeamID   int32
	FavouritePlayerID int32
	Points          int
	Rank            int
	Disconnects     int
	PlayTime        time.Duration
	Rating          *float64 // dialect-B only
	Comment         string   // dialect-B only
	Settings1       []byte   // opaque compressed blob
	Settings2       []byte
	Deleted         bool
	UpdatedOn       time.Time
}

// Pristine returns a zero-stat copy of a profile, used when the server's
// process-wide ShowStats setting is disabled (spec.md §4.4, GetProfiles).
func (p Profile) Pristine() Profile {
	out := p
	out.Points = 0
	out.Rank = 0
	out.Disconnects = 0
	out.PlayTime = 0
	out.Rating = nil
	out.Comment = ""
	return out
}

// Stats is the derived (not stored as a row) tuple of a profile's match
// history (spec.md §3).
type Stats struct {
	Wins          int
	Losses        int
	Draws         int
	GoalsScored   int
	GoalsAllowed  int
	CurrentStreak int
	BestStreak    int
	LastTeamsUsed []int32 // dialect-B only
}

// Games returns the total number of recorded matches.
func (s Stats) Games() int {
	return s.Wins + s.Losses + s.Draws
}

// SettingsBlobPair is the two opaque compressed settings blobs stored per
// profile (spec.md §3, §6 `settings` table).
type SettingsBlobPair struct {
	Blob1 []byte
	Blob2 []byte
}

// Streak is the persisted win-streak row keyed by profile (spec.md §6,
// `streaks` table).
type Streak struct {
	ProfileID int64
	Wins      int
	Best      int
}

// Apply updates the streak for a single match outcome, per spec.md §4.7
// step 4: on a win, wins+=1 and best=max(best,wins); on any non-win
// (including a draw), wins resets to 0.
func (s *Streak) Apply(outcome Outcome) {
	if outcome == OutcomeWin {
		s.Wins++
		if s.Wins > s.Best {
			s.Best = s.Wins
		}
		return
	}
	s.Wins = 0
}

// Outcome is a single profile's result from one match.
type Outcome int

const (
	OutcomeLoss Outcome = iota
	OutcomeDraw
	OutcomeWin
)
