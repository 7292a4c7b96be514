// Package match wraps the two closed model.Match variants (dialect-A flat
// scoring, dialect-B per-half scoring + state machine) behind one Match
// interface, per spec.md §9's "duck-typed... collapse to a closed set of
// variants" design note.
package match

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/juce/fiveserver/internal/model"
)

// Match is implemented by *MatchA and *MatchB. It is a closed interface:
// no third implementation is anticipated, mirroring the teacher's
// evr_match.go treatment of its own match variants as a fixed pair.
type Match interface {
	ID() uuid.UUID
	StartedAt() time.Time
}

// MatchA adapts model.MatchA with the instance id every live match
// carries for fan-out bookkeeping (spec.md §3, dialect-A variant).
// Grounded on evr_match.go's MatchID/uuid.UUID field.
type MatchA struct {
	Instance uuid.UUID
	Data     model.MatchA
}

// NewMatchA creates a dialect-A match with a fresh instance id.
func NewMatchA(home, away int64, homeTeam, awayTeam int32) *MatchA {
	return &MatchA{
		Instance: uuid.Must(uuid.NewV4()),
		Data: model.MatchA{
			HomeProfileID: home,
			AwayProfileID: away,
			HomeTeamID:    homeTeam,
			AwayTeamID:    awayTeam,
		},
	}
}

func (m *MatchA) ID() uuid.UUID        { return m.Instance }
func (m *MatchA) StartedAt() time.Time { return m.Data.Start }

// MatchB adapts model.MatchB the same way for the dialect-B variant.
type MatchB struct {
	Instance uuid.UUID
	Data     model.MatchB
}

// NewMatchB creates a dialect-B match from a completed team selection,
// stamped with the current time as its start (spec.md §4.6: "On transition
// to FIRST_HALF a fresh Match6 is created, capturing team-selection and
// start timestamp").
func NewMatchB(selection model.TeamSelection, now time.Time) *MatchB {
	return &MatchB{
		Instance: uuid.Must(uuid.NewV4()),
		Data: model.MatchB{
			Selection: selection,
			State:     model.FirstHalf,
			Start:     now,
		},
	}
}

func (m *MatchB) ID() uuid.UUID        { return m.Instance }
func (m *MatchB) StartedAt() time.Time { return m.Data.Start }
