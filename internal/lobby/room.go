package lobby

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/juce/fiveserver/internal/match"
	"github.com/juce/fiveserver/internal/model"
)

// ErrRoomFull is returned by AddParticipant once 4 participants are already
// registered (spec.md §3 invariant: "size ≤ 4").
var ErrRoomFull = errors.New("lobby: room participant cap reached")

// MaxParticipants bounds Room.Participants (spec.md §3, §8 property 5).
const MaxParticipants = 4

// CancelGrace is how long a forced-cancel timestamp blocks self
// re-participation (spec.md §4.6, dialect-B force-cancel).
const CancelGrace = 10 * time.Second

// MatchSettings is the opaque pregame configuration negotiated before a
// room's match starts (spec.md §3). The core only needs to carry it
// between the setter and the match-start path; its internal shape is
// client-defined and not interpreted by the server.
type MatchSettings struct {
	Raw []byte
}

// Room is a transient container within a Lobby where a match is set up and
// played (spec.md §3).
type Room struct {
	ID       int64
	Name     string
	Password string

	Instance uuid.UUID

	Players      []int64 // profile ids, entry order
	Owner        int64
	MatchStarter int64

	Participants []int64 // subset of Players, size <= MaxParticipants

	Settings      *MatchSettings
	Selection     *model.TeamSelection
	Match         match.Match
	Phase         model.RoomPhase
	ReadyCount    int

	// CancelledAt tracks dialect-B's forced-cancel timestamps keyed by
	// profile id (spec.md §4.6 "Forced-cancel participation").
	CancelledAt map[int64]time.Time
}

// NewRoom creates an empty room owned by its first entrant.
func NewRoom(id int64, name, password string, owner int64) *Room {
	return &Room{
		ID:           id,
		Name:         name,
		Password:     password,
		Instance:     uuid.Must(uuid.NewV4()),
		Players:      []int64{owner},
		Owner:        owner,
		MatchStarter: owner,
		Phase:        model.PhaseIdle,
		CancelledAt:  make(map[int64]time.Time),
	}
}

// Enter adds a profile to the room's player list.
func (r *Room) Enter(profileID int64) {
	r.Players = append(r.Players, profileID)
}

// Exit removes a profile from the room, reassigning ownership to the next
// remaining player if the owner left (spec.md §4.6 ExitRoom, §8 property
// 4). Reports whether the room is now empty.
func (r *Room) Exit(profileID int64) (empty bool) {
	r.Players = removeInt64(r.Players, profileID)
	r.Participants = removeInt64(r.Participants, profileID)
	delete(r.CancelledAt, profileID)

	if len(r.Players) == 0 {
		return true
	}
	if r.Owner == profileID {
		r.Owner = r.Players[0]
	}
	if r.MatchStarter == profileID {
		r.MatchStarter = r.Owner
	}
	return false
}

// AddParticipant registers profileID to play the next match, enforcing the
// 4-player cap (spec.md §3 invariant, §8 property 5) and the cancel-grace
// rejection (spec.md §4.6).
func (r *Room) AddParticipant(profileID int64, now time.Time) error {
	if cancelled, ok := r.CancelledAt[profileID]; ok && now.Sub(cancelled) < CancelGrace {
		return errors.New("lobby: participation still cancelled")
	}
	if containsInt64(r.Participants, profileID) {
		return nil
	}
	if len(r.Participants) >= MaxParticipants {
		return ErrRoomFull
	}
	r.Participants = append(r.Participants, profileID)
	return nil
}

// ForceCancel evicts profileID from the participant list and stamps the
// cancel-grace timer (spec.md §4.6, dialect-B 0x4380).
func (r *Room) ForceCancel(profileID int64, now time.Time) {
	r.Participants = removeInt64(r.Participants, profileID)
	r.CancelledAt[profileID] = now
}

// HasOwner reports whether profileID currently owns the room.
func (r *Room) HasOwner(profileID int64) bool {
	return r.Owner == profileID
}

func removeInt64(s []int64, v int64) []int64 {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func containsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
