package lobby

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRoom_OwnershipInvariant is spec.md §8 property 4: after any sequence
// of enter/exit operations, if the room is non-empty then owner is a
// member of players; if empty, the lobby no longer carries the room.
func TestRoom_OwnershipInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for iter := 0; iter < 200; iter++ {
		lob := NewLobby("test", 64, 0, true, false)
		room, ok := lob.CreateRoom("ROOM", "", 1)
		require.True(t, ok)

		next := int64(2)
		steps := rng.Intn(30)
		for s := 0; s < steps; s++ {
			if rng.Intn(3) == 0 && len(room.Players) > 0 {
				victim := room.Players[rng.Intn(len(room.Players))]
				if room.Exit(victim) {
					lob.RemoveRoomIfEmpty(room.Name)
				}
			} else {
				room.Enter(next)
				next++
			}

			if len(room.Players) > 0 {
				require.Contains(t, room.Players, room.Owner)
			} else {
				_, stillThere := lob.Room(room.Name)
				require.False(t, stillThere)
				break
			}
		}
	}
}

// TestRoom_ParticipantCap is spec.md §8 property 5: participants <= 4 and
// participants subset of players, always.
func TestRoom_ParticipantCap(t *testing.T) {
	room := NewRoom(1, "ROOM", "", 1)
	now := time.Now()
	for i := int64(2); i <= 6; i++ {
		room.Enter(i)
	}

	for i := int64(1); i <= 6; i++ {
		_ = room.AddParticipant(i, now)
	}

	require.LessOrEqual(t, len(room.Participants), MaxParticipants)
	for _, p := range room.Participants {
		require.Contains(t, room.Players, p)
	}
}

func TestRoom_ForceCancelBlocksReparticipationDuringGrace(t *testing.T) {
	room := NewRoom(1, "ROOM", "", 1)
	room.Enter(2)
	now := time.Now()

	require.NoError(t, room.AddParticipant(2, now))
	room.ForceCancel(2, now)

	err := room.AddParticipant(2, now.Add(1*time.Second))
	require.Error(t, err)

	err = room.AddParticipant(2, now.Add(CancelGrace+time.Second))
	require.NoError(t, err)
}
