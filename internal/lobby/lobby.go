package lobby

import (
	"sync"

	"github.com/samber/lo"
)

// TypeNoStats is the Lobby.TypeCode bit meaning "no-stats": matches played
// here are never persisted (spec.md §3, §4.7 step 1).
const TypeNoStats = 0x20

// Lobby is a server-configured room set (spec.md §3). Players is keyed by
// identity hash (spec.md invariant: "a user hash appears in at most one
// Lobby.players at a time"); Rooms is keyed by room name (unique within a
// lobby).
type Lobby struct {
	DisplayName     string
	MaxPlayers      int
	TypeCode        int
	ShowMatches     bool
	CheckRosterHash bool

	mu           sync.RWMutex
	players      map[string]int64 // user hash -> profile id
	rooms        map[string]*Room
	roomOrdinal  int64
	History      ChatHistory
}

// NewLobby constructs an empty Lobby.
func NewLobby(displayName string, maxPlayers, typeCode int, showMatches, checkRosterHash bool) *Lobby {
	return &Lobby{
		DisplayName:     displayName,
		MaxPlayers:      maxPlayers,
		TypeCode:        typeCode,
		ShowMatches:     showMatches,
		CheckRosterHash: checkRosterHash,
		players:         make(map[string]int64),
		rooms:           make(map[string]*Room),
	}
}

// NoStats reports whether matches in this lobby should never be persisted
// (spec.md §3, §4.7 step 1).
func (l *Lobby) NoStats() bool {
	return l.TypeCode&TypeNoStats != 0
}

// PlayerCount returns the number of currently logged-in players.
func (l *Lobby) PlayerCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}

// Full reports whether the lobby is at MaxPlayers capacity; a MaxPlayers
// of 0 means no limit.
func (l *Lobby) Full() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.MaxPlayers > 0 && len(l.players) >= l.MaxPlayers
}

// Enter adds userHash/profileID to the lobby's player set. Callers must
// have already verified the hash is not present in another lobby (spec.md
// invariant), since that check spans multiple Lobby instances and belongs
// to the caller (internal/fiveserver.Server).
func (l *Lobby) Enter(userHash string, profileID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[userHash] = profileID
}

// Exit removes userHash from the lobby's player set.
func (l *Lobby) Exit(userHash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.players, userHash)
}

// Players returns a snapshot of (userHash -> profileID) currently present.
func (l *Lobby) Players() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int64, len(l.players))
	for k, v := range l.players {
		out[k] = v
	}
	return out
}

// CreateRoom creates and registers a new room, failing with false if the
// name is already taken within this lobby (spec.md §4.6 CreateRoom, error
// RoomNameTaken). The returned room id is the lobby's monotonic ordinal
// (spec.md §3 invariant: "monotonically non-decreasing across the
// server's uptime").
func (l *Lobby) CreateRoom(name, password string, owner int64) (*Room, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.rooms[name]; taken {
		return nil, false
	}
	l.roomOrdinal++
	room := NewRoom(l.roomOrdinal, name, password, owner)
	l.rooms[name] = room
	return room, true
}

// Room looks up a room by name.
func (l *Lobby) Room(name string) (*Room, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rooms[name]
	return r, ok
}

// RoomByID looks up a room by its lobby-assigned id.
func (l *Lobby) RoomByID(id int64) (*Room, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// RemoveRoomIfEmpty deletes name from the room set when its player list is
// empty (spec.md §4.6 ExitRoom: "if empty, delete room", §8 property 4).
func (l *Lobby) RemoveRoomIfEmpty(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[name]; ok && len(r.Players) == 0 {
		delete(l.rooms, name)
	}
}

// Rooms returns a snapshot slice of every currently registered room.
func (l *Lobby) Rooms() []*Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Values(l.rooms)
}
