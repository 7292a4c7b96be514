// Package store defines the typed data-access interface the core calls
// for users, profiles, matches, streaks and settings (spec.md §3, §6), and
// provides a modernc.org/sqlite-backed implementation plus an in-memory one
// for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/juce/fiveserver/internal/model"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrNameTaken    = errors.New("store: name already taken")
	ErrUsernameTaken = errors.New("store: username already taken")
)

// Users is the typed CRUD surface over the users table.
type Users interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByHash(ctx context.Context, hash string) (*model.User, error)
	FindByNonce(ctx context.Context, nonce string) (*model.User, error)
	Store(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
	Browse(ctx context.Context, offset, limit int) (total int, users []*model.User, err error)
}

// Profiles is the typed CRUD surface over the profiles table.
type Profiles interface {
	Get(ctx context.Context, id int64) (*model.Profile, error)
	GetByName(ctx context.Context, name string) (*model.Profile, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Profile, error)
	Store(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, id int64) error
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)

	// Browse paginates all non-deleted profiles ordered by id, for the
	// admin /profiles listing view.
	Browse(ctx context.Context, offset, limit int) (total int, profiles []*model.Profile, err error)

	// RecomputeRanks paginates profiles ordered by (points DESC,
	// seconds_played DESC) and assigns dense-competition ranks inside a
	// single transaction (spec.md §4.9, §8 property 7).
	RecomputeRanks(ctx context.Context) error
}

// Streaks is the typed CRUD surface over the streaks table.
type Streaks interface {
	Get(ctx context.Context, profileID int64) (*model.Streak, error)
	Upsert(ctx context.Context, s *model.Streak) error
}

// Settings is the typed CRUD surface over the settings table.
type Settings interface {
	Get(ctx context.Context, profileID int64) (*model.SettingsBlobPair, error)
	Upsert(ctx context.Context, profileID int64, pair model.SettingsBlobPair) error
}

// Matches records completed matches and their participant links.
type Matches interface {
	// RecordMatchResult persists a completed match and updates streaks,
	// play time, and points for every participant in one transaction
	// (spec.md §4.7). lobbyNoStats short-circuits persistence entirely.
	RecordMatchResult(ctx context.Context, result MatchResult) error

	// Stats derives a profile's win/loss/draw/goal history from its
	// recorded matches and streak row, for the admin profile detail view
	// (admin.py's ProfilesResource pairs a profile with its stats the
	// same way).
	Stats(ctx context.Context, profileID int64) (model.Stats, error)
}

// MatchResult is the input to RecordMatchResult: a completed match plus
// its participants (spec.md §4.7).
type MatchResult struct {
	LobbyNoStats bool
	ScoreHome    int
	ScoreAway    int
	TeamIDHome   int32
	TeamIDAway   int32
	Duration     time.Duration

	// Participants, one entry per profile involved. dialect-A always has
	// exactly a home and an away participant; dialect-B may have up to
	// two extra players per side (spec.md §3, §4.7).
	Participants []Participant
}

// Participant is one profile's side in a recorded match.
type Participant struct {
	ProfileID int64
	Home      bool
	Outcome   model.Outcome
}

// Store aggregates every sub-store the core depends on.
type Store interface {
	Users() Users
	Profiles() Profiles
	Streaks() Streaks
	Settings() Settings
	Matches() Matches
	Close() error
}
