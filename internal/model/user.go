// Package model holds the persistent data shapes of spec.md §3: User,
// Profile, Stats, Match, ChatMessage. These are plain structs; the
// in-memory concurrent graph that references them lives in internal/lobby
// and internal/match, and their storage lives in internal/store.
package model

import "time"

// User is an identity record (spec.md §3).
type User struct {
	ID         int64
	Hash       string // opaque 32-hex-character identity hash, unique
	Username   string // unique, printable
	Serial     string
	ResetNonce string // present => account locked pending re-registration
	Deleted    bool
	UpdatedOn  time.Time
}

// Locked reports whether the account is locked pending re-registration.
func (u *User) Locked() bool {
	return u.ResetNonce != ""
}
