package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fiveserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalValidConfig = `
database_path: fiveserver.db
max_users: 200
lobbies:
  - index: 0
    display_name: Division 1
    max_players: 8
    type_code: 1
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, minimalValidConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fiveserver.db", cfg.DatabasePath)
	assert.Len(t, cfg.Lobbies, 1)
	assert.Equal(t, int32(200), cfg.MaxUsers)
	// RankInterval defaults to a day when unset or non-positive.
	assert.Equal(t, 24*time.Hour, cfg.RankInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "not: [valid yaml")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRequiresDatabasePath(t *testing.T) {
	cfg := &Config{MaxUsers: 1, Lobbies: []LobbyConfig{{Index: 0}}}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_path")
}

func TestValidateRequiresAtLeastOneLobby(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", MaxUsers: 1}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lobby")
}

func TestValidateRequiresPositiveMaxUsers(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", Lobbies: []LobbyConfig{{Index: 0}}}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_users")
}

func TestValidateRejectsDuplicateLobbyIndex(t *testing.T) {
	cfg := &Config{
		DatabasePath: "x.db",
		MaxUsers:     1,
		Lobbies: []LobbyConfig{
			{Index: 0, DisplayName: "A"},
			{Index: 0, DisplayName: "B"},
		},
	}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate lobby index")
}

func TestValidateRequiresAdminSecretWhenAdminAddrSet(t *testing.T) {
	cfg := &Config{
		DatabasePath: "x.db",
		MaxUsers:     1,
		Lobbies:      []LobbyConfig{{Index: 0}},
		AdminAddr:    ":8081",
	}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_secret")
}

func TestValidateAcceptsAdminAddrWithSecret(t *testing.T) {
	cfg := &Config{
		DatabasePath: "x.db",
		MaxUsers:     1,
		Lobbies:      []LobbyConfig{{Index: 0}},
		AdminAddr:    ":8081",
		AdminSecret:  "deadbeef",
	}
	assert.NoError(t, cfg.validate())
}

func TestValidatePreservesExplicitRankInterval(t *testing.T) {
	cfg := &Config{
		DatabasePath: "x.db",
		MaxUsers:     1,
		Lobbies:      []LobbyConfig{{Index: 0}},
		RankInterval: time.Hour,
	}
	require.NoError(t, cfg.validate())
	assert.Equal(t, time.Hour, cfg.RankInterval)
}
