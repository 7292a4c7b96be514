// Package config loads fiveserver's YAML configuration file, in the
// manner of vovakirdan-tui-arcade's internal/config loader
// (internal/config/loader.go): read the whole file, yaml.Unmarshal into a
// typed struct, wrap errors with the failing path. A bad or missing config
// aborts the process at startup (spec.md §7 Configuration error kind);
// this package only loads and validates, the abort itself happens in
// cmd/fiveserver/main.go.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ListenConfig is one TCP listener: an address and the protocol dialect it
// speaks (spec.md §6 external interfaces: one listener per role per
// dialect).
type ListenConfig struct {
	Addr    string `yaml:"addr"`
	Dialect string `yaml:"dialect"` // "a" or "b"
}

// ServerListEntry is one (IP, port) pair advertised in the News role's
// server-list response, in the fixed order [login, main, networkMenu]
// (spec.md §4.3).
type ServerListEntry struct {
	IP   string `yaml:"ip"`
	Port uint16 `yaml:"port"`
}

// LobbyConfig describes one statically configured Lobby (spec.md §3).
type LobbyConfig struct {
	Index           int    `yaml:"index"`
	DisplayName     string `yaml:"display_name"`
	MaxPlayers      int    `yaml:"max_players"`
	TypeCode        int    `yaml:"type_code"`
	ShowMatches     bool   `yaml:"show_matches"`
	CheckRosterHash bool   `yaml:"check_roster_hash"`
}

// Config is fiveserver's top-level configuration file shape.
type Config struct {
	Version string `yaml:"version"`

	News         []ListenConfig `yaml:"news_listeners"`
	Login        []ListenConfig `yaml:"login_listeners"`
	NetworkMenu  []ListenConfig `yaml:"network_menu_listeners"`
	Main         []ListenConfig `yaml:"main_listeners"`

	ServiceList [3]ServerListEntry `yaml:"service_list"` // [login, main, networkMenu]

	Lobbies []LobbyConfig `yaml:"lobbies"`

	MaxUsers        int32         `yaml:"max_users"`
	CompareHash     bool          `yaml:"compare_hash"`
	ShowStats       bool          `yaml:"show_stats"`
	CountExitAsLoss bool          `yaml:"count_exit_as_loss"`
	GameVersion     uint32        `yaml:"game_version"`
	RankInterval    time.Duration `yaml:"rank_interval"`

	DatabasePath   string   `yaml:"database_path"`
	BannedListPath string   `yaml:"banned_list_path"`
	BannedWords    []string `yaml:"banned_words"`
	WANProbeURL    string   `yaml:"wan_probe_url"`

	AdminAddr     string `yaml:"admin_addr"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	AdminSecret   string `yaml:"admin_secret"` // hex-encoded Blowfish key for registration hash transform
}

// Load reads and parses the YAML file at path, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if len(c.Lobbies) == 0 {
		return fmt.Errorf("at least one lobby must be configured")
	}
	if c.MaxUsers <= 0 {
		return fmt.Errorf("max_users must be positive")
	}
	if c.RankInterval <= 0 {
		c.RankInterval = 24 * time.Hour
	}
	seen := make(map[int]bool, len(c.Lobbies))
	for _, l := range c.Lobbies {
		if seen[l.Index] {
			return fmt.Errorf("duplicate lobby index %d", l.Index)
		}
		seen[l.Index] = true
	}
	if c.AdminAddr != "" && c.AdminSecret == "" {
		return fmt.Errorf("admin_secret is required when admin_addr is set")
	}
	return nil
}
