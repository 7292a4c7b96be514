// Package fiveserver holds the single process-global context (spec.md §9:
// "no hidden singletons"): config, banned list, online-user set, lobby
// set, WAN-IP state, start time, store and logger, passed by reference to
// every handler. Grounded on the teacher's EvrPipeline struct
// (server/evr_pipeline.go), which plays the same role for nakama's match
// pipeline.
package fiveserver

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/banlist"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/store"
)

// Sender is the narrow outbound surface a Server needs from a live
// connection to push unsolicited frames (chat fan-out, room/player
// broadcast, forced disconnects) without this package importing
// internal/session and creating an import cycle.
type Sender interface {
	SendFrame(opcode uint16, body []byte) error
	Close() error
}

// Config is the subset of internal/config.Config the server context reads
// at runtime (the full struct lives in internal/config; this local type
// keeps fiveserver free of a config-package import solely for wiring).
type Config struct {
	Version          string
	MaxUsers         int32
	CompareHash      bool
	ShowStats        bool
	CountExitAsLoss  bool
	GameVersion      uint32
	RankInterval     time.Duration
	BannedListPath   string
	BannedWords      []string
	WANProbeURL      string
}

// Server is the process-global context threaded through every handler.
type Server struct {
	Config Config
	Logger *zap.Logger

	BanList *banlist.List
	Store   store.Store

	lobbiesMu sync.RWMutex
	lobbies   map[int]*lobby.Lobby // keyed by lobby index

	online *lobby.SyncMap[string, Sender] // user hash -> live connection

	startedAt time.Time

	maxUsers atomic.Int32

	// storeSettings gates whether profile settings blobs are persisted
	// (admin.py's /settings "StoreSettings" toggle); on by default.
	storeSettings atomic.Bool

	wanIPMu sync.RWMutex
	wanIP   string
}

// New constructs a Server with an empty lobby set; callers register
// lobbies with AddLobby before accepting connections.
func New(cfg Config, banList *banlist.List, st store.Store, logger *zap.Logger) *Server {
	s := &Server{
		Config:    cfg,
		Logger:    logger,
		BanList:   banList,
		Store:     st,
		lobbies:   make(map[int]*lobby.Lobby),
		online:    lobby.NewSyncMap[string, Sender](),
		startedAt: time.Now(),
	}
	s.maxUsers.Store(cfg.MaxUsers)
	s.storeSettings.Store(true)
	return s
}

// AddLobby registers a statically configured lobby at the given index.
func (s *Server) AddLobby(index int, l *lobby.Lobby) {
	s.lobbiesMu.Lock()
	defer s.lobbiesMu.Unlock()
	s.lobbies[index] = l
}

// Lobby returns the lobby registered at index, or nil.
func (s *Server) Lobby(index int) *lobby.Lobby {
	s.lobbiesMu.RLock()
	defer s.lobbiesMu.RUnlock()
	return s.lobbies[index]
}

// Lobbies returns a snapshot of every registered (index, lobby) pair.
func (s *Server) Lobbies() map[int]*lobby.Lobby {
	s.lobbiesMu.RLock()
	defer s.lobbiesMu.RUnlock()
	out := make(map[int]*lobby.Lobby, len(s.lobbies))
	for k, v := range s.lobbies {
		out[k] = v
	}
	return out
}

// MaxUsers returns the current capacity ceiling (spec.md §4.3 greeting
// handler; live-adjustable via the admin /maxusers endpoint).
func (s *Server) MaxUsers() int32 { return s.maxUsers.Load() }

// SetMaxUsers live-reconfigures server capacity without restart (admin.py
// /maxusers, carried forward per SPEC_FULL.md's supplemented features).
func (s *Server) SetMaxUsers(n int32) { s.maxUsers.Store(n) }

// StoreSettingsEnabled reports whether profile settings blobs should be
// persisted (admin /settings toggle).
func (s *Server) StoreSettingsEnabled() bool { return s.storeSettings.Load() }

// SetStoreSettingsEnabled live-toggles settings persistence.
func (s *Server) SetStoreSettingsEnabled(v bool) { s.storeSettings.Store(v) }

// OnlineCount returns the number of currently authenticated users across
// every lobby (spec.md invariant: a user hash is online in at most one
// lobby at a time, so the online set alone reflects server occupancy).
func (s *Server) OnlineCount() int { return s.online.Len() }

// IsOnline reports whether userHash already has a live connection
// (spec.md §4.4 Authenticate step 2, error AlreadyOnline).
func (s *Server) IsOnline(userHash string) bool {
	_, ok := s.online.Get(userHash)
	return ok
}

// MarkOnline registers userHash's live connection (spec.md §4.4
// Authenticate step 4).
func (s *Server) MarkOnline(userHash string, conn Sender) {
	s.online.Set(userHash, conn)
}

// MarkOffline removes userHash from the online set (spec.md §5
// disconnect step 4).
func (s *Server) MarkOffline(userHash string) {
	s.online.Delete(userHash)
}

// Find returns the live connection for userHash, if online.
func (s *Server) Find(userHash string) (Sender, bool) {
	return s.online.Get(userHash)
}

// OnlineUsers returns a snapshot of every (user hash -> live connection)
// pair, keyed the same way as the online set, for the admin /users/online
// view (admin.py's UsersOnlineResource walks config.onlineUsers the same
// way).
func (s *Server) OnlineUsers() map[string]Sender {
	out := make(map[string]Sender, s.online.Len())
	s.online.Range(func(hash string, sender Sender) bool {
		out[hash] = sender
		return true
	})
	return out
}

// StartedAt returns the process (or last WAN-IP-refresh) start time.
func (s *Server) StartedAt() time.Time {
	s.wanIPMu.RLock()
	defer s.wanIPMu.RUnlock()
	return s.startedAt
}

// SetStartedAt optionally stamps a new start time on a successful WAN-IP
// probe (spec.md §4.9).
func (s *Server) SetStartedAt(t time.Time) {
	s.wanIPMu.Lock()
	defer s.wanIPMu.Unlock()
	s.startedAt = t
}

// WANIP returns the server's last discovered WAN address.
func (s *Server) WANIP() string {
	s.wanIPMu.RLock()
	defer s.wanIPMu.RUnlock()
	return s.wanIP
}

// SetWANIP updates the discovered WAN address (spec.md §4.9 WAN-IP probe).
func (s *Server) SetWANIP(ip string) {
	s.wanIPMu.Lock()
	defer s.wanIPMu.Unlock()
	s.wanIP = ip
}
