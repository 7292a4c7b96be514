// Package admin implements the HTTP admin/registration surface of
// spec.md §6: read-mostly operator views plus the client-facing
// registration POST flow. Grounded on
// _examples/original_source/lib/fiveserver/admin.py and register.py, with
// the router built on github.com/julienschmidt/httprouter the way
// Seednode-partybox wires its own HTTP mux.
package admin

import (
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/time/rate"

	"github.com/juce/fiveserver/internal/banlist"
	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/store"
	"github.com/juce/fiveserver/internal/tasks"
)

// Config carries the admin surface's own settings, split out of
// fiveserver.Config so this package doesn't need the full server config
// shape (spec.md §9: narrow collaborator interfaces).
type Config struct {
	Addr         string
	Username     string
	Password     string
	CipherKeyHex string // hex-encoded Blowfish key for the registration hash transform
}

// Admin is the admin/registration HTTP surface's own process context,
// mirroring how internal/fiveserver.Server is the core's single context
// (spec.md §9: "no hidden singletons").
type Admin struct {
	cfg     Config
	server  *fiveserver.Server
	store   store.Store
	banList *banlist.List
	logger  *zap.Logger
	ring    *LogRing
	started time.Time

	cipher   *blowfish.Cipher
	logLevel zap.AtomicLevel // live-adjustable via /debug
	requery  tasks.Requery   // wired to internal/tasks.WANIPProbe's requery trigger

	router *httprouter.Router

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New builds the admin HTTP surface: a Blowfish cipher from cfg's key, a
// throttled+authenticated httprouter.Router with every admin.py-derived
// view wired in. logLevel is the same zap.AtomicLevel the root logger was
// built with, so /debug can raise or lower verbosity without a restart
// (admin.py's DebugResource toggles log.setDebug the same way). requery
// triggers an out-of-band WAN-IP probe (admin.py's ServerIpResource
// render_POST calls config.setIP(resetTime=False) the same way).
func New(cfg Config, srv *fiveserver.Server, st store.Store, banList *banlist.List, ring *LogRing, logLevel zap.AtomicLevel, requery tasks.Requery, logger *zap.Logger) (*Admin, error) {
	key, err := hex.DecodeString(cfg.CipherKeyHex)
	if err != nil {
		return nil, err
	}
	cipher, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}

	a := &Admin{
		cfg:      cfg,
		server:   srv,
		store:    st,
		banList:  banList,
		logger:   logger.Named("admin"),
		ring:     ring,
		started:  time.Now(),
		cipher:   cipher,
		logLevel: logLevel,
		requery:  requery,
		limiters: make(map[string]*rate.Limiter),
	}
	a.router = a.buildRouter()
	return a, nil
}

// ListenAndServe runs the admin HTTP surface until the process exits or
// the listener errors; callers typically run this in its own goroutine.
func (a *Admin) ListenAndServe() error {
	srv := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: a.router,
	}
	return srv.ListenAndServe()
}

// limiterFor returns the per-IP token bucket used to throttle admin
// requests (SPEC_FULL.md's domain-stack note: x/time/rate gates the admin
// HTTP surface, a concern the original admin UI needs but spec.md is
// silent on), creating one lazily on first sight of an address.
func (a *Admin) limiterFor(ip string) *rate.Limiter {
	a.limiterMu.Lock()
	defer a.limiterMu.Unlock()

	lim, ok := a.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(5), 10)
		a.limiters[ip] = lim
	}
	return lim
}
