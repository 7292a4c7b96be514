package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/juce/fiveserver/internal/admin"
	"github.com/juce/fiveserver/internal/banlist"
	"github.com/juce/fiveserver/internal/config"
	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/session"
	"github.com/juce/fiveserver/internal/store"
	"github.com/juce/fiveserver/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the TCP matchmaking/session listeners and the HTTP admin surface",
	RunE:  runServe,
}

// buildLogger wires a JSON zap.Logger over a LogRing-wrapped core, so the
// admin /log and /biglog endpoints can tail whatever the process has
// already logged (SPEC_FULL.md's supplemented features), and returns the
// zap.AtomicLevel the admin /debug endpoint live-adjusts.
func buildLogger() (*zap.Logger, zap.AtomicLevel, *admin.LogRing) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	ring := admin.NewLogRing(core, encoder)
	logger := zap.New(ring, zap.AddCaller())
	return logger, level, ring
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("fiveserver: %w", err)
	}

	logger, logLevel, ring := buildLogger()
	defer logger.Sync()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("fiveserver: %w", err)
	}
	defer st.Close()

	banList := &banlist.List{}
	if cfg.BannedListPath != "" {
		if err := banList.LoadFile(cfg.BannedListPath); err != nil {
			logger.Warn("banned list load failed, starting with an empty list", zap.Error(err))
		}
	}

	srv := fiveserver.New(fiveserver.Config{
		Version:         cfg.Version,
		MaxUsers:        cfg.MaxUsers,
		CompareHash:     cfg.CompareHash,
		ShowStats:       cfg.ShowStats,
		CountExitAsLoss: cfg.CountExitAsLoss,
		GameVersion:     cfg.GameVersion,
		RankInterval:    cfg.RankInterval,
		BannedListPath:  cfg.BannedListPath,
		BannedWords:     cfg.BannedWords,
		WANProbeURL:     cfg.WANProbeURL,
	}, banList, st, logger)

	for _, lc := range cfg.Lobbies {
		srv.AddLobby(lc.Index, lobby.NewLobby(lc.DisplayName, lc.MaxPlayers, lc.TypeCode, lc.ShowMatches, lc.CheckRosterHash))
	}

	session.SetDisconnectHook(newDisconnectHook(srv, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requery := tasks.NewRequery()
	go tasks.WANIPProbe(ctx, cfg.WANProbeURL, srv, requery, logger.Named("wanip"))
	go tasks.ChatRollover(ctx, srv, logger.Named("chat"))
	go tasks.RankRecompute(ctx, st, cfg.RankInterval, logger.Named("rank"))

	serviceIPs, servicePorts := serviceList(cfg.ServiceList)

	for _, lc := range cfg.News {
		startListener(ctx, lc, srv, serviceIPs, servicePorts, logger, roleSet{news: true})
	}
	for _, lc := range cfg.Login {
		startListener(ctx, lc, srv, serviceIPs, servicePorts, logger, roleSet{login: true})
	}
	for _, lc := range cfg.NetworkMenu {
		startListener(ctx, lc, srv, serviceIPs, servicePorts, logger, roleSet{networkMenu: true})
	}
	for _, lc := range cfg.Main {
		startListener(ctx, lc, srv, serviceIPs, servicePorts, logger, roleSet{main: true})
	}

	if cfg.AdminAddr != "" {
		a, err := admin.New(admin.Config{
			Addr:         cfg.AdminAddr,
			Username:     cfg.AdminUsername,
			Password:     cfg.AdminPassword,
			CipherKeyHex: cfg.AdminSecret,
		}, srv, st, banList, ring, logLevel, requery, logger)
		if err != nil {
			return fmt.Errorf("fiveserver: admin: %w", err)
		}
		go func() {
			if err := a.ListenAndServe(); err != nil {
				logger.Error("admin surface stopped", zap.Error(err))
			}
		}()
		logger.Info("admin surface listening", zap.String("addr", cfg.AdminAddr))
	}

	logger.Info("fiveserver started", zap.String("version", cfg.Version))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// roleSet selects which role-overlay tables a listener installs on top of
// the handlers every connection needs (spec.md §4.2: "the four additive
// role overlays").
type roleSet struct {
	news        bool
	login       bool
	networkMenu bool
	main        bool
}

// serviceList converts the configured [login, main, networkMenu] server
// list entries into the fixed-width forms the News role's 0x2005 response
// advertises (spec.md §4.3).
func serviceList(entries [3]config.ServerListEntry) (ips [3][4]byte, ports [3]uint16) {
	for i, e := range entries {
		if ip := net.ParseIP(e.IP).To4(); ip != nil {
			copy(ips[i][:], ip)
		}
		ports[i] = e.Port
	}
	return ips, ports
}

func dialectOf(s string) session.Dialect {
	if s == "a" {
		return session.DialectA
	}
	return session.DialectB
}

// startListener runs one TCP listener's accept loop in its own goroutine
// until ctx is cancelled (spec.md §6: "one listener per role per
// dialect").
func startListener(ctx context.Context, lc config.ListenConfig, srv *fiveserver.Server, serviceIPs [3][4]byte, servicePorts [3]uint16, logger *zap.Logger, roles roleSet) {
	dialect := dialectOf(lc.Dialect)

	ln, err := net.Listen("tcp", lc.Addr)
	if err != nil {
		logger.Error("listener failed to start", zap.String("addr", lc.Addr), zap.Error(err))
		return
	}
	logger.Info("listening", zap.String("addr", lc.Addr), zap.String("dialect", lc.Dialect))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					logger.Warn("accept failed", zap.String("addr", lc.Addr), zap.Error(err))
					continue
				}
			}
			go serveConn(conn, srv, dialect, serviceIPs, servicePorts, logger, roles)
		}
	}()
}

func serveConn(conn net.Conn, srv *fiveserver.Server, dialect session.Dialect, serviceIPs [3][4]byte, servicePorts [3]uint16, logger *zap.Logger, roles roleSet) {
	s := session.New(conn, srv, dialect, logger)
	s.ServiceIPs = serviceIPs
	s.ServicePorts = servicePorts

	switch {
	case roles.news:
		s.Use(session.RoleNews())
	case roles.login:
		s.Use(session.RoleLogin())
		if dialect == session.DialectA {
			s.Use(session.RoleLoginDialectA())
		}
	case roles.networkMenu:
		s.Use(session.RoleNetworkMenu())
	case roles.main:
		s.Use(session.RoleMain())
		if dialect == session.DialectA {
			s.Use(session.RoleMainDialectA())
		} else {
			s.Use(session.RoleMainDialectB())
		}
	}

	s.Serve()
}
