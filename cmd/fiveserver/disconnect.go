package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/match"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/session"
)

// disconnectLossFor/Against is the configured (player, opponent) score
// tuple for a forced disconnect loss: the leaving side loses 0-1,
// guaranteeing match.Outcomes treats it as a loss once the dialect-A
// series-exit path records it.
const (
	disconnectLossFor     = 0
	disconnectLossAgainst = 1
)

// newDisconnectHook builds the process-wide teardown run on every closed
// connection (spec.md §5 Cancellation, steps 1-4), wired into
// internal/session via SetDisconnectHook so that package doesn't need to
// import internal/lobby/internal/match itself.
func newDisconnectHook(srv *fiveserver.Server, logger *zap.Logger) func(*session.Session) {
	return func(s *session.Session) {
		ctx := context.Background()

		l := srv.Lobby(s.LobbyIndex)

		if s.RoomName != "" && l != nil {
			if room, ok := l.Room(s.RoomName); ok {
				handleRoomExit(ctx, srv, s, room, logger)

				empty := room.Exit(s.ProfileID)
				if empty {
					l.RemoveRoomIfEmpty(room.Name)
				} else {
					session.BroadcastRoomUpdate(srv, l, room)
				}
			}
			s.RoomName = ""
		}

		if s.UserHash != "" {
			if l != nil {
				l.Exit(s.UserHash)
				session.BroadcastPlayerInfo(srv, l, s.ProfileID)
			}
			srv.MarkOffline(s.UserHash)
		}
	}
}

// handleRoomExit implements steps 1-2 of spec.md §5: bump the leaving
// profile's disconnect counter when the room held an unfinished match,
// then either mark it a forced loss (dialect-A, countAsLoss configured) or
// discard it.
func handleRoomExit(ctx context.Context, srv *fiveserver.Server, s *session.Session, room *lobby.Room, logger *zap.Logger) {
	if room.Match == nil || s.ProfileID == 0 {
		return
	}

	if err := bumpDisconnects(ctx, srv, s.ProfileID); err != nil {
		logger.Warn("disconnect bookkeeping failed", zap.Int64("profile_id", s.ProfileID), zap.Error(err))
	}

	m, ok := room.Match.(*match.MatchA)
	if !ok {
		// dialect-B has no series-exit consumer to later record an
		// in-flight match against; it is simply discarded.
		room.Match = nil
		return
	}

	if !srv.Config.CountExitAsLoss {
		room.Match = nil
		return
	}

	exit := model.ExitDisconnect
	switch s.ProfileID {
	case m.Data.HomeProfileID:
		m.Data.HomeExit = &exit
		m.Data.ScoreHome = disconnectLossFor
		m.Data.ScoreAway = disconnectLossAgainst
	case m.Data.AwayProfileID:
		m.Data.AwayExit = &exit
		m.Data.ScoreAway = disconnectLossFor
		m.Data.ScoreHome = disconnectLossAgainst
	}
}

func bumpDisconnects(ctx context.Context, srv *fiveserver.Server, profileID int64) error {
	p, err := srv.Store.Profiles().Get(ctx, profileID)
	if err != nil {
		return err
	}
	p.Disconnects++
	return srv.Store.Profiles().Store(ctx, p)
}
