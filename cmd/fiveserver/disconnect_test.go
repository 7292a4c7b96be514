package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/banlist"
	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/match"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/session"
	"github.com/juce/fiveserver/internal/store"
)

func newTestServer(t *testing.T, countExitAsLoss bool) *fiveserver.Server {
	t.Helper()
	return fiveserver.New(fiveserver.Config{MaxUsers: 10, CountExitAsLoss: countExitAsLoss}, &banlist.List{}, store.NewMemStore(), zap.NewNop())
}

func TestHandleRoomExitNoMatchIsNoop(t *testing.T) {
	srv := newTestServer(t, true)
	room := lobby.NewRoom(1, "room", "", 1)
	s := &session.Session{ProfileID: 1}

	handleRoomExit(context.Background(), srv, s, room, zap.NewNop())

	assert.Nil(t, room.Match)
}

func TestHandleRoomExitDialectBDiscardsMatchRegardlessOfConfig(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	room := lobby.NewRoom(1, "room", "", 7)
	room.Match = match.NewMatchB(model.TeamSelection{HomeCaptainProfileID: 7, AwayCaptainProfileID: 8}, time.Now())
	s := &session.Session{ProfileID: 7}

	handleRoomExit(ctx, srv, s, room, zap.NewNop())

	assert.Nil(t, room.Match)
}

func TestHandleRoomExitDialectAForcesLossWhenConfigured(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	room := lobby.NewRoom(1, "room", "", 7)
	m := match.NewMatchA(7, 8, 1, 2)
	room.Match = m
	s := &session.Session{ProfileID: 7}

	handleRoomExit(ctx, srv, s, room, zap.NewNop())

	require.NotNil(t, room.Match)
	ma, ok := room.Match.(*match.MatchA)
	require.True(t, ok)
	assert.NotNil(t, ma.Data.HomeExit)
	assert.Equal(t, disconnectLossFor, ma.Data.ScoreHome)
	assert.Equal(t, disconnectLossAgainst, ma.Data.ScoreAway)
}

func TestHandleRoomExitDialectAAwaySideLoss(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	room := lobby.NewRoom(1, "room", "", 7)
	m := match.NewMatchA(7, 8, 1, 2)
	room.Match = m
	s := &session.Session{ProfileID: 8}

	handleRoomExit(ctx, srv, s, room, zap.NewNop())

	ma := room.Match.(*match.MatchA)
	assert.NotNil(t, ma.Data.AwayExit)
	assert.Equal(t, disconnectLossFor, ma.Data.ScoreAway)
	assert.Equal(t, disconnectLossAgainst, ma.Data.ScoreHome)
}

func TestHandleRoomExitDialectADiscardsWhenNotConfigured(t *testing.T) {
	srv := newTestServer(t, false)
	ctx := context.Background()

	room := lobby.NewRoom(1, "room", "", 7)
	room.Match = match.NewMatchA(7, 8, 1, 2)
	s := &session.Session{ProfileID: 7}

	handleRoomExit(ctx, srv, s, room, zap.NewNop())

	assert.Nil(t, room.Match)
}

func TestHandleRoomExitSkipsWhenProfileIDZero(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	room := lobby.NewRoom(1, "room", "", 7)
	m := match.NewMatchA(7, 8, 1, 2)
	room.Match = m
	s := &session.Session{ProfileID: 0}

	handleRoomExit(ctx, srv, s, room, zap.NewNop())

	assert.Same(t, m, room.Match)
	assert.Nil(t, m.Data.HomeExit)
}

func TestBumpDisconnectsIncrementsCounter(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	p := &model.Profile{Name: "striker"}
	require.NoError(t, srv.Store.Profiles().Store(ctx, p))

	require.NoError(t, bumpDisconnects(ctx, srv, p.ID))
	stored, err := srv.Store.Profiles().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Disconnects)

	require.NoError(t, bumpDisconnects(ctx, srv, p.ID))
	stored, err = srv.Store.Profiles().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Disconnects)
}

func TestBumpDisconnectsReturnsErrorForMissingProfile(t *testing.T) {
	srv := newTestServer(t, true)
	err := bumpDisconnects(context.Background(), srv, 99999)
	assert.Error(t, err)
}
