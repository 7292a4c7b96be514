package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/store"
)

func TestNextMidnight(t *testing.T) {
	from := time.Date(2026, 7, 31, 14, 22, 0, 0, time.UTC)
	got := nextMidnight(from)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
	assert.True(t, got.After(from))
}

func TestNextMidnightAtExactMidnight(t *testing.T) {
	from := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	got := nextMidnight(from)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

type fakeLobbySource struct {
	lobbies map[int]*lobby.Lobby
}

func (f *fakeLobbySource) Lobbies() map[int]*lobby.Lobby { return f.lobbies }

func TestRolloverOnceAppendsDateAndPurges(t *testing.T) {
	l := lobby.NewLobby("Division 1", 8, 0, true, false)
	old := model.ChatMessage{Text: "stale", Timestamp: time.Now().Add(-2 * model.ChatHistoryMaxAge)}
	l.History.Append(old)

	src := &fakeLobbySource{lobbies: map[int]*lobby.Lobby{0: l}}
	rolloverOnce(src, zap.NewNop())

	snap := l.History.Snapshot()
	require.Len(t, snap, 1)
	assert.Contains(t, snap[0].Text, "Date: ")
}

func TestRankRecomputeRunsImmediatelyAndOnCancel(t *testing.T) {
	st := store.NewMemStore()
	p := &model.Profile{Name: "solo", Points: 100}
	require.NoError(t, st.Profiles().Store(context.Background(), p))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RankRecompute(ctx, st, time.Hour, zap.NewNop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RankRecompute did not return after context cancellation")
	}

	got, err := st.Profiles().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rank)
}

func TestFetchWANIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(" 203.0.113.7 \n"))
	}))
	defer srv.Close()

	ip, err := fetchWANIP(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

type fakeWANTarget struct {
	ip      string
	started bool
}

func (f *fakeWANTarget) SetWANIP(ip string)        { f.ip = ip }
func (f *fakeWANTarget) SetStartedAt(time.Time)     { f.started = true }

func TestWANIPProbeUpdatesTargetOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("198.51.100.9"))
	}))
	defer srv.Close()

	target := &fakeWANTarget{}
	ctx, cancel := context.WithCancel(context.Background())
	requery := NewRequery()

	done := make(chan struct{})
	go func() {
		WANIPProbe(ctx, srv.URL, target, requery, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool { return target.ip == "198.51.100.9" }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestWANIPProbeNoURLReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		WANIPProbe(context.Background(), "", &fakeWANTarget{}, NewRequery(), zap.NewNop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WANIPProbe with empty url should return immediately")
	}
}
