package admin

import (
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/juce/fiveserver/internal/banlist"
	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/store"
	"github.com/juce/fiveserver/internal/tasks"
)

func newTestAdmin(t *testing.T) *Admin {
	t.Helper()

	srv := fiveserver.New(fiveserver.Config{MaxUsers: 100}, &banlist.List{}, store.NewMemStore(), zap.NewNop())

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(io.Discard), zap.NewAtomicLevelAt(zap.InfoLevel))
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	ring := NewLogRing(core, encoder)

	key := hex.EncodeToString([]byte("0123456789abcdef"))
	a, err := New(Config{
		Addr:         ":0",
		Username:     "op",
		Password:     "secret",
		CipherKeyHex: key,
	}, srv, srv.Store, &banlist.List{}, ring, zap.NewAtomicLevelAt(zap.InfoLevel), tasks.NewRequery(), zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestAdminRootRequiresAuth(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRootRejectsWrongCredentials(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.SetBasicAuth("op", "wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminRootAcceptsCorrectCredentials(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.SetBasicAuth("op", "secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminMaxUsersRoundTrip(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/maxusers", strings.NewReader(url.Values{"maxusers": {"42"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("op", "secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(42), a.server.MaxUsers())
}

func TestAdminMaxUsersIgnoresOutOfRangeValue(t *testing.T) {
	a := newTestAdmin(t)
	before := a.server.MaxUsers()

	req := httptest.NewRequest(http.MethodPost, "/maxusers", strings.NewReader(url.Values{"maxusers": {"99999"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("op", "secret")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, before, a.server.MaxUsers())
}

func TestAdminBanAddAndRemove(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	add, _ := http.NewRequest(http.MethodPost, ts.URL+"/ban-add", strings.NewReader(url.Values{"entry": {"203.0.113.0/24"}}.Encode()))
	add.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	add.SetBasicAuth("op", "secret")
	resp, err := http.DefaultClient.Do(add)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, a.banList.Contains(net.ParseIP("203.0.113.5")))

	rm, _ := http.NewRequest(http.MethodPost, ts.URL+"/ban-remove", strings.NewReader(url.Values{"entry": {"203.0.113.0/24"}}.Encode()))
	rm.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rm.SetBasicAuth("op", "secret")
	resp2, err := http.DefaultClient.Do(rm)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.False(t, a.banList.Contains(net.ParseIP("203.0.113.5")))
}

func TestAdminBanAddRejectsInvalidSpec(t *testing.T) {
	a := newTestAdmin(t)

	req := httptest.NewRequest(http.MethodPost, "/ban-add", strings.NewReader(url.Values{"entry": {"not-an-ip"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("op", "secret")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDebugTogglesLogLevel(t *testing.T) {
	a := newTestAdmin(t)

	post := httptest.NewRequest(http.MethodPost, "/debug", strings.NewReader(url.Values{"debug": {"1"}}.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.SetBasicAuth("op", "secret")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, post)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.logLevel.Enabled(zap.DebugLevel))
}

func TestAdminThrottleRejectsBurstTraffic(t *testing.T) {
	a := newTestAdmin(t)
	ts := httptest.NewServer(a.router)
	defer ts.Close()

	var lastStatus int
	for i := 0; i < 50; i++ {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
		req.SetBasicAuth("op", "secret")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		lastStatus = resp.StatusCode
		resp.Body.Close()
		if lastStatus == http.StatusTooManyRequests {
			break
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, lastStatus)
}

func TestAdminNewRejectsBadCipherKey(t *testing.T) {
	srv := fiveserver.New(fiveserver.Config{MaxUsers: 100}, &banlist.List{}, store.NewMemStore(), zap.NewNop())
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(io.Discard), zap.NewAtomicLevelAt(zap.InfoLevel))
	ring := NewLogRing(core, zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()))

	_, err := New(Config{Addr: ":0", CipherKeyHex: "not-hex"}, srv, srv.Store, &banlist.List{}, ring, zap.NewAtomicLevelAt(zap.InfoLevel), tasks.NewRequery(), zap.NewNop())
	assert.Error(t, err)
}
