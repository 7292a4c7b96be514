package admin

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/banlist"
)

// newNonce mints the reset nonce admin.py's lockUser assigns: an opaque
// token register.py's "modify existing" branch later looks up by exact
// match.
func newNonce() string {
	return uuid.Must(uuid.NewV4()).String()
}

// handleLog mirrors admin.py's LogResource: the last n lines of the
// structured log, n clamped to [10,5000] as the source does.
func (a *Admin) handleLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n := 30
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil {
		n = v
	}
	lines := a.ring.Tail(n)

	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Last %d lines of the log:\r\n", len(lines))
	fmt.Fprint(w, "===========================================\r\n")
	for _, line := range lines {
		fmt.Fprint(w, line)
	}
}

// handleMaxUsersGet/POST mirror admin.py's MaxUsersResource: a live
// capacity ceiling. A posted value that is not a number in [0,1000] is
// ignored and the current ceiling is kept.
func (a *Admin) handleMaxUsersGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("maxUsers").setAttr("value", strconv.Itoa(int(a.server.MaxUsers()))).setAttr("href", "/home")
	writeXML(w, root)
}

func (a *Admin) handleMaxUsersPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n := a.server.MaxUsers()
	if v, err := strconv.Atoi(r.FormValue("maxusers")); err == nil && v >= 0 && v <= 1000 {
		n = int32(v)
	}
	a.server.SetMaxUsers(n)
	root := newElement("maxUsers").setAttr("value", strconv.Itoa(int(n))).setAttr("href", "/home")
	writeXML(w, root)
}

// handleDebugGet/POST mirror admin.py's DebugResource, wired to the
// shared zap.AtomicLevel instead of a "Debug" bool + log.setDebug call.
func (a *Admin) handleDebugGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("debug").setAttr("enabled", strconv.FormatBool(a.logLevel.Enabled(zap.DebugLevel))).setAttr("href", "/home")
	writeXML(w, root)
}

func (a *Admin) handleDebugPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	switch r.FormValue("debug") {
	case "1", "true", "yes":
		a.logLevel.SetLevel(zap.DebugLevel)
	case "0", "false", "no":
		a.logLevel.SetLevel(zap.InfoLevel)
	}
	root := newElement("debug").setAttr("enabled", strconv.FormatBool(a.logLevel.Enabled(zap.DebugLevel))).setAttr("href", "/home")
	writeXML(w, root)
}

// handleSettingsGet/POST mirror admin.py's StoreSettingsResource.
func (a *Admin) handleSettingsGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("storeSettings").setAttr("enabled", strconv.FormatBool(a.server.StoreSettingsEnabled())).setAttr("href", "/home")
	writeXML(w, root)
}

func (a *Admin) handleSettingsPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	switch r.FormValue("store") {
	case "1", "true", "yes":
		a.server.SetStoreSettingsEnabled(true)
	case "0", "false", "no":
		a.server.SetStoreSettingsEnabled(false)
	}
	root := newElement("storeSettings").setAttr("enabled", strconv.FormatBool(a.server.StoreSettingsEnabled())).setAttr("href", "/home")
	writeXML(w, root)
}

// handleBanned mirrors admin.py's BannedResource: the compiled list's
// specs, each linked to a removal action.
func (a *Admin) handleBanned(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	specs := a.banList.Specs()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Raw < specs[j].Raw })

	root := newElement("banned").setAttr("href", "/home")
	list := root.addChild("list")
	for _, spec := range specs {
		list.addChild("entry").
			setAttr("spec", spec.Raw).
			setAttr("href", "/ban-remove?entry="+url.QueryEscape(spec.Raw))
	}
	root.addChild("add").setAttr("href", "/ban-add")
	writeXML(w, root)
}

// handleBanAdd mirrors admin.py's BanAddResource.render_POST: validate and
// append one new spec, recompiling the list atomically.
func (a *Admin) handleBanAdd(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entry := r.FormValue("entry")
	if entry == "" {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: missing entry parameter")
		return
	}
	if _, err := banlist.ParseSpec(entry); err != nil {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: invalid banned-list entry")
		return
	}

	specs := a.banList.Specs()
	lines := make([]string, 0, len(specs)+1)
	for _, s := range specs {
		if s.Raw == entry {
			writeXMLAccepted(w, "/banned")
			return
		}
		lines = append(lines, s.Raw)
	}
	lines = append(lines, entry)

	if err := a.banList.Compile(lines); err != nil {
		a.renderError(w, err)
		return
	}
	writeXMLAccepted(w, "/banned")
}

// handleBanRemove mirrors admin.py's BanRemoveResource.render_POST.
func (a *Admin) handleBanRemove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entry := r.FormValue("entry")
	specs := a.banList.Specs()
	lines := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Raw != entry {
			lines = append(lines, s.Raw)
		}
	}
	if err := a.banList.Compile(lines); err != nil {
		a.renderError(w, err)
		return
	}
	writeXMLAccepted(w, "/banned")
}

func writeXMLAccepted(w http.ResponseWriter, href string) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `%s<actionAccepted href=%q/>`, xmlHeader, href)
}

// handleServerIPGet/POST mirror admin.py's ServerIpResource: report the
// discovered WAN IP, or kick off an out-of-band requery.
func (a *Admin) handleServerIPGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("serverIP").setAttr("value", a.server.WANIP()).setAttr("href", "/home")
	writeXML(w, root)
}

func (a *Admin) handleServerIPPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	select {
	case a.requery <- struct{}{}:
	default:
	}
	root := newElement("serverIP-requery").setAttr("started", "true").setAttr("href", "/home")
	writeXML(w, root)
}

// handleUserLock mirrors admin.py's UserLockResource: locking a user sets
// a fresh reset nonce on their account, the same precondition register.py
// checks before letting a /register POST re-bind it.
func (a *Admin) handleUserLock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	username := r.FormValue("username")
	if username == "" {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: username parameter missing")
		return
	}
	u, err := a.store.Users().FindByUsername(r.Context(), username)
	if err != nil {
		writeXMLResult(w, http.StatusNotFound, "ERROR: unknown username")
		return
	}
	u.ResetNonce = newNonce()
	if err := a.store.Users().Store(r.Context(), u); err != nil {
		a.renderError(w, err)
		return
	}
	root := newElement("userLocked").setAttr("username", username).setAttr("href", "/home")
	root.addChild("unlock").setAttr("href", "/modifyUser/"+u.ResetNonce)
	writeXML(w, root)
}

// handleUserKill mirrors admin.py's UserKillResource: soft-deletes the
// account (spec.md §3's Deleted flag), leaving it recoverable.
func (a *Admin) handleUserKill(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	username := r.FormValue("username")
	if username == "" {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: username parameter missing")
		return
	}
	u, err := a.store.Users().FindByUsername(r.Context(), username)
	if err != nil {
		writeXMLResult(w, http.StatusNotFound, "ERROR: unknown username")
		return
	}
	if err := a.store.Users().Delete(r.Context(), u.ID); err != nil {
		a.renderError(w, err)
		return
	}
	root := newElement("userDeleted").setAttr("username", username).setAttr("href", "/home")
	writeXML(w, root)
}

// handleRoster mirrors admin.py's RosterResource: the roster-hash
// enforcement knobs, stored per-lobby rather than as one global pair
// (this server's Lobby.CheckRosterHash is already per-lobby; CompareHash
// stays the one process-wide flag the source also treats globally).
func (a *Admin) handleRoster(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("roster").setAttr("href", "/home").setAttr("compareHash", strconv.FormatBool(a.server.Config.CompareHash))
	for idx, l := range a.server.Lobbies() {
		root.addChild("lobby").setAttr("index", strconv.Itoa(idx)).setAttr("checkRosterHash", strconv.FormatBool(l.CheckRosterHash))
	}
	writeXML(w, root)
}

// handlePS mirrors admin.py's ProcessInfoResource, grounded in Go's own
// runtime introspection (no psutil equivalent in the pack; runtime and
// runtime/debug are the stdlib's answer, justified in DESIGN.md) rather
// than shelling out to `ps`.
func (a *Admin) handlePS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("processInfo").setAttr("href", "/home")
	uptime := root.addChild("uptime")
	uptime.setAttr("since", a.started.Format(time.RFC3339))
	uptime.setAttr("up", time.Since(a.started).String())

	stats := root.addChild("stats")
	stats.setAttr("goroutines", strconv.Itoa(runtime.NumGoroutine()))
	stats.setAttr("onlineUsers", strconv.Itoa(a.server.OnlineCount()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.setAttr("heapMB", fmt.Sprintf("%.1f", float64(memStats.HeapAlloc)/1024.0/1024.0))

	lobbiesElem := root.addChild("lobbies")
	for idx, l := range a.server.Lobbies() {
		lobbiesElem.addChild("lobby").setAttr("index", strconv.Itoa(idx)).setAttr("players", strconv.Itoa(l.PlayerCount()))
	}
	writeXML(w, root)
}

// The handful of plain HTML forms admin.py serves on GET for its POST
// actions (UserLockResource, UserKillResource, BanAddResource,
// BanRemoveResource), reproduced verbatim in shape since they're purely
// an operator convenience with no XML/business logic of their own.

func (a *Admin) handleUserLockForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeHTMLForm(w, "Enter the username to lock:", "/userlock", "username", "", "lock")
}

func (a *Admin) handleUserKillForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeHTMLForm(w, "Enter the username to delete:", "/userkill", "username", "", "delete")
}

func (a *Admin) handleBanAddForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeHTMLForm(w, "New entry to add to the banned list:", "/ban-add", "entry", r.URL.Query().Get("entry"), "add")
}

func (a *Admin) handleBanRemoveForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeHTMLForm(w, "Remove this entry from the banned list:", "/ban-remove", "entry", r.URL.Query().Get("entry"), "remove")
}

func writeHTMLForm(w http.ResponseWriter, heading, action, field, value, submitLabel string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><head><title>FiveServer Admin Service</title></head><body>
<h3>%s</h3>
<form action="%s" method="POST">
<input name="%s" value="%s" type="text" size="40"/>
<input value="%s" type="submit"/>
</form>
</body></html>`, heading, action, field, value, submitLabel)
}
