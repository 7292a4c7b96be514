package admin

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/rating"
	"github.com/juce/fiveserver/internal/session"
)

const defaultPageLimit = 30

func pageArgs(r *http.Request) (offset, limit int) {
	offset, limit = 0, defaultPageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	return offset, limit
}

func writeXML(w http.ResponseWriter, e *element) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, e.toXML())
}

// handleRoot mirrors admin.py's AdminRootResource: a directory of every
// admin endpoint, with the server's version/WAN-IP and a couple of live
// settings surfaced as attributes.
func (a *Admin) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("adminService").setAttr("version", "1.0")
	root.addChild("server").setAttr("version", a.server.Config.Version).setAttr("ip", a.server.WANIP())
	root.addChild("log").setAttr("href", "/log")
	root.addChild("biglog").setAttr("href", "/log?n=5000")
	root.addChild("users").setAttr("href", "/users")
	root.addChild("profiles").setAttr("href", "/profiles")
	root.addChild("onlineUsers").setAttr("href", "/users/online")
	root.addChild("stats").setAttr("href", "/stats")
	root.addChild("userlock").setAttr("href", "/userlock")
	root.addChild("userkill").setAttr("href", "/userkill")
	root.addChild("maxusers").setAttr("value", strconv.Itoa(int(a.server.MaxUsers()))).setAttr("href", "/maxusers")
	root.addChild("roster").setAttr("href", "/roster")
	root.addChild("banned").setAttr("href", "/banned")
	root.addChild("server-ip").setAttr("href", "/server-ip")
	root.addChild("processInfo").setAttr("href", "/ps")
	writeXML(w, root)
}

// handleUsers mirrors admin.py's UsersResource: a paginated listing of
// every registered user, flagging locked (nonce-pending) accounts.
func (a *Admin) handleUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	offset, limit := pageArgs(r)
	total, users, err := a.store.Users().Browse(r.Context(), offset, limit)
	if err != nil {
		a.renderError(w, err)
		return
	}

	root := newElement("users").setAttr("href", "/home").setAttr("total", strconv.Itoa(total))
	for _, u := range users {
		e := root.addChild("user").setAttr("username", u.Username)
		if u.Locked() {
			e.setAttr("locked", "yes").setAttr("href", "/modifyUser/"+u.ResetNonce)
		}
	}
	root.addChild("next").setAttr("href", fmt.Sprintf("/users?offset=%d&limit=%d", offset+limit, limit))
	writeXML(w, root)
}

// handleUsersOnline mirrors admin.py's UsersOnlineResource, reading live
// session state (profile name, lobby, remote IP) straight off the
// *session.Session behind each online connection's fiveserver.Sender, the
// same direct-field-access idiom admin.py uses on its connection objects.
func (a *Admin) handleUsersOnline(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	online := a.server.OnlineUsers()

	keys := make([]string, 0, len(online))
	for k := range online {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := newElement("users").setAttr("href", "/home").setAttr("count", strconv.Itoa(len(online)))
	for _, hash := range keys {
		e := root.addChild("user").setAttr("key", hash)
		sess, ok := online[hash].(*session.Session)
		if !ok {
			continue
		}
		if ip := sess.RemoteIP(); ip != nil {
			e.setAttr("ip", ip.String())
		}
		if l := a.server.Lobby(sess.LobbyIndex); l != nil {
			e.setAttr("lobby", l.DisplayName)
		}
		if p, err := a.store.Profiles().Get(r.Context(), sess.ProfileID); err == nil {
			e.setAttr("profile", p.Name)
		}
	}
	writeXML(w, root)
}

// handleProfiles mirrors admin.py's ProfilesResource list branch.
func (a *Admin) handleProfiles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	offset, limit := pageArgs(r)
	total, profiles, err := a.store.Profiles().Browse(r.Context(), offset, limit)
	if err != nil {
		a.renderError(w, err)
		return
	}

	root := newElement("profiles").setAttr("href", "/home").setAttr("total", strconv.Itoa(total))
	for _, p := range profiles {
		root.addChild("profile").setAttr("name", p.Name).setAttr("href", fmt.Sprintf("/profiles/%d", p.ID))
	}
	root.addChild("next").setAttr("href", fmt.Sprintf("/profiles?offset=%d&limit=%d", offset+limit, limit))
	writeXML(w, root)
}

// handleProfile mirrors admin.py's ProfilesResource detail branch: the
// path segment is tried as a numeric id first, falling back to a name
// lookup on ValueError ("try: profile_id = int(profile_name) ... except
// ValueError: ... getFullProfileInfoByName").
func (a *Admin) handleProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")

	var p *model.Profile
	var err error
	if id, convErr := strconv.ParseInt(key, 10, 64); convErr == nil {
		p, err = a.store.Profiles().Get(r.Context(), id)
	} else {
		p, err = a.store.Profiles().GetByName(r.Context(), key)
	}
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderProfile(w, r, p)
}

// renderProfile mirrors admin.py's _renderProfileInfo: the profile's
// stored fields plus its derived Stats (wins/losses/draws/goals/streaks)
// and a couple of computed percentages.
func (a *Admin) renderProfile(w http.ResponseWriter, r *http.Request, p *model.Profile) {
	stats, err := a.store.Matches().Stats(r.Context(), p.ID)
	if err != nil {
		a.renderError(w, err)
		return
	}

	root := newElement("profile").setAttr("href", "/profiles").
		setAttr("name", p.Name).setAttr("id", strconv.FormatInt(p.ID, 10))
	root.addChild("rank").setText(strconv.Itoa(p.Rank))
	root.addChild("favPlayerId").setText(strconv.Itoa(int(p.FavouritePlayerID)))
	root.addChild("favTeam").setText(strconv.Itoa(int(p.FavouriteTeamID)))
	root.addChild("points").setText(strconv.Itoa(p.Points))
	root.addChild("division").setText(strconv.Itoa(rating.Division(p.Points)))
	root.addChild("disconnects").setText(strconv.Itoa(p.Disconnects))
	root.addChild("playTime").setText(p.PlayTime.String())

	games := stats.Games()
	root.addChild("games").setText(strconv.Itoa(games))
	root.addChild("wins").setText(strconv.Itoa(stats.Wins))
	root.addChild("draws").setText(strconv.Itoa(stats.Draws))
	root.addChild("losses").setText(strconv.Itoa(stats.Losses))
	root.addChild("goalsScored").setText(strconv.Itoa(stats.GoalsScored))
	root.addChild("goalsAllowed").setText(strconv.Itoa(stats.GoalsAllowed))
	root.addChild("winningStreakCurrent").setText(strconv.Itoa(stats.CurrentStreak))
	root.addChild("winningStreakBest").setText(strconv.Itoa(stats.BestStreak))

	var winPct, avgScored, avgConceded float64
	if games > 0 {
		winPct = float64(stats.Wins) / float64(games) * 100
		avgScored = float64(stats.GoalsScored) / float64(games)
		avgConceded = float64(stats.GoalsAllowed) / float64(games)
	}
	root.addChild("winningPct").setText(fmt.Sprintf("%.1f%%", winPct))
	root.addChild("goalsScoredAverage").setText(fmt.Sprintf("%.2f", avgScored))
	root.addChild("goalsAllowedAverage").setText(fmt.Sprintf("%.2f", avgConceded))

	writeXML(w, root)
}

func (a *Admin) renderError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusInternalServerError)
	a.logger.Warn("admin request failed", zap.Error(err))
	fmt.Fprintf(w, `%s<error text="server error"><details>%s</details></error>`, xmlHeader, err.Error())
}

// handleStats mirrors admin.py's StatsResource: per-lobby player/room
// counts and, when a lobby opts in (ShowMatches), a live match digest.
func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	root := newElement("stats").setAttr("href", "/home").setAttr("playerCount", strconv.Itoa(a.server.OnlineCount()))

	lobbies := a.server.Lobbies()
	indexes := make([]int, 0, len(lobbies))
	for idx := range lobbies {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	lobbiesElem := root.addChild("lobbies").setAttr("count", strconv.Itoa(len(lobbies)))
	for _, idx := range indexes {
		l := lobbies[idx]
		rooms := l.Rooms()

		lobbyElem := lobbiesElem.addChild("lobby").
			setAttr("name", l.DisplayName).
			setAttr("playerCount", strconv.Itoa(l.PlayerCount())).
			setAttr("roomCount", strconv.Itoa(len(rooms))).
			setAttr("showMatches", strconv.FormatBool(l.ShowMatches)).
			setAttr("checkRosterHash", strconv.FormatBool(l.CheckRosterHash))

		inProgress := 0
		for _, room := range rooms {
			if room.Match != nil {
				inProgress++
			}
		}
		lobbyElem.setAttr("matchesInProgress", strconv.Itoa(inProgress))

		if inProgress > 0 && l.ShowMatches {
			matchesElem := lobbyElem.addChild("matches")
			for _, room := range rooms {
				if room.Match == nil {
					continue
				}
				matchesElem.addChild("match").setAttr("roomName", room.Name)
			}
		}
	}
	writeXML(w, root)
}
