package admin

import (
	"github.com/julienschmidt/httprouter"
)

// buildRouter wires every admin.py-derived view behind the throttle +
// basic-auth middleware, with the client-facing /register endpoint left
// unauthenticated (register.py's RegistrationResource carries no admin
// credential check; it only checks the banned-IP list).
func (a *Admin) buildRouter() *httprouter.Router {
	r := httprouter.New()

	r.GET("/", a.admin(a.handleRoot))
	r.GET("/log", a.admin(a.handleLog))
	r.GET("/biglog", a.admin(a.handleLog))

	r.GET("/users", a.admin(a.handleUsers))
	r.GET("/users/online", a.admin(a.handleUsersOnline))

	r.GET("/profiles", a.admin(a.handleProfiles))
	r.GET("/profiles/:key", a.admin(a.handleProfile))

	r.GET("/stats", a.admin(a.handleStats))
	r.GET("/ps", a.admin(a.handlePS))

	r.GET("/maxusers", a.admin(a.handleMaxUsersGet))
	r.POST("/maxusers", a.admin(a.handleMaxUsersPost))

	r.GET("/debug", a.admin(a.handleDebugGet))
	r.POST("/debug", a.admin(a.handleDebugPost))

	r.GET("/settings", a.admin(a.handleSettingsGet))
	r.POST("/settings", a.admin(a.handleSettingsPost))

	r.GET("/banned", a.admin(a.handleBanned))
	r.POST("/ban-add", a.admin(a.handleBanAdd))
	r.POST("/ban-remove", a.admin(a.handleBanRemove))

	r.GET("/server-ip", a.admin(a.handleServerIPGet))
	r.POST("/server-ip", a.admin(a.handleServerIPPost))

	r.GET("/roster", a.admin(a.handleRoster))

	r.GET("/userlock", a.admin(a.handleUserLockForm))
	r.POST("/userlock", a.admin(a.handleUserLock))
	r.GET("/userkill", a.admin(a.handleUserKillForm))
	r.POST("/userkill", a.admin(a.handleUserKill))

	r.GET("/ban-add", a.admin(a.handleBanAddForm))
	r.GET("/ban-remove", a.admin(a.handleBanRemoveForm))

	r.POST("/register", a.throttle(a.handleRegister))

	return r
}
