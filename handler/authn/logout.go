package authn

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// LogoutHandler is an http.Handler
type LogoutHandler struct {
	log *zap.SugaredLogger
}

func (*LogoutHandler) Pattern() string {
	return "/api/auth/logout"
}

func (*LogoutHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewLogoutHandler builds a new LogoutHandler.
func NewLogoutHandler(log *zap.SugaredLogger) *LogoutHandler {
	return &LogoutHandler{
		log: log,
	}
}

// Log out
// @Summary Log out
// @Description Clear the session cookie
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/auth/logout [post]
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	util.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
