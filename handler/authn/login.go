package authn

import (
	"encoding/json"
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// cookieMaxAge matches the token expiry.
const cookieMaxAge = 7 * 24 * 60 * 60

// LoginHandler is an http.Handler
type LoginHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
	cfg config.Config
}

func (*LoginHandler) Pattern() string {
	return "/api/auth/login"
}

func (*LoginHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewLoginHandler builds a new LoginHandler.
func NewLoginHandler(log *zap.SugaredLogger, db *database.DB, cfg config.Config) *LoginHandler {
	return &LoginHandler{
		log: log,
		db:  db,
		cfg: cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Log in
// @Summary Log in
// @Description Verify credentials and set the session cookie
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.User
// @Router /api/auth/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		util.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.CreateToken(h.cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		h.log.Errorw("Failed to create session token", "error", err)
		util.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Infow("User logged in", "email", user.Email)
	util.WriteJSON(w, http.StatusOK, user)
}
