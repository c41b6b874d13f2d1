package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
)

// SessionCookie is the cookie the login handler sets.
const SessionCookie = "jam_session"

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *bandsaw.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user, or nil on an unauthenticated
// (public) request.
func UserFrom(ctx context.Context) *bandsaw.User {
	u, _ := ctx.Value(userKey{}).(*bandsaw.User)
	return u
}

// Middleware authenticates API requests: a jam_session cookie or bearer
// token identifies a user; X-API-Key matching JAM_API_KEY acts as a
// service account. Write methods additionally require an editor role.
type Middleware struct {
	db  *database.DB
	cfg config.Config
	log *zap.SugaredLogger
}

func NewMiddleware(db *database.DB, cfg config.Config, log *zap.SugaredLogger) *Middleware {
	return &Middleware{db: db, cfg: cfg, log: log}
}

func isPublic(path string) bool {
	switch path {
	case "/health", "/api/auth/login", "/api/auth/logout":
		return true
	}
	return false
}

// Wrap is a mux-compatible middleware.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if key := r.Header.Get("X-API-Key"); key != "" {
			if m.cfg.APIKey == "" || key != m.cfg.APIKey {
				unauthorized(w, "Invalid API key")
				return
			}
			svc := &bandsaw.User{Name: "api-key", Role: bandsaw.RoleSuperadmin}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), svc)))
			return
		}

		token := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token == "" {
			unauthorized(w, "Not authenticated")
			return
		}

		claims, err := DecodeToken(m.cfg.JWTSecret, token)
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}
		id, err := claims.UserID()
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}
		user, err := m.db.GetUser(id)
		if err != nil {
			m.log.Errorw("Failed to load user", "id", id, "error", err)
			unauthorized(w, "Not authenticated")
			return
		}
		if user == nil {
			unauthorized(w, "Not authenticated")
			return
		}

		if !writeAllowed(user, r.Method) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func writeAllowed(u *bandsaw.User, method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return u.CanEdit()
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func forbidden(w http.ResponseWriter) {
	writeJSONError(w, http.StatusForbidden, "Forbidden")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

var Options = NewMiddleware
