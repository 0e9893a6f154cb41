package auth

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// Middleware provides HTTP middleware for authentication and authorization.
type Middleware struct {
	sessions *scs.SessionManager
	users    *store.UserStore
	logger   *zap.Logger
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(sm *scs.SessionManager, us *store.UserStore, logger *zap.Logger) *Middleware {
	return &Middleware{sessions: sm, users: us, logger: logger}
}

// RequireAuth redirects to /auth/login if no valid session exists.
// On success, sets the *store.User on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.sessionUser(r)
		if user == nil {
			http.Redirect(w, r, "/auth/login?redirect="+r.URL.RequestURI(), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Viewer sets the session user on the context, or the anonymous account when
// there is no session. Block decisions always have an account to check.
func (m *Middleware) Viewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.sessionUser(r)
		if user == nil {
			anon, err := m.users.Anonymous(r.Context())
			if err != nil {
				m.logger.Error("load anonymous account", zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			user = anon
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireRole returns a middleware that requires the user to have the given role.
// Must be used after RequireAuth.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || user.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionUser returns the logged-in user or nil. A session pointing at a
// deleted user is destroyed.
func (m *Middleware) sessionUser(r *http.Request) *store.User {
	userID := m.sessions.GetString(r.Context(), SessionUserIDKey)
	if userID == "" {
		return nil
	}
	user, err := m.users.GetByID(r.Context(), userID)
	if err != nil {
		m.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		_ = m.sessions.Destroy(r.Context())
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserContextKey).(*store.User)
	return u
}
