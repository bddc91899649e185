package auth

import (
	"context"
	"net/http"

	"reflection-portal/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// RequireUser guards the data pages: requests without a valid session are
// redirected to the login view; everything else proceeds with the current
// user attached to the request context.
func (s *Sessions) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.UserFromRequest(r)
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromRequest reads and verifies the session cookie, returning nil when
// the request is unauthenticated.
func (s *Sessions) UserFromRequest(r *http.Request) *models.User {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := s.Parse(cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// CurrentUser returns the user RequireUser attached to the context, or nil.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
