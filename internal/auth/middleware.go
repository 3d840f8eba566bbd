package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/rbac"
)

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Middleware requires a valid bearer token and stores its user in the
// request context.
func (s *Service) Middleware(users UserStore, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				fail(w, r, ErrMissingToken)
				return
			}
			u, err := s.Authenticate(r.Context(), users, token)
			if err != nil {
				if errors.Is(err, model.ErrUnauthorized) {
					w.Header().Set("WWW-Authenticate", "Bearer")
				} else {
					slog.Error("failed to authenticate request", "error", err)
				}
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), u)))
		})
	}
}

// Require rejects requests whose user role lacks perm. Ownership is
// checked by the handler once the resource is loaded.
func Require(perm rbac.Permission, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := model.UserFromContext(r.Context())
			if u == nil {
				fail(w, r, ErrMissingToken)
				return
			}
			if !rbac.Has(u.Role, perm) {
				fail(w, r, model.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
