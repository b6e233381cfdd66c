// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	fbout "sneakhead/internal/adapters/out/firebase"
	"sneakhead/internal/application/session"
	userdom "sneakhead/internal/domain/user"
)

// TokenVerifier checks a bearer ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (fbout.Claims, error)
}

// AuthMiddleware verifies "Authorization: Bearer <ID_TOKEN>" and stores the
// caller as a user.Session in the request context.
type AuthMiddleware struct {
	Tokens TokenVerifier
	Log    *zap.Logger
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Tokens == nil {
			writeError(w, http.StatusServiceUnavailable, "auth middleware not initialized")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized: missing bearer token")
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized: empty bearer token")
			return
		}

		claims, err := m.Tokens.Verify(r.Context(), idToken)
		if err != nil {
			if m.Log != nil {
				m.Log.Debug("[auth] token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			}
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		s := userdom.Session{UserID: claims.UID, Email: claims.Email, IDToken: idToken}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

// CurrentSession returns the caller verified by AuthMiddleware.
func CurrentSession(r *http.Request) (userdom.Session, bool) {
	return session.FromContext(r.Context())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"ok":false,"message":"` + msg + `"}`))
}
