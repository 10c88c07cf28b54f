package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicore/surgical-ops/internal/audit"
)

type contextKey string

const actorKey contextKey = "staffActor"

// StaffClaims carries the authenticated staff member's identity and role.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StaffJWT enforces an HMAC-signed JWT on clinical endpoints and places the
// acting staff member into the request context.
func StaffJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "staff auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := StaffClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			actor := audit.Actor{ID: claims.Subject, Role: claims.Role}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated staff actor if present.
func ActorFromContext(ctx context.Context) (audit.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(audit.Actor)
	return actor, ok
}

// ActorFromRequest resolves the acting staff member: JWT claims when staff
// auth is enabled, X-Actor-Id/X-Actor-Role headers otherwise (development).
func ActorFromRequest(r *http.Request) (audit.Actor, bool) {
	if actor, ok := ActorFromContext(r.Context()); ok && actor.ID != "" {
		return actor, true
	}
	id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
	role := strings.TrimSpace(r.Header.Get("X-Actor-Role"))
	if id == "" {
		return audit.Actor{}, false
	}
	return audit.Actor{ID: id, Role: role}, true
}
