// Package middleware implements the HTTP-facing half of auth & identity
// (C3): extracting and validating the bearer token on every job API
// request and populating the request context with the resolved claims.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sparkjar/crew-orchestrator/internal/modules/auth/utils"
)

type contextKey string

const (
	ctxKeySubject      contextKey = "sub"
	ctxKeyScopes       contextKey = "scopes"
	ctxKeyClientUserID contextKey = "client_user_id"
	ctxKeyActorType    contextKey = "actor_type"
	ctxKeyActorID      contextKey = "actor_id"
)

// AuthMiddleware validates JWT tokens and sets identity context for
// every job API request, per §4.3 and §6.1.
type AuthMiddleware struct {
	jwtService *utils.JWTService
}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{jwtService: utils.NewJWTService()}
}

var publicRoutes = map[string]bool{
	"/health": true,
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicRoutes[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySubject, claims.Subject)
		ctx = context.WithValue(ctx, ctxKeyScopes, claims.Scopes)
		ctx = context.WithValue(ctx, ctxKeyClientUserID, claims.ClientUserID)
		ctx = context.WithValue(ctx, ctxKeyActorType, claims.ActorType)
		ctx = context.WithValue(ctx, ctxKeyActorID, claims.ActorID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope wraps a handler so it 403s unless the resolved claims
// carry the given scope. No route in this repository is wrapped with
// it; the cancel handler checks its scope itself.
func (m *AuthMiddleware) RequireScope(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scopes, _ := ScopesFromContext(r.Context())
		for _, s := range scopes {
			if s == scope {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "missing required scope: "+scope, http.StatusForbidden)
	})
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeySubject).(string)
	return v, ok
}

func ScopesFromContext(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(ctxKeyScopes).([]string)
	return v, ok
}

func ClientUserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyClientUserID).(string)
	return v, ok
}

func ActorFromContext(ctx context.Context) (actorType, actorID string) {
	actorType, _ = ctx.Value(ctxKeyActorType).(string)
	actorID, _ = ctx.Value(ctxKeyActorID).(string)
	return
}
