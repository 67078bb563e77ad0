// Package middleware attributes requests to the person making them.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// actorKey is the context key for storing the acting person.
const actorKey ContextKey = "actor"

// Headers consulted when no bearer token is sent
const (
	HeaderActorEmail = "X-Actor-Email"
	HeaderActorName  = "X-Actor-Name"
)

var validate = validator.New()

// AnonymousEmail attributes changes made without any identity
const AnonymousEmail = "anonymous@handshake.com"

// Identity is who a change is attributed to
type Identity struct {
	Email string
	Name  string
}

// TokenValidator is an interface for validating bearer tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (IdentityGetter, error)
}

// IdentityGetter is an interface for extracting the actor from token claims.
type IdentityGetter interface {
	GetIdentity() Identity
}

// ActorMiddleware resolves the actor of each request. A bearer token, when
// present, must validate; without one the actor headers are trusted, and
// without those the request is anonymous. A nil validator rejects every
// bearer token.
func ActorMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := resolve(r, validator)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid bearer token"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func resolve(r *http.Request, validator TokenValidator) (Identity, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Handle case-insensitive "Bearer" prefix
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || validator == nil {
			return Identity{}, false
		}
		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			return Identity{}, false
		}
		identity := claims.GetIdentity()
		identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
		if identity.Email == "" {
			return Identity{}, false
		}
		return identity, true
	}

	email := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorEmail)))
	if err := validate.Var(email, "required,email"); err != nil {
		return Identity{Email: AnonymousEmail}, true
	}
	return Identity{Email: email, Name: strings.TrimSpace(r.Header.Get(HeaderActorName))}, true
}

// WithIdentity stores the actor on ctx
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, actorKey, identity)
}

// GetIdentity returns the actor of the request, anonymous when none was resolved
func GetIdentity(r *http.Request) Identity {
	if identity, ok := r.Context().Value(actorKey).(Identity); ok {
		return identity
	}
	return Identity{Email: AnonymousEmail}
}
