package auth

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/ecanov/bienestar-api/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key like
// "user", any package that knows the string can read or shadow the value.
// A package-private type makes collisions impossible: only this package
// can create a key of type contextKey.
type contextKey string

const userKey contextKey = "user"

// SubjectResolver maps a token subject claim back to a live user.
//
// The subject was populated from whichever of username/email was set at
// issuance time, so implementations must try the username lookup first
// and fall back to email, exactly like password login does.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, subject string) (*model.User, error)
}

// RequireAuth is the middleware guarding every protected route.
//
// It reads the JWT from the "Authorization: Bearer <token>" header,
// validates it, resolves the subject claim to a user, and stores the user
// in the request context. Any failure (missing header, bad signature,
// expired token, subject matching no user) produces the same 401 with the
// same body: the response never explains which check failed.
//
// This gate fails closed. A panic in a downstream handler is the router's
// Recoverer's problem; a panic here would take out every protected
// request, so the only code in this path is token parsing and one
// database lookup, both of which return errors instead of panicking.
func RequireAuth(tokens *TokenService, users SubjectResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveRequestUser(r, tokens, users)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":"unauthorized","message":"valid authentication required"}`)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request
// context.
//
// Returns (nil, false) if the request never passed RequireAuth. Handlers
// on protected routes can rely on ok being true, but checking it anyway
// costs nothing and turns a wiring mistake into a 401 instead of a nil
// dereference.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// resolveRequestUser extracts the bearer token, validates it, and resolves
// the subject to a user. Shared failure path for all the ways a request
// can be unauthorized.
func resolveRequestUser(r *http.Request, tokens *TokenService, users SubjectResolver) (*model.User, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, ErrInvalidToken
	}

	subject, err := tokens.Validate(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return nil, err
	}

	return users.ResolveSubject(r.Context(), subject)
}
