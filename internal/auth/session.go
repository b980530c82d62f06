// Package auth verifies sessions minted by the external identity provider.
// The service never handles passwords or login flows; it only checks the
// bearer token on each request and exposes the resulting session through
// the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Session identifies the authenticated user for the duration of a request.
type Session struct {
	UserID string
	Email  string
}

// Verifier checks HS256 tokens signed with the shared secret the identity
// provider uses.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token, returning the session it carries.
// The subject claim is the user id.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: c.Subject, Email: c.Email}, nil
}

type contextKey struct{}

// FromRequest extracts and verifies the Authorization bearer token.
func (v *Verifier) FromRequest(r *http.Request) (Session, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Session{}, ErrNoToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Session{}, ErrNoToken
	}
	return v.Verify(strings.TrimSpace(tokenString))
}

// Middleware rejects unauthenticated requests and stores the session in the
// request context for downstream handlers.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := v.FromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by Middleware, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
