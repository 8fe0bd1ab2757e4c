package api

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Level is the access level a bearer token resolves to (spec.md §6).
type Level int

const (
	LevelRestricted Level = iota // no or invalid token
	LevelRead                    // valid token: GETs and group switch
	LevelFull                    // valid token whose role permits mutation
)

// AuthError covers a missing, malformed, or rejected bearer token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Authenticator resolves a bearer token to an access Level. Two forms are
// accepted: a shared static token (always LevelFull), or, when a JWT secret
// is configured, an HS256 token carrying a "role" claim of "read" or "full".
type Authenticator struct {
	staticToken string
	jwtSecret   []byte
}

// NewAuthenticator builds an Authenticator. jwtSecret may be nil/empty to
// disable JWT support entirely (static-token mode, the spec's baseline).
func NewAuthenticator(staticToken string, jwtSecret []byte) *Authenticator {
	return &Authenticator{staticToken: staticToken, jwtSecret: jwtSecret}
}

// Authorize extracts and validates the bearer token from an Authorization
// header value ("Bearer <token>"), returning the resolved access level.
func (a *Authenticator) Authorize(authHeader string) (Level, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return LevelRestricted, &AuthError{Message: "missing or malformed bearer token"}
	}

	if a.staticToken != "" && token == a.staticToken {
		return LevelFull, nil
	}

	if len(a.jwtSecret) == 0 {
		return LevelRestricted, &AuthError{Message: "invalid bearer token"}
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return LevelRestricted, &AuthError{Message: "invalid bearer token"}
	}

	switch role, _ := claims["role"].(string); role {
	case "full":
		return LevelFull, nil
	case "read":
		return LevelRead, nil
	default:
		return LevelRestricted, &AuthError{Message: "token carries no recognized role claim"}
	}
}
