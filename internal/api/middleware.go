// Package api implements the Flipdesk REST API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthSettings configures AuthMiddleware.
type AuthSettings struct {
	Mode      string
	Token     string
	JWTSecret string
	JWTIssuer string
}

type subjectKey struct{}

// Subject returns the authenticated caller recorded by AuthMiddleware, or "".
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// AuthMiddleware returns middleware that validates the Bearer credential.
// In disabled mode all requests pass through. Token mode compares against a
// static token; jwt mode verifies an HS256 JWT and records its subject.
func AuthMiddleware(a AuthSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.Mode == "" || a.Mode == AuthDisabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			cred := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			switch a.Mode {
			case AuthToken:
				if subtle.ConstantTimeCompare([]byte(cred), []byte(a.Token)) != 1 {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, "token")))
			case AuthJWT:
				sub, err := verifyJWT(cred, a.JWTSecret, a.JWTIssuer)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub)))
			default:
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			}
		})
	}
}

// verifyJWT checks signature, expiry and issuer and returns the subject.
func verifyJWT(raw, secret, issuer string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
