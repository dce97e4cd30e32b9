// Package auth identifies the shopper behind a request: a customer holding a
// bearer token from the identity provider, or an anonymous visitor tracked
// by a cookie.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront-service/internal/config"
)

const anonymousPrefix = "anon:"

const anonCookieMaxAge = 30 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	ErrNoIdentity   = errors.New("auth: no identity in request context")
)

// Identity is the shopper a request acts for. Subject is the token subject,
// or "anon:<uuid>" for anonymous visitors.
type Identity struct {
	Subject   string
	Anonymous bool
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// Authenticator verifies HS256 bearer tokens and issues anonymous cookies.
type Authenticator struct {
	secret     []byte
	issuer     string
	cookieName string
	logger     *log.Logger
}

func NewAuthenticator(cfg config.AuthConfig, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "storefront_anon"
	}
	return &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		cookieName: cookieName,
		logger:     logger,
	}
}

// IssueToken signs a token for subject. The identity provider normally does
// this; the storefront uses it for fixtures and tests.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken validates tokenString and returns its subject.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || strings.HasPrefix(claims.Subject, anonymousPrefix) {
		return "", fmt.Errorf("%w: unusable subject %q", ErrInvalidToken, claims.Subject)
	}
	return claims.Subject, nil
}

// Middleware attaches an Identity to every request. A bearer token must be
// valid; without one the visitor is anonymous and gets a cookie on first visit.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeUnauthorized(w, "Authorization header must use the Bearer scheme")
				return
			}
			subject, err := a.ParseToken(strings.TrimSpace(tokenString))
			if err != nil {
				a.logger.Printf("WARN: Rejected bearer token: %v", err)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{Subject: subject})))
			return
		}

		visitor := a.anonymousID(w, r)
		id := Identity{Subject: anonymousPrefix + visitor, Anonymous: true}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *Authenticator) anonymousID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(a.cookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			return parsed.String()
		}
	}
	visitor := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    visitor,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return visitor
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
