package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN AUTHENTICATION
// There is a single operator account configured through the environment.
// Login checks the bcrypt hash and issues a short-lived HS256 token.
// ══════════════════════════════════════════════════════════════════════════════

const (
	tokenIssuer = "rada.ke"
	roleAdmin   = "admin"
)

var (
	// ErrInvalidCredentials is returned by Login for a wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken is returned for missing, malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrAuthDisabled is returned when no admin account is configured.
	ErrAuthDisabled = errors.New("auth: admin login is not configured")
)

// AdminClaims is the token payload.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth issues and verifies admin tokens.
type AdminAuth struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAdminAuth creates an authenticator. passwordHash is a bcrypt hash.
func NewAdminAuth(username, passwordHash, secret string, ttl time.Duration) *AdminAuth {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AdminAuth{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Enabled reports whether an account and signing secret are configured.
func (a *AdminAuth) Enabled() bool {
	return a != nil && a.username != "" && len(a.passwordHash) > 0 && len(a.secret) > 0
}

// Login verifies the credentials and returns a signed token.
func (a *AdminAuth) Login(username, password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	// Compare the hash even for an unknown username so both paths cost the same.
	hashErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if username != a.username || hashErr != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := AdminClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify parses a token and checks its signature, expiry and role.
func (a *AdminAuth) Verify(token string) (*AdminClaims, error) {
	if !a.Enabled() {
		return nil, ErrAuthDisabled
	}
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid || claims.Role != roleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type adminKey struct{}

// AdminFromContext returns the authenticated admin's name.
func AdminFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(adminKey{}).(string)
	return name, ok
}

// Middleware rejects requests without a valid bearer token. deny writes the
// rejection so the caller controls the response envelope.
func (a *AdminAuth) Middleware(deny func(w http.ResponseWriter, r *http.Request, err error)) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				deny(w, r, ErrInvalidToken)
				return
			}
			claims, err := a.Verify(token)
			if err != nil {
				deny(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), adminKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
