// Package auth validates caller identity and proxies the credential
// endpoints to the backend. The gateway never stores passwords; it verifies
// the backend-issued bearer token and forwards everything else.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/httpx"
)

type contextKey string

const (
	tokenKey  contextKey = "bearerToken"
	userIDKey contextKey = "userID"
	adminKey  contextKey = "isAdmin"
)

// Claims are the token claims the gateway cares about. The backend signs
// tokens with HS256 and a shared secret.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens against the shared signing secret.
type Validator struct {
	secret    []byte
	clockSkew time.Duration
}

// NewValidator creates a token validator. clockSkew is the leeway applied to
// expiry checks to absorb clock drift between gateway and backend.
func NewValidator(secret string, clockSkew time.Duration) *Validator {
	return &Validator{secret: []byte(secret), clockSkew: clockSkew}
}

// Parse verifies the token signature and expiry and returns the claims.
func (v *Validator) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.clockSkew), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware extracts and verifies the bearer token, rejecting requests
// whose token is missing, malformed, or expired. The verified token, user
// id, and admin flag are placed on the request context.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := BearerFromRequest(r)
		if tokenStr == "" {
			httpx.SendError(r.Context(), w, httpx.ErrUnauthorized("missing bearer token"))
			return
		}

		claims, err := v.Parse(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				httpx.SendError(r.Context(), w, httpx.ErrUnauthorized("session expired, please log in again"))
				return
			}
			log.Ctx(r.Context()).Debug().Err(err).Msg("token validation failed")
			httpx.SendError(r.Context(), w, httpx.ErrUnauthorized("invalid bearer token"))
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, tokenKey, tokenStr)
		ctx = context.WithValue(ctx, userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, adminKey, strings.EqualFold(claims.Role, "admin"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin callers. It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			httpx.SendError(r.Context(), w, httpx.ErrForbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerFromRequest returns the bearer token from the Authorization header,
// or the empty string when none is present.
func BearerFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithIdentity returns a context carrying a verified identity. Handlers
// downstream of the middleware read identity through the accessors; tests
// and internal callers use this to establish one directly.
func WithIdentity(ctx context.Context, userID, token string, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, tokenKey, token)
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, adminKey, isAdmin)
}

// TokenFromContext returns the verified bearer token for the request.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// UserIDFromContext returns the authenticated user id for the request.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// IsAdmin reports whether the authenticated caller has the admin role.
func IsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(adminKey).(bool)
	return isAdmin
}
