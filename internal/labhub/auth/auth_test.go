package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testSecret = "unit-test-secret"

func mint(t *testing.T, secret, userID, role string, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	v := NewValidator(testSecret, time.Minute)
	claims, err := v.Parse(mint(t, testSecret, "user-1", "admin", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	v := NewValidator(testSecret, time.Minute)
	_, err := v.Parse(mint(t, "some-other-secret", "user-1", "user", time.Hour))
	require.Error(t, err)
}

func TestParseRejectsExpiredBeyondSkew(t *testing.T) {
	v := NewValidator(testSecret, time.Minute)
	_, err := v.Parse(mint(t, testSecret, "user-1", "user", -2*time.Minute))
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestClockSkewToleratesRecentExpiry(t *testing.T) {
	v := NewValidator(testSecret, 5*time.Minute)
	_, err := v.Parse(mint(t, testSecret, "user-1", "user", -time.Minute))
	require.NoError(t, err)
}

func TestMiddlewarePlacesIdentityOnContext(t *testing.T) {
	v := NewValidator(testSecret, time.Minute)
	var gotUser string
	var gotAdmin bool
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotAdmin = IsAdmin(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, testSecret, "user-7", "Admin", time.Hour))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", gotUser)
	assert.True(t, gotAdmin)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	v := NewValidator(testSecret, time.Minute)
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", gjson.Get(rec.Body.String(), "status").String())
}

func TestMiddlewareReportsExpiredToken(t *testing.T) {
	v := NewValidator(testSecret, time.Second)
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, testSecret, "user-1", "user", -time.Hour))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "message").String(), "expired")
}

func TestBearerFromRequest(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerFromRequest(req), tt.header)
	}
}
