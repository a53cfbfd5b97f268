package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, accountNumber string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_number": accountNumber,
		"exp":            exp.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func authedHandler(t *testing.T, wantAccount string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountNumber(r.Context())
		assert.True(t, ok)
		assert.Equal(t, wantAccount, account)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	InitAuthMiddleware(&config.JWTConfig{SecretKey: testSecret, ExpiryHours: 24}, redisClient)

	t.Run("valid token passes and sets account", func(t *testing.T) {
		token := signToken(t, testSecret, "1234567890", time.Now().Add(time.Hour))
		redisMock.ExpectExists("blacklist:" + token).SetVal(0)

		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "1234567890")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, "1234567890", time.Now().Add(-time.Hour))
		redisMock.ExpectExists("blacklist:" + token).SetVal(0)

		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, "other-secret", "1234567890", time.Now().Add(time.Hour))
		redisMock.ExpectExists("blacklist:" + token).SetVal(0)

		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		token := signToken(t, testSecret, "1234567890", time.Now().Add(time.Hour))
		redisMock.ExpectExists("blacklist:" + token).SetVal(1)

		req := httptest.NewRequest("GET", "/accounts/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(authedHandler(t, "")).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminOnly(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	InitAuthMiddleware(&config.JWTConfig{SecretKey: testSecret, ExpiryHours: 24}, redisClient)

	adminGate := AdminOnly("0000000001")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(account string) int {
		token := signToken(t, testSecret, account, time.Now().Add(time.Hour))
		redisMock.ExpectExists("blacklist:" + token).SetVal(0)

		req := httptest.NewRequest("GET", "/admin/accounts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(adminGate(next)).ServeHTTP(w, req)
		return w.Code
	}

	t.Run("treasury session is admin", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve("0000000001"))
	})

	t.Run("customer session is not", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, serve("1234567890"))
	})
}
