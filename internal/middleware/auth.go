package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
)

type contextKey string

const accountNumberKey contextKey = "accountNumber"

var (
	jwtCfg      *config.JWTConfig
	redisClient *redis.Client
)

// InitAuthMiddleware wires the session middleware to its token settings
// and the optional redis revocation store.
func InitAuthMiddleware(cfg *config.JWTConfig, rdb *redis.Client) {
	jwtCfg = cfg
	redisClient = rdb
}

// Auth validates the Bearer session token, rejects revoked tokens, and
// places the authenticated account number in the request context. The
// ledger core never reads ambient session state; handlers pass the
// account number into every engine call explicitly.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}
		token := parts[1]

		if redisClient != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			if exists, err := redisClient.Exists(r.Context(), key).Result(); err == nil && exists > 0 {
				http.Error(w, "Session has been revoked", http.StatusUnauthorized)
				return
			}
		}

		accountNumber, err := validateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountNumberKey, accountNumber)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountNumber extracts the authenticated account number placed in the
// context by Auth.
func AccountNumber(ctx context.Context) (string, bool) {
	accountNumber, ok := ctx.Value(accountNumberKey).(string)
	return accountNumber, ok && accountNumber != ""
}

func validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtCfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	accountNumber, _ := claims["account_number"].(string)
	if accountNumber == "" {
		return "", fmt.Errorf("token missing account number")
	}
	return accountNumber, nil
}

// AdminOnly restricts a route subtree to the administrator, identified as
// the treasury account session.
func AdminOnly(adminAccount string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountNumber, ok := AccountNumber(r.Context())
			if !ok || accountNumber != adminAccount {
				http.Error(w, "Administrator access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
