package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
	"github.com/ianpurifying/SE1project-IRNVault/internal/models"
)

// AuthService is the identity collaborator in front of the ledger core:
// it registers accounts, verifies PINs and issues session tokens. The
// engines themselves never read session state; handlers resolve the
// session to an account number and pass it explicitly.
type AuthService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *LedgerService
	jwtCfg *config.JWTConfig
	argon  *config.Argon2Config
}

// NewAuthService builds the auth service. redisClient may be nil; token
// revocation is then unavailable and logout becomes a client-side action.
func NewAuthService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, jwtCfg *config.JWTConfig, argon *config.Argon2Config) *AuthService {
	return &AuthService{db: db, redis: redisClient, ledger: ledger, jwtCfg: jwtCfg, argon: argon}
}

// Register creates a new pending account protected by the given PIN.
func (s *AuthService) Register(ctx context.Context, name, pin string) (*models.Account, error) {
	pinHash, err := s.hashPIN(pin)
	if err != nil {
		return nil, persistenceErr(err)
	}

	account, err := s.ledger.CreateAccount(ctx, name, pinHash)
	if err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Registered account %s", account.AccountNumber)
	return account, nil
}

// Login verifies the account number and PIN and returns a signed session
// token. Pending accounts cannot log in until approved; declined accounts
// are treated as unknown.
func (s *AuthService) Login(ctx context.Context, accountNumber, pin string) (string, *models.Account, error) {
	var account models.Account
	var pinHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT account_number, name, balance, approval_status, created_at, pin_hash
		FROM accounts WHERE account_number = $1`, accountNumber).
		Scan(&account.AccountNumber, &account.Name, &account.Balance, &account.ApprovalStatus, &account.CreatedAt, &pinHash)
	if err == sql.ErrNoRows {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, persistenceErr(err)
	}

	if !s.verifyPIN(pin, pinHash) {
		log.Printf("[AUTH] Invalid PIN for account %s", accountNumber)
		return "", nil, ErrInvalidCredentials
	}

	switch account.ApprovalStatus {
	case models.ApprovalApproved:
	case models.ApprovalPending:
		return "", nil, ErrAccountPending
	default:
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(accountNumber)
	if err != nil {
		return "", nil, persistenceErr(err)
	}

	log.Printf("[AUTH] Login successful for account %s", accountNumber)
	return token, &account, nil
}

// Logout revokes the session token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.redis == nil || token == "" {
		return nil
	}
	key := fmt.Sprintf("blacklist:%s", token)
	expiry := time.Duration(s.jwtCfg.ExpiryHours) * time.Hour
	if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
		log.Printf("[AUTH] Failed to blacklist token: %v", err)
		return persistenceErr(err)
	}
	return nil
}

func (s *AuthService) generateToken(accountNumber string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_number": accountNumber,
		"exp":            time.Now().Add(time.Duration(s.jwtCfg.ExpiryHours) * time.Hour).Unix(),
	})
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}

func (s *AuthService) hashPIN(pin string) (string, error) {
	salt := make([]byte, s.argon.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt,
		uint32(s.argon.Time),
		uint32(s.argon.Memory),
		uint8(s.argon.Threads),
		uint32(s.argon.KeyLength))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (s *AuthService) verifyPIN(pin, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(pin), salt,
		uint32(s.argon.Time),
		uint32(s.argon.Memory),
		uint8(s.argon.Threads),
		uint32(s.argon.KeyLength))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
