package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds session-store settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

// Argon2Config holds PIN hashing parameters.
type Argon2Config struct {
	Time       int
	Memory     int
	Threads    int
	KeyLength  int
	SaltLength int
}

// LoanPolicyConfig bounds what an admin may approve and identifies the
// treasury account that funds disbursements and absorbs payments.
type LoanPolicyConfig struct {
	TreasuryAccount  string
	MaxInterestRate  float64
	MinTermMonths    int
	MaxTermMonths    int
	PaymentCycleDays int
}

// Init points viper at the .env file and binds the environment overrides.
// Call once at startup before any Load* function.
func Init() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	viper.BindEnv("ledger.treasury_account", "LEDGER_TREASURY_ACCOUNT")
	viper.BindEnv("loan.max_interest_rate", "LOAN_MAX_INTEREST_RATE")
	viper.BindEnv("loan.max_term_months", "LOAN_MAX_TERM_MONTHS")
	viper.BindEnv("loan.payment_cycle_days", "LOAN_PAYMENT_CYCLE_DAYS")
}

// LoadServer returns the server configuration with defaults applied.
func LoadServer() *ServerConfig {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)

	return &ServerConfig{
		Port:         viper.GetString("server.port"),
		ReadTimeout:  viper.GetDuration("server.read_timeout"),
		WriteTimeout: viper.GetDuration("server.write_timeout"),
		IdleTimeout:  viper.GetDuration("server.idle_timeout"),
	}
}

// LoadDatabase returns the database configuration with defaults applied.
func LoadDatabase() *DatabaseConfig {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "irnvault")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)

	return &DatabaseConfig{
		Host:            viper.GetString("database.host"),
		Port:            viper.GetString("database.port"),
		User:            viper.GetString("database.user"),
		Password:        viper.GetString("database.password"),
		Name:            viper.GetString("database.name"),
		SSLMode:         viper.GetString("database.ssl_mode"),
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
	}
}

// LoadRedis returns the redis configuration with defaults applied.
func LoadRedis() *RedisConfig {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	return &RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetString("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}
}

// LoadJWT returns the session token configuration.
func LoadJWT() *JWTConfig {
	viper.SetDefault("jwt.secret_key", "change-me")
	viper.SetDefault("jwt.expiry_hours", 24)

	return &JWTConfig{
		SecretKey:   viper.GetString("jwt.secret_key"),
		ExpiryHours: viper.GetInt("jwt.expiry_hours"),
	}
}

// LoadArgon2 returns PIN hashing parameters.
func LoadArgon2() *Argon2Config {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	return &Argon2Config{
		Time:       viper.GetInt("argon2.time"),
		Memory:     viper.GetInt("argon2.memory"),
		Threads:    viper.GetInt("argon2.threads"),
		KeyLength:  viper.GetInt("argon2.key_length"),
		SaltLength: viper.GetInt("argon2.salt_length"),
	}
}

// LoadLoanPolicy returns the loan approval bounds and treasury account.
func LoadLoanPolicy() *LoanPolicyConfig {
	viper.SetDefault("ledger.treasury_account", "0000000001")
	viper.SetDefault("loan.max_interest_rate", 50.0)
	viper.SetDefault("loan.min_term_months", 1)
	viper.SetDefault("loan.max_term_months", 360)
	viper.SetDefault("loan.payment_cycle_days", 30)

	return &LoanPolicyConfig{
		TreasuryAccount:  viper.GetString("ledger.treasury_account"),
		MaxInterestRate:  viper.GetFloat64("loan.max_interest_rate"),
		MinTermMonths:    viper.GetInt("loan.min_term_months"),
		MaxTermMonths:    viper.GetInt("loan.max_term_months"),
		PaymentCycleDays: viper.GetInt("loan.payment_cycle_days"),
	}
}
