package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/env"
)

type Config struct {
	Port             string
	ENV              string
	DB               DatabaseConfig
	RateLimiter      RateLimiterConfig
	IssueRateLimiter RateLimiterConfig
	Auth             AuthConfig
	Minio            MinioConfig
	RabbitMQ         RabbitMQConfig
	Redis            RedisConfig
	Ledger           LedgerConfig
	Mail             MailConfig
	// Public page that renders a certificate, the short id is appended to it.
	VerifyWebURL string
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}

type AuthConfig struct {
	// "jwt" verifies HS256 tokens signed with JWT_SECRET, "google" verifies Google ID tokens.
	PROVIDER         string
	JWT_SECRET       string
	GOOGLE_CLIENT_ID string
	// Only honoured when ENV is development.
	SKIP bool
}

type DatabaseConfig struct {
	DB_HOST      string
	DB_PORT      string
	DB_DATABASE  string
	DB_USERNAME  string
	DB_PASSWORD  string
	DB_SSLMODE   string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  string
}

type MinioConfig struct {
	ENDPOINT   string
	ACCESS_KEY string
	SECRET_KEY string
	BUCKET     string
	USE_SSL    bool
	// Base used to build public object URLs. Defaults to the endpoint.
	PUBLIC_URL string
}

type RabbitMQConfig struct {
	HOST     string
	PORT     string
	USERNAME string
	PASSWORD string
}

type RedisConfig struct {
	ADDR     string
	PASSWORD string
	DB       int
}

type LedgerConfig struct {
	RPC_URL          string
	PRIVATE_KEY      string
	CONTRACT_ADDRESS string
	GasLimit         uint64
	ReceiptTimeout   time.Duration
}

type MailConfig struct {
	SEND_GRID  SendGridConfig
	FROM_EMAIL string
}

type SendGridConfig struct {
	API_KEY string
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.ENV, "production")
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.ENV, "development")
}

// Auth bypass is a local development convenience and is never active elsewhere.
func (c Config) SkipAuth() bool {
	return c.IsDevelopment() && c.Auth.SKIP
}

func (r RabbitMQConfig) GetConnectionString() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.USERNAME, r.PASSWORD, r.HOST, r.PORT)
}

func (r RabbitMQConfig) Enabled() bool {
	return r.HOST != ""
}

func (m MinioConfig) Enabled() bool {
	return m.ENDPOINT != "" && m.ACCESS_KEY != "" && m.SECRET_KEY != ""
}

func (r RedisConfig) Enabled() bool {
	return r.ADDR != ""
}

func (m MailConfig) Enabled() bool {
	return m.SEND_GRID.API_KEY != "" && m.FROM_EMAIL != ""
}

func GetConfig() Config {
	return Config{
		Port: env.GetString("PORT", "8080"),
		ENV:  env.GetString("ENV", "development"),
		DB: DatabaseConfig{
			DB_HOST:      env.GetString("DB_HOST", "127.0.0.1"),
			DB_PORT:      env.GetString("DB_PORT", "5432"),
			DB_USERNAME:  env.GetString("DB_USERNAME", "root"),
			DB_PASSWORD:  env.GetString("DB_PASSWORD", ""),
			DB_DATABASE:  env.GetString("DB_DATABASE", "oceanseal"),
			DB_SSLMODE:   env.GetString("DB_SSLMODE", "disable"),
			MaxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 30),
			MaxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 30),
			MaxIdleTime:  env.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
		// By default if not specified, we allow 5000 requests per minute on all routes
		RateLimiter: RateLimiterConfig{
			RequestsPerTimeFrame: env.GetInt("RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 5000),
			TimeFrame:            env.GetDuration("RATE_LIMIT_TIME_FRAME", time.Minute),
			Enabled:              env.GetBool("RATE_LIMIT_ENABLED", true),
		},
		// Every issuance may cost gas, so it gets its own much stricter window
		IssueRateLimiter: RateLimiterConfig{
			RequestsPerTimeFrame: env.GetInt("ISSUE_RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 5),
			TimeFrame:            env.GetDuration("ISSUE_RATE_LIMIT_TIME_FRAME", time.Minute),
			Enabled:              env.GetBool("ISSUE_RATE_LIMIT_ENABLED", true),
		},
		Auth: AuthConfig{
			PROVIDER:         env.GetString("AUTH_PROVIDER", "jwt"),
			JWT_SECRET:       env.GetString("AUTH_JWT_SECRET", ""),
			GOOGLE_CLIENT_ID: env.GetString("AUTH_GOOGLE_CLIENT_ID", ""),
			SKIP:             env.GetBool("AUTH_SKIP", false),
		},
		Minio: MinioConfig{
			ENDPOINT:   env.GetString("MINIO_ENDPOINT", ""),
			ACCESS_KEY: env.GetString("MINIO_ACCESS_KEY", ""),
			SECRET_KEY: env.GetString("MINIO_SECRET_KEY", ""),
			BUCKET:     env.GetString("MINIO_BUCKET", "oceanseal"),
			USE_SSL:    env.GetBool("MINIO_USE_SSL", false),
			PUBLIC_URL: env.GetString("MINIO_PUBLIC_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			HOST:     env.GetString("RABBITMQ_HOST", ""),
			PORT:     env.GetString("RABBITMQ_PORT", "5672"),
			USERNAME: env.GetString("RABBITMQ_USERNAME", "guest"),
			PASSWORD: env.GetString("RABBITMQ_PASSWORD", "guest"),
		},
		Redis: RedisConfig{
			ADDR:     env.GetString("REDIS_ADDR", ""),
			PASSWORD: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			RPC_URL:          env.GetString("LEDGER_RPC_URL", "https://rpc-amoy.polygon.technology"),
			PRIVATE_KEY:      env.GetString("LEDGER_PRIVATE_KEY", ""),
			CONTRACT_ADDRESS: env.GetString("LEDGER_CONTRACT_ADDRESS", ""),
			GasLimit:         uint64(env.GetInt("LEDGER_GAS_LIMIT", 100000)),
			ReceiptTimeout:   env.GetDuration("LEDGER_RECEIPT_TIMEOUT", 60*time.Second),
		},
		Mail: MailConfig{
			FROM_EMAIL: env.GetString("MAIL_FROM_MAIL", ""),
			SEND_GRID: SendGridConfig{
				API_KEY: env.GetString("MAIL_SEND_GRID_API_KEY", ""),
			},
		},
		VerifyWebURL: env.GetString("VERIFY_WEB_URL", "https://ocean-seal.shop/verify"),
	}
}
