package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	CORS  CORSConfig
	SMTP  SMTPConfig
	Push  PushConfig
	Trust TrustConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=Asia/Ho_Chi_Minh"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AlertTo  string // ops mailbox for dispatch failure alerts
}

// PushConfig configures the push delivery pipeline.
// FCM takes priority over web push when both are configured.
type PushConfig struct {
	FCMProjectID          string
	FCMServiceAccountJSON string
	VAPIDPublicKey        string
	VAPIDPrivateKey       string
	VAPIDSubject          string
	Fake                  bool // PUSH_FAKE=1 forces the fake client (test/CI)
	TokenCacheTTL         time.Duration
	DMRateTTL             time.Duration
	URLHost               string // host used for deep-link URLs in push payloads
}

// FCMConfigured reports whether the mobile-push client can be built
func (p PushConfig) FCMConfigured() bool {
	return p.FCMProjectID != "" && p.FCMServiceAccountJSON != ""
}

// WebPushConfigured reports whether the web-push client can be built
func (p PushConfig) WebPushConfigured() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// TrustConfig holds the trust & safety thresholds
type TrustConfig struct {
	AutoHideReports    int // reports against a target before it is auto-hidden
	AutoWarningReports int // reports against a user before conversations get a warning
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	jwtExpiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "choviet"),
			Password: getEnv("DB_PASSWORD", "choviet"),
			Name:     getEnv("DB_NAME", "choviet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: jwtExpiry,
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "mailpit"),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@choviet.local"),
			FromName: getEnv("SMTP_FROM_NAME", "ChoViet"),
			AlertTo:  getEnv("SMTP_ALERT_TO", "ops@choviet.local"),
		},
		Push: PushConfig{
			FCMProjectID:          getEnv("FCM_PROJECT_ID", ""),
			FCMServiceAccountJSON: getEnv("FCM_SERVICE_ACCOUNT_JSON", ""),
			VAPIDPublicKey:        getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey:       getEnv("VAPID_PRIVATE_KEY", ""),
			VAPIDSubject:          getEnv("VAPID_SUBJECT", "mailto:support@choviet.com"),
			Fake:                  getEnv("PUSH_FAKE", "") == "1",
			TokenCacheTTL:         getEnvDuration("PUSH_TOKEN_CACHE_TTL", 55*time.Minute),
			DMRateTTL:             getEnvDuration("PUSH_DM_RATE_TTL", 10*time.Second),
			URLHost:               getEnv("DEFAULT_URL_HOST", "localhost:3000"),
		},
		Trust: TrustConfig{
			AutoHideReports:    getEnvInt("REPORT_AUTO_HIDE_THRESHOLD", 3),
			AutoWarningReports: getEnvInt("REPORT_AUTO_WARNING_THRESHOLD", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
