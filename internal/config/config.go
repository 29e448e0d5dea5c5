package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	AppEnv        string
	LogLevel      string
	PostgresDSN   string
	MigrationsDir string

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	CookieSecure     bool
	CORSOrigin       string

	BcryptCost             int
	RegistrationAllowAdmin bool

	StorageBackend       string
	StorageLocalDir      string
	StoragePublicBaseURL string
	S3Bucket             string
	S3Region             string
	S3Endpoint           string
	S3AccessKeyID        string
	S3SecretAccessKey    string
	S3UsePathStyle       bool
	S3PresignTTL         time.Duration
	MaxUploadBytes       int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PolicyBundlePath string

	SigningCertFile string
	SigningKeyFile  string
	SigningName     string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		AppEnv:                 envDefault("APP_ENV", "development"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		MigrationsDir:          os.Getenv("MIGRATIONS_DIR"),
		JWTAccessSecret:        os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:       os.Getenv("JWT_REFRESH_SECRET"),
		JWTIssuer:              envDefault("JWT_ISSUER", "docsign"),
		AccessTokenTTL:         envDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:        envDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:           envBoolDefault("COOKIE_SECURE", true),
		CORSOrigin:             os.Getenv("CORS_ORIGIN"),
		BcryptCost:             envIntDefault("BCRYPT_COST", 10),
		RegistrationAllowAdmin: envBoolDefault("REGISTRATION_ALLOW_ADMIN", true),
		StorageBackend:         envDefault("STORAGE_BACKEND", "local"),
		StorageLocalDir:        envDefault("STORAGE_LOCAL_DIR", "./data/objects"),
		StoragePublicBaseURL:   os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		S3Bucket:               os.Getenv("S3_BUCKET"),
		S3Region:               envDefault("S3_REGION", "us-east-1"),
		S3Endpoint:             os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:          os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:      os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle:         envBoolDefault("S3_USE_PATH_STYLE", false),
		S3PresignTTL:           envDurationDefault("S3_PRESIGN_TTL", 15*time.Minute),
		MaxUploadBytes:         envIntDefault("MAX_UPLOAD_BYTES", 10<<20),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 15*60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		SigningCertFile:        os.Getenv("SIGNING_CERT_FILE"),
		SigningKeyFile:         os.Getenv("SIGNING_KEY_FILE"),
		SigningName:            envDefault("SIGNING_NAME", "docsign"),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

// envDurationDefault accepts Go duration syntax or a bare number of seconds.
func envDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
