package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by DASHBOARD_STORE.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Lock store backends accepted by DASHBOARD_LOCK_STORE.
const (
	LockStoreDocument = "document"
	LockStoreRedis    = "redis"
)

// DefaultGoogleJWKSURL is the public key set for Google issued ID tokens.
const DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Config captures environment driven configuration values for the dashboard backend.
type Config struct {
	HTTPPort  int
	LogFormat string
	LogLevel  string

	Store         string
	SQLiteDSN     string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	LockStore     string
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret string
	SessionTTL    time.Duration

	GoogleClientID string
	JWKSURL        string
	JWKSRefresh    time.Duration
	TokenLeeway    time.Duration

	DirectoryCacheSize int
	DirectoryCacheTTL  time.Duration

	AllowedOrigins []string
	SignInRate     float64
	SignInBurst    int
}

// ClientConfig captures configuration for the dashboard command line client.
type ClientConfig struct {
	BaseURL        string
	SessionDir     string
	DeviceSecret   string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	LogLevel       string
}

// LoadDotEnv reads variables from the given .env files (".env" when none are
// given) without overriding values already present in the environment. A
// missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s の読み込みに失敗しました: %w", file, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := defaults()
	p := &parser{}

	p.positiveInt("DASHBOARD_HTTP_PORT", &cfg.HTTPPort)
	p.str("DASHBOARD_LOG_FORMAT", &cfg.LogFormat)
	p.str("DASHBOARD_LOG_LEVEL", &cfg.LogLevel)
	p.storage(&cfg)

	p.required("DASHBOARD_SESSION_SECRET", &cfg.SessionSecret)
	p.positiveDuration("DASHBOARD_SESSION_TTL", &cfg.SessionTTL)

	p.required("DASHBOARD_GOOGLE_CLIENT_ID", &cfg.GoogleClientID)
	p.str("DASHBOARD_JWKS_URL", &cfg.JWKSURL)
	p.positiveDuration("DASHBOARD_JWKS_REFRESH", &cfg.JWKSRefresh)
	if value := strings.TrimSpace(os.Getenv("DASHBOARD_TOKEN_LEEWAY")); value != "" {
		leeway, err := time.ParseDuration(value)
		if err != nil || leeway < 0 {
			p.invalid = append(p.invalid, "DASHBOARD_TOKEN_LEEWAY")
		} else {
			cfg.TokenLeeway = leeway
		}
	}

	p.positiveInt("DASHBOARD_DIRECTORY_CACHE_SIZE", &cfg.DirectoryCacheSize)
	p.positiveDuration("DASHBOARD_DIRECTORY_CACHE_TTL", &cfg.DirectoryCacheTTL)

	if origins := strings.TrimSpace(os.Getenv("DASHBOARD_ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if value := strings.TrimSpace(os.Getenv("DASHBOARD_SIGNIN_RATE")); value != "" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			p.invalid = append(p.invalid, "DASHBOARD_SIGNIN_RATE")
		} else {
			cfg.SignInRate = rate
		}
	}
	p.positiveInt("DASHBOARD_SIGNIN_BURST", &cfg.SignInBurst)

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadStore parses only the persistence settings, for tools such as the
// seeder that never serve requests.
func LoadStore() (Config, error) {
	cfg := defaults()
	p := &parser{}
	p.str("DASHBOARD_LOG_LEVEL", &cfg.LogLevel)
	p.storage(&cfg)
	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPPort:           8080,
		LogFormat:          "json",
		LogLevel:           "info",
		Store:              StoreSQLite,
		SQLiteDSN:          "file:dashboard.db",
		MongoDatabase:      "dashboard",
		LockStore:          LockStoreDocument,
		LockTTL:            2 * time.Minute,
		SessionTTL:         8 * time.Hour,
		JWKSURL:            DefaultGoogleJWKSURL,
		JWKSRefresh:        time.Hour,
		TokenLeeway:        30 * time.Second,
		DirectoryCacheSize: 256,
		DirectoryCacheTTL:  5 * time.Minute,
		AllowedOrigins:     []string{"http://localhost:3000"},
		SignInRate:         1,
		SignInBurst:        5,
	}
}

func (p *parser) storage(cfg *Config) {
	p.str("DASHBOARD_STORE", &cfg.Store)
	cfg.Store = strings.ToLower(cfg.Store)
	p.str("DASHBOARD_SQLITE_DSN", &cfg.SQLiteDSN)
	p.str("DASHBOARD_POSTGRES_DSN", &cfg.PostgresDSN)
	p.str("DASHBOARD_MONGO_URI", &cfg.MongoURI)
	p.str("DASHBOARD_MONGO_DATABASE", &cfg.MongoDatabase)

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			p.missing = append(p.missing, "DASHBOARD_POSTGRES_DSN")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			p.missing = append(p.missing, "DASHBOARD_MONGO_URI")
		}
	default:
		p.invalid = append(p.invalid, "DASHBOARD_STORE")
	}

	p.str("DASHBOARD_LOCK_STORE", &cfg.LockStore)
	cfg.LockStore = strings.ToLower(cfg.LockStore)
	p.positiveDuration("DASHBOARD_LOCK_TTL", &cfg.LockTTL)
	p.str("DASHBOARD_REDIS_ADDR", &cfg.RedisAddr)
	p.str("DASHBOARD_REDIS_PASSWORD", &cfg.RedisPassword)
	p.nonNegativeInt("DASHBOARD_REDIS_DB", &cfg.RedisDB)

	switch cfg.LockStore {
	case LockStoreDocument:
	case LockStoreRedis:
		if cfg.RedisAddr == "" {
			p.missing = append(p.missing, "DASHBOARD_REDIS_ADDR")
		}
	default:
		p.invalid = append(p.invalid, "DASHBOARD_LOCK_STORE")
	}
}

// LoadClient parses configuration for the command line client. The device
// secret falls back to the host name so a fresh install works without setup.
func LoadClient() (ClientConfig, error) {
	cfg := ClientConfig{
		BaseURL:        "http://localhost:8080",
		CacheTTL:       5 * time.Minute,
		RequestTimeout: 15 * time.Second,
		LogLevel:       "warn",
	}

	if dir, err := os.UserConfigDir(); err == nil {
		cfg.SessionDir = filepath.Join(dir, "staff-dashboard")
	} else {
		cfg.SessionDir = filepath.Join(os.TempDir(), "staff-dashboard")
	}

	p := &parser{}
	p.str("DASHBOARD_URL", &cfg.BaseURL)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	p.str("DASHBOARD_SESSION_DIR", &cfg.SessionDir)
	p.str("DASHBOARD_DEVICE_SECRET", &cfg.DeviceSecret)
	p.positiveDuration("DASHBOARD_CACHE_TTL", &cfg.CacheTTL)
	p.positiveDuration("DASHBOARD_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	p.str("DASHBOARD_LOG_LEVEL", &cfg.LogLevel)

	if cfg.DeviceSecret == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			p.missing = append(p.missing, "DASHBOARD_DEVICE_SECRET")
		} else {
			cfg.DeviceSecret = "host:" + host
		}
	}

	if err := p.err(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

type parser struct {
	missing []string
	invalid []string
}

func (p *parser) str(key string, dst *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func (p *parser) required(key string, dst *string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		p.missing = append(p.missing, key)
		return
	}
	*dst = value
}

func (p *parser) positiveInt(key string, dst *int) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) nonNegativeInt(key string, dst *int) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) positiveDuration(key string, dst *time.Duration) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

func (p *parser) err() error {
	if len(p.missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		return fmt.Errorf("環境変数の値が不正です: %s", strings.Join(p.invalid, ", "))
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
