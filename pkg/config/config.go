package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	RateLimit    RateLimitConfig
	Cart         CartConfig
	Retention    RetentionConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Identity.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"UNIFORMHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"UNIFORMHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"UNIFORMHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"UNIFORMHUB_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"UNIFORMHUB_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"UNIFORMHUB_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"UNIFORMHUB_DB_DSN"`

	LegacyHost     string `envconfig:"UNIFORMHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"UNIFORMHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"UNIFORMHUB_DB_USER"`
	LegacyPassword string `envconfig:"UNIFORMHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"UNIFORMHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"UNIFORMHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNIFORMHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNIFORMHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNIFORMHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNIFORMHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"UNIFORMHUB_REDIS_URL" required:"true"`
	Password     string        `envconfig:"UNIFORMHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNIFORMHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNIFORMHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNIFORMHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNIFORMHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNIFORMHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNIFORMHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig points at the external auth provider that signs session tokens.
type IdentityConfig struct {
	PublicKeyPEM string        `envconfig:"UNIFORMHUB_IDENTITY_PUBLIC_KEY" required:"true"`
	Issuer       string        `envconfig:"UNIFORMHUB_IDENTITY_ISSUER"`
	Audience     string        `envconfig:"UNIFORMHUB_IDENTITY_AUDIENCE"`
	Leeway       time.Duration `envconfig:"UNIFORMHUB_IDENTITY_LEEWAY" default:"30s"`
}

func (i IdentityConfig) validate() error {
	if !strings.Contains(i.PublicKeyPEM, "BEGIN") {
		return fmt.Errorf("%s must be a PEM encoded public key", EnvIdentityPublicKey)
	}
	return nil
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"UNIFORMHUB_RATE_LIMIT_WINDOW" default:"1m"`
	SearchIPLimit int           `envconfig:"UNIFORMHUB_RATE_LIMIT_SEARCH_IP_LIMIT" default:"120"`
	ContactLimit  int           `envconfig:"UNIFORMHUB_RATE_LIMIT_CONTACT_IP_LIMIT" default:"5"`
	BookingLimit  int           `envconfig:"UNIFORMHUB_RATE_LIMIT_BOOKING_IP_LIMIT" default:"10"`
}

type CartConfig struct {
	SnapshotTTL time.Duration `envconfig:"UNIFORMHUB_CART_SNAPSHOT_TTL" default:"720h"`
	CookieName  string        `envconfig:"UNIFORMHUB_CART_COOKIE" default:"uh_cart"`
}

// RetentionConfig drives the worker that purges read notifications.
type RetentionConfig struct {
	Interval time.Duration `envconfig:"UNIFORMHUB_RETENTION_INTERVAL" default:"24h"`
	Days     int           `envconfig:"UNIFORMHUB_RETENTION_DAYS" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"UNIFORMHUB_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
