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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Docstore     DocstoreConfig
	Cleanup      CleanupConfig
	Catalog      CatalogConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TELAVO_APP_ENV" required:"true"`
	Port         string `envconfig:"TELAVO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TELAVO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TELAVO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TELAVO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TELAVO_DB_DSN"`
	Driver string `envconfig:"TELAVO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TELAVO_DB_HOST"`
	LegacyPort     int    `envconfig:"TELAVO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TELAVO_DB_USER"`
	LegacyPassword string `envconfig:"TELAVO_DB_PASSWORD"`
	LegacyName     string `envconfig:"TELAVO_DB_NAME"`
	LegacySSLMode  string `envconfig:"TELAVO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TELAVO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TELAVO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TELAVO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TELAVO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TELAVO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TELAVO_REDIS_ADDR"`
	Password     string        `envconfig:"TELAVO_REDIS_PASSWORD"`
	DB           int           `envconfig:"TELAVO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TELAVO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TELAVO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TELAVO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TELAVO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TELAVO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TELAVO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TELAVO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TELAVO_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// DocstoreConfig tunes the document store operations the wizard engine issues.
type DocstoreConfig struct {
	OpTimeout time.Duration `envconfig:"TELAVO_DOCSTORE_OP_TIMEOUT" default:"30s"`
}

// CleanupConfig tunes the orphaned-draft delete retry worker.
type CleanupConfig struct {
	PollInterval time.Duration `envconfig:"TELAVO_CLEANUP_POLL_INTERVAL" default:"30s"`
	MaxAttempts  int           `envconfig:"TELAVO_CLEANUP_MAX_ATTEMPTS" default:"8"`
	BaseBackoff  time.Duration `envconfig:"TELAVO_CLEANUP_BASE_BACKOFF" default:"1s"`
}

// CatalogConfig points at the device/plan catalog file loaded at boot.
type CatalogConfig struct {
	Path string `envconfig:"TELAVO_CATALOG_PATH" default:"catalog.json"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TELAVO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TELAVO_AUTO_MIGRATE" default:"false"`
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
