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
	JWT          JWTConfig
	Password     PasswordConfig
	Realtime     RealtimeConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"MINIMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"MINIMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MINIMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MINIMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MINIMARKET_DB_DSN"`
	Driver string `envconfig:"MINIMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MINIMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"MINIMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MINIMARKET_DB_USER"`
	LegacyPassword string `envconfig:"MINIMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"MINIMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"MINIMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MINIMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MINIMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MINIMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MINIMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MINIMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MINIMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"MINIMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"MINIMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MINIMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MINIMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MINIMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MINIMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MINIMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MINIMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MINIMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MINIMARKET_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MINIMARKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MINIMARKET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MINIMARKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MINIMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MINIMARKET_ARGON_KEY_LEN" default:"32"`
}

type RealtimeConfig struct {
	StockUpdatedChannel string        `envconfig:"MINIMARKET_REALTIME_STOCK_UPDATED_CHANNEL" default:"stock.updated"`
	StockAlertChannel   string        `envconfig:"MINIMARKET_REALTIME_STOCK_ALERT_CHANNEL" default:"stock.alert"`
	PublishTimeout      time.Duration `envconfig:"MINIMARKET_REALTIME_PUBLISH_TIMEOUT" default:"2s"`
}

type RateLimitConfig struct {
	AuthWindow     time.Duration `envconfig:"MINIMARKET_RATE_LIMIT_AUTH_WINDOW" default:"1m"`
	AuthIPLimit    int           `envconfig:"MINIMARKET_RATE_LIMIT_AUTH_IP" default:"20"`
	AuthEmailLimit int           `envconfig:"MINIMARKET_RATE_LIMIT_AUTH_EMAIL" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MINIMARKET_AUTO_MIGRATE" default:"false"`
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
