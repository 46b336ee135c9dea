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
	FeatureFlags FeatureFlagsConfig
	Store        StoreConfig
	Promo        PromoConfig
	Cache        CacheConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Store.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// StoreConfig holds the fulfillment tunables of the physical shop.
type StoreConfig struct {
	Timezone                  string `envconfig:"STOREFRONT_STORE_TIMEZONE" default:"Europe/Paris"`
	LateOrderThresholdMinutes int    `envconfig:"STOREFRONT_LATE_ORDER_THRESHOLD_MINUTES" default:"90"`
	PickupLeadMinutes         int    `envconfig:"STOREFRONT_PICKUP_LEAD_MINUTES" default:"60"`
	DefaultOpeningTime        string `envconfig:"STOREFRONT_DEFAULT_OPENING_TIME" default:"10:00"`
	BaseDelayDays             int    `envconfig:"STOREFRONT_PICKUP_BASE_DELAY_DAYS" default:"4"`
	VacationDelayDays         int    `envconfig:"STOREFRONT_VACATION_DELAY_DAYS" default:"4"`
}

// Location resolves the configured store timezone.
func (s StoreConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading store timezone %q: %w", name, err)
	}
	return loc, nil
}

// LateOrderThreshold returns the late-order window as a duration.
func (s StoreConfig) LateOrderThreshold() time.Duration {
	return time.Duration(s.LateOrderThresholdMinutes) * time.Minute
}

// PickupLead returns the preparation time for immediate pickups.
func (s StoreConfig) PickupLead() time.Duration {
	return time.Duration(s.PickupLeadMinutes) * time.Minute
}

type PromoConfig struct {
	BaseURL          string        `envconfig:"STOREFRONT_PROMO_BASE_URL"`
	Timeout          time.Duration `envconfig:"STOREFRONT_PROMO_TIMEOUT" default:"3s"`
	MaxRetries       uint64        `envconfig:"STOREFRONT_PROMO_MAX_RETRIES" default:"2"`
	RetryBaseDelay   time.Duration `envconfig:"STOREFRONT_PROMO_RETRY_BASE_DELAY" default:"100ms"`
	BreakerFailures  uint32        `envconfig:"STOREFRONT_PROMO_BREAKER_FAILURES" default:"5"`
	BreakerOpenDelay time.Duration `envconfig:"STOREFRONT_PROMO_BREAKER_OPEN_DELAY" default:"30s"`
	CacheTTL         time.Duration `envconfig:"STOREFRONT_PROMO_CACHE_TTL" default:"5m"`

	AttemptLimit  int           `envconfig:"STOREFRONT_PROMO_ATTEMPT_LIMIT" default:"10"`
	AttemptWindow time.Duration `envconfig:"STOREFRONT_PROMO_ATTEMPT_WINDOW" default:"10m"`
}

// Enabled reports whether an external promo service is configured.
func (p PromoConfig) Enabled() bool {
	return strings.TrimSpace(p.BaseURL) != ""
}

type CacheConfig struct {
	SettingsTTL    time.Duration `envconfig:"STOREFRONT_SETTINGS_CACHE_TTL" default:"1m"`
	CartSessionTTL time.Duration `envconfig:"STOREFRONT_CART_SESSION_TTL" default:"48h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
