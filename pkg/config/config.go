package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Reservation  ReservationConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	} else if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(cfg.Reservation.validate(), cfg.Outbox.validate()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GLOWCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GLOWCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GLOWCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GLOWCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GLOWCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GLOWCART_DB_DSN"`
	Driver string `envconfig:"GLOWCART_DB_DRIVER" default:"postgres"`

	// SQLitePath is only read when the UseSQLite flag is on.
	SQLitePath string `envconfig:"GLOWCART_SQLITE_PATH" default:"file:glowcart.db?cache=shared"`

	LegacyHost     string `envconfig:"GLOWCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GLOWCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GLOWCART_DB_USER"`
	LegacyPassword string `envconfig:"GLOWCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GLOWCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GLOWCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GLOWCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GLOWCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GLOWCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GLOWCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"GLOWCART_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GLOWCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GLOWCART_REDIS_ADDR"`
	Password     string        `envconfig:"GLOWCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GLOWCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GLOWCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GLOWCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GLOWCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GLOWCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GLOWCART_REDIS_WRITE_TIMEOUT" default:"5s"`
	// SlowCommand logs commands slower than this; zero disables it.
	SlowCommand time.Duration `envconfig:"GLOWCART_REDIS_SLOW_COMMAND" default:"100ms"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GLOWCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GLOWCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GLOWCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GLOWCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GLOWCART_AUTO_MIGRATE" default:"false"`
}

// ReservationConfig holds the single authoritative TTL table plus sweeper tuning.
type ReservationConfig struct {
	GuestTTL         time.Duration `envconfig:"GLOWCART_RESERVATION_GUEST_TTL" default:"1h"`
	RegisteredTTL    time.Duration `envconfig:"GLOWCART_RESERVATION_REGISTERED_TTL" default:"168h"`
	MaxExtension     time.Duration `envconfig:"GLOWCART_RESERVATION_MAX_EXTENSION" default:"720h"`
	SweepInterval    time.Duration `envconfig:"GLOWCART_RESERVATION_SWEEP_INTERVAL" default:"5m"`
	SweepBatchSize   int           `envconfig:"GLOWCART_RESERVATION_SWEEP_BATCH_SIZE" default:"100"`
	SweepItemTimeout time.Duration `envconfig:"GLOWCART_RESERVATION_SWEEP_ITEM_TIMEOUT" default:"10s"`
	RequestTimeout   time.Duration `envconfig:"GLOWCART_RESERVATION_REQUEST_TIMEOUT" default:"10s"`
	MaxRetries       int           `envconfig:"GLOWCART_RESERVATION_MAX_RETRIES" default:"3"`
}

func (r ReservationConfig) validate() error {
	var err error
	if r.GuestTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvReservationGuestTTL))
	}
	if r.RegisteredTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvReservationRegisteredTTL))
	}
	if r.MaxExtension < r.RegisteredTTL {
		err = multierr.Append(err, fmt.Errorf("%s must be at least %s", EnvReservationMaxExtension, EnvReservationRegisteredTTL))
	}
	if r.SweepInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvReservationSweepInterval))
	}
	if r.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvReservationMaxRetries))
	}
	return err
}

type GCPConfig struct {
	ProjectID string `envconfig:"GLOWCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	ReservationsTopic string `envconfig:"GLOWCART_PUBSUB_RESERVATIONS_TOPIC" default:"glowcart-reservation-events"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"GLOWCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"GLOWCART_OUTBOX_PUBLISH_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"GLOWCART_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// Retention is how long published and abandoned rows are kept.
	Retention      time.Duration `envconfig:"GLOWCART_OUTBOX_RETENTION" default:"720h"`
	RetentionEvery time.Duration `envconfig:"GLOWCART_OUTBOX_RETENTION_EVERY" default:"24h"`
	RetentionBatch int           `envconfig:"GLOWCART_OUTBOX_RETENTION_BATCH" default:"1000"`
}

func (o OutboxConfig) validate() error {
	var err error
	if o.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if o.MaxAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	if o.Retention < 24*time.Hour {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 24h", EnvOutboxRetention))
	}
	return err
}

// HTTPConfig covers the browser-facing surface of the API.
type HTTPConfig struct {
	CORSOrigins []string `envconfig:"GLOWCART_CORS_ORIGINS" default:"http://localhost:3000,https://glowcart.shop,https://www.glowcart.shop"`
}

// ensureDSN assembles a postgres URL from the discrete GLOWCART_DB_* parts
// when no DSN is given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	parts := map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName}
	var missing []string
	for _, key := range legacyDBEnvVars {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
