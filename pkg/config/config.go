package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Env variable names referenced from tests and error messages.
const (
	EnvAppEnv      = "PAYLINK_APP_ENV"
	EnvPort        = "PAYLINK_APP_PORT"
	EnvDBDSN       = "PAYLINK_DB_DSN"
	EnvDBHost      = "PAYLINK_DB_HOST"
	EnvDBUser      = "PAYLINK_DB_USER"
	EnvDBName      = "PAYLINK_DB_NAME"
	EnvRedisURL    = "PAYLINK_REDIS_URL"
	EnvAdminSecret = "PAYLINK_ADMIN_JWT_SECRET"
	EnvChannelURL  = "PAYLINK_CHANNEL_BASE_URL"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Admin        AdminConfig
	Channel      ChannelConfig
	Engine       EngineConfig
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
	Env          string `envconfig:"PAYLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYLINK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PAYLINK_APP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYLINK_DB_DSN"`
	Driver string `envconfig:"PAYLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYLINK_DB_USER"`
	LegacyPassword string `envconfig:"PAYLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYLINK_REDIS_ADDR"`
	Password     string        `envconfig:"PAYLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AdminConfig drives actor identity on the dispatch-plan admin API.
type AdminConfig struct {
	JWTSecret string `envconfig:"PAYLINK_ADMIN_JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"PAYLINK_ADMIN_JWT_ISSUER" default:"paylink"`

	// RestrictedTargets lists payment target ids hidden from most admins;
	// RestrictedViewers lists the admin ids allowed to see them.
	RestrictedTargets []string `envconfig:"PAYLINK_ADMIN_RESTRICTED_TARGETS"`
	RestrictedViewers []string `envconfig:"PAYLINK_ADMIN_RESTRICTED_VIEWERS"`
}

// ChannelConfig points at the messaging gateway.
type ChannelConfig struct {
	BaseURL string        `envconfig:"PAYLINK_CHANNEL_BASE_URL" required:"true"`
	Token   string        `envconfig:"PAYLINK_CHANNEL_TOKEN"`
	Timeout time.Duration `envconfig:"PAYLINK_CHANNEL_TIMEOUT" default:"15s"`
}

// EngineConfig carries the reconciliation engine tunables. The dedup window
// and linkage TTL were unexplained constants upstream; they stay configurable.
type EngineConfig struct {
	DedupWindow          time.Duration `envconfig:"PAYLINK_ENGINE_DEDUP_WINDOW" default:"3m"`
	DedupHistory         int           `envconfig:"PAYLINK_ENGINE_DEDUP_HISTORY" default:"15"`
	LinkageTTL           time.Duration `envconfig:"PAYLINK_ENGINE_LINKAGE_TTL" default:"6h"`
	LinkageMaxEntries    int           `envconfig:"PAYLINK_ENGINE_LINKAGE_MAX_ENTRIES" default:"1024"`
	AmountTolerance      float64       `envconfig:"PAYLINK_ENGINE_AMOUNT_TOLERANCE" default:"0.5"`
	DispatchTrigger      string        `envconfig:"PAYLINK_ENGINE_DISPATCH_TRIGGER" default:"send payment link"`
	DraftHeader          string        `envconfig:"PAYLINK_ENGINE_DRAFT_HEADER" default:"order"`
	ReceiptSuccessMarker string        `envconfig:"PAYLINK_ENGINE_RECEIPT_SUCCESS_MARKER" default:"Payment successful"`
	WebhookEventTTL      time.Duration `envconfig:"PAYLINK_ENGINE_WEBHOOK_EVENT_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAYLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAYLINK_AUTO_MIGRATE" default:"false"`
}

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

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
