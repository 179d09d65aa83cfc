package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	WriteLimit    WriteRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Marketplace   MarketplaceConfig
	GenAI         GenAIConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	DynamoDB      DynamoDBConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

// Load reads the environment and reports every cross-field problem at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := multierr.Combine(cfg.DB.resolveDSN(), cfg.check()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) check() error {
	var errs error
	if !strings.EqualFold(c.DB.Driver, DriverPostgres) && !strings.EqualFold(c.DB.Driver, DriverSQLite) {
		errs = multierr.Append(errs, fmt.Errorf("%s must be %s or %s", EnvDBDriver, DriverPostgres, DriverSQLite))
	}
	if access := time.Duration(c.JWT.ExpirationMinutes) * time.Minute; c.JWT.RefreshTokenTTL() <= access {
		errs = multierr.Append(errs, fmt.Errorf("%s must exceed the access token lifetime", EnvRefreshTokenTTLMinutes))
	}
	if amount := strings.TrimSpace(c.Marketplace.MaxAmount); amount != "" {
		if v, err := decimal.NewFromString(amount); err != nil || !v.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("%s must be a positive decimal", EnvMaxQuotationAmount))
		}
	}
	// V2 signed URLs are capped at seven days.
	if exp := c.GCS.UploadURLExpiry; exp < time.Minute || exp > 7*24*time.Hour {
		errs = multierr.Append(errs, fmt.Errorf("%s must be between 1m and 168h", EnvGCSUploadExpiry))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"HOMEQUOTE_APP_ENV" required:"true"`
	Port         string `envconfig:"HOMEQUOTE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HOMEQUOTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HOMEQUOTE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"HOMEQUOTE_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"HOMEQUOTE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HOMEQUOTE_DB_DSN"`
	Driver string `envconfig:"HOMEQUOTE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HOMEQUOTE_DB_HOST"`
	LegacyPort     int    `envconfig:"HOMEQUOTE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HOMEQUOTE_DB_USER"`
	LegacyPassword string `envconfig:"HOMEQUOTE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HOMEQUOTE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HOMEQUOTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HOMEQUOTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HOMEQUOTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HOMEQUOTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOMEQUOTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"HOMEQUOTE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HOMEQUOTE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HOMEQUOTE_REDIS_ADDR"`
	Password     string        `envconfig:"HOMEQUOTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HOMEQUOTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HOMEQUOTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOMEQUOTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOMEQUOTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOMEQUOTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOMEQUOTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HOMEQUOTE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HOMEQUOTE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HOMEQUOTE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HOMEQUOTE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	MinLength        int `envconfig:"HOMEQUOTE_PASSWORD_MIN_LENGTH" default:"8"`
	ArgonMemoryKB    int `envconfig:"HOMEQUOTE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HOMEQUOTE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HOMEQUOTE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HOMEQUOTE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HOMEQUOTE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"HOMEQUOTE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// WriteRateLimitConfig caps marketplace writes per authenticated caller.
type WriteRateLimitConfig struct {
	Window                time.Duration `envconfig:"HOMEQUOTE_WRITE_RATE_LIMIT_WINDOW" default:"1h"`
	RequirementsPerWindow int           `envconfig:"HOMEQUOTE_WRITE_RATE_LIMIT_REQUIREMENTS" default:"20"`
	QuotationsPerWindow   int           `envconfig:"HOMEQUOTE_WRITE_RATE_LIMIT_QUOTATIONS" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"HOMEQUOTE_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"HOMEQUOTE_AUTO_MIGRATE" default:"false"`
	UpdatesFeed    bool `envconfig:"HOMEQUOTE_FEATURE_UPDATES_FEED" default:"true"`
	AdminCanAccept bool `envconfig:"HOMEQUOTE_FEATURE_ADMIN_CAN_ACCEPT" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"HOMEQUOTE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// MarketplaceConfig bounds user supplied content on requirements and quotations.
type MarketplaceConfig struct {
	MaxPhotosPerRequirement int    `envconfig:"HOMEQUOTE_MAX_PHOTOS_PER_REQUIREMENT" default:"10"`
	MaxTitleLength          int    `envconfig:"HOMEQUOTE_MAX_TITLE_LENGTH" default:"140"`
	MaxDescriptionLength    int    `envconfig:"HOMEQUOTE_MAX_DESCRIPTION_LENGTH" default:"4000"`
	MaxTermsLength          int    `envconfig:"HOMEQUOTE_MAX_TERMS_LENGTH" default:"4000"`
	MaxAmount               string `envconfig:"HOMEQUOTE_MAX_QUOTATION_AMOUNT" default:"10000000"`
}

type GenAIConfig struct {
	APIKey  string        `envconfig:"HOMEQUOTE_GENAI_API_KEY"`
	Model   string        `envconfig:"HOMEQUOTE_GENAI_MODEL" default:"gemini-2.0-flash"`
	Timeout time.Duration `envconfig:"HOMEQUOTE_GENAI_TIMEOUT" default:"8s"`
}

// Enabled reports whether a hosted model can be used for categorization.
func (g GenAIConfig) Enabled() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HOMEQUOTE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"HOMEQUOTE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HOMEQUOTE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"HOMEQUOTE_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"HOMEQUOTE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	PublicBaseURL   string        `envconfig:"HOMEQUOTE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"HOMEQUOTE_MAX_UPLOAD_MB" default:"20"`
}

// MaxUploadBytes converts the configured megabyte cap into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 20 * 1024 * 1024
	}
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type PubSubConfig struct {
	LifecycleTopic           string `envconfig:"HOMEQUOTE_PUBSUB_LIFECYCLE_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"HOMEQUOTE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"HOMEQUOTE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
	DLQTopic                 string `envconfig:"HOMEQUOTE_PUBSUB_DLQ_TOPIC"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"HOMEQUOTE_BIGQUERY_DATASET" default:"homequote"`
	MarketplaceEventsTable string `envconfig:"HOMEQUOTE_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
	AutoCreateTables       bool   `envconfig:"HOMEQUOTE_BIGQUERY_AUTO_CREATE_TABLES" default:"false"`
}

type DynamoDBConfig struct {
	Region       string `envconfig:"HOMEQUOTE_AWS_REGION" default:"us-east-1"`
	Endpoint     string `envconfig:"HOMEQUOTE_DYNAMODB_ENDPOINT"`
	AccessKeyID  string `envconfig:"HOMEQUOTE_AWS_ACCESS_KEY_ID" default:"local"`
	SecretKey    string `envconfig:"HOMEQUOTE_AWS_SECRET_ACCESS_KEY" default:"local"`
	UpdatesTable string `envconfig:"HOMEQUOTE_DYNAMODB_UPDATES_TABLE" default:"updates"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"HOMEQUOTE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"HOMEQUOTE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"HOMEQUOTE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsPort    string `envconfig:"HOMEQUOTE_OUTBOX_METRICS_PORT" default:"9101"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"HOMEQUOTE_CRON_INTERVAL" default:"1h"`
	LockTTL                   time.Duration `envconfig:"HOMEQUOTE_CRON_LOCK_TTL" default:"10m"`
	JobTimeout                time.Duration `envconfig:"HOMEQUOTE_CRON_JOB_TIMEOUT" default:"5m"`
	NotificationRetentionDays int           `envconfig:"HOMEQUOTE_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"HOMEQUOTE_OUTBOX_RETENTION_DAYS" default:"7"`
	MetricsPort               string        `envconfig:"HOMEQUOTE_CRON_METRICS_PORT" default:"9102"`
}

// resolveDSN assembles a postgres URL from the discrete HOST/USER/NAME
// variables when no DSN is given. SQLite has no such fallback.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	parts := []struct{ env, value string }{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	}
	var missing []string
	for _, p := range parts {
		if p.value == "" {
			missing = append(missing, p.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is unset and so are %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: DriverPostgres,
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
