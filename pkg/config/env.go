package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for fields without one.
const EnvPrefix = "HOMEQUOTE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "HOMEQUOTE_APP_ENV"
	EnvPort   = "HOMEQUOTE_APP_PORT"

	EnvDBDSN    = "HOMEQUOTE_DB_DSN"
	EnvDBDriver = "HOMEQUOTE_DB_DRIVER"
	EnvDBHost   = "HOMEQUOTE_DB_HOST"
	EnvDBUser   = "HOMEQUOTE_DB_USER"
	EnvDBName   = "HOMEQUOTE_DB_NAME"

	EnvRedisURL = "HOMEQUOTE_REDIS_URL"

	EnvJWTSecret              = "HOMEQUOTE_JWT_SECRET"
	EnvJWTIssuer              = "HOMEQUOTE_JWT_ISSUER"
	EnvJWTExpMins             = "HOMEQUOTE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "HOMEQUOTE_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID    = "HOMEQUOTE_GCP_PROJECT_ID"
	EnvGCSBucket       = "HOMEQUOTE_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry = "HOMEQUOTE_GCS_UPLOAD_URL_EXPIRY"

	EnvPubSubLifecycleTopic  = "HOMEQUOTE_PUBSUB_LIFECYCLE_TOPIC"
	EnvPubSubNotificationSub = "HOMEQUOTE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub    = "HOMEQUOTE_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvGenAIAPIKey             = "HOMEQUOTE_GENAI_API_KEY"
	EnvMaxPhotosPerRequirement = "HOMEQUOTE_MAX_PHOTOS_PER_REQUIREMENT"
	EnvMaxQuotationAmount      = "HOMEQUOTE_MAX_QUOTATION_AMOUNT"
)
