package config

const EnvPrefix = "GLOWCART"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "GLOWCART_APP_ENV"
	EnvPort   = "GLOWCART_APP_PORT"

	EnvDBDSN  = "GLOWCART_DB_DSN"
	EnvDBHost = "GLOWCART_DB_HOST"
	EnvDBUser = "GLOWCART_DB_USER"
	EnvDBName = "GLOWCART_DB_NAME"

	EnvRedisURL = "GLOWCART_REDIS_URL"

	EnvJWTSecret  = "GLOWCART_JWT_SECRET"
	EnvJWTIssuer  = "GLOWCART_JWT_ISSUER"
	EnvJWTExpMins = "GLOWCART_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "GLOWCART_USE_SQLITE"

	EnvReservationGuestTTL      = "GLOWCART_RESERVATION_GUEST_TTL"
	EnvReservationRegisteredTTL = "GLOWCART_RESERVATION_REGISTERED_TTL"
	EnvReservationMaxExtension  = "GLOWCART_RESERVATION_MAX_EXTENSION"
	EnvReservationSweepInterval = "GLOWCART_RESERVATION_SWEEP_INTERVAL"
	EnvReservationMaxRetries    = "GLOWCART_RESERVATION_MAX_RETRIES"

	EnvOutboxBatchSize   = "GLOWCART_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts = "GLOWCART_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetention   = "GLOWCART_OUTBOX_RETENTION"
	EnvCORSOrigins       = "GLOWCART_CORS_ORIGINS"

	EnvGCPProjectID           = "GLOWCART_GCP_PROJECT_ID"
	EnvPubSubReservationTopic = "GLOWCART_PUBSUB_RESERVATIONS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
