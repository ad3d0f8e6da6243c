package config

// EnvPrefix scopes every environment variable read by envconfig.
const EnvPrefix = "TELAVO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Canonical environment variable names, shared with tests and deploy manifests.
const (
	EnvAppEnv     = "TELAVO_APP_ENV"
	EnvPort       = "TELAVO_APP_PORT"
	EnvDBDSN      = "TELAVO_DB_DSN"
	EnvDBHost     = "TELAVO_DB_HOST"
	EnvDBUser     = "TELAVO_DB_USER"
	EnvDBName     = "TELAVO_DB_NAME"
	EnvRedisURL   = "TELAVO_REDIS_URL"
	EnvJWTSecret  = "TELAVO_JWT_SECRET"
	EnvJWTIssuer  = "TELAVO_JWT_ISSUER"
	EnvJWTExpMins = "TELAVO_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
