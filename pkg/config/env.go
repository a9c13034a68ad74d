package config

const (
	EnvPrefix = "UNIFORMHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv            = "UNIFORMHUB_APP_ENV"
	EnvPort              = "UNIFORMHUB_APP_PORT"
	EnvDBDSN             = "UNIFORMHUB_DB_DSN"
	EnvDBHost            = "UNIFORMHUB_DB_HOST"
	EnvDBUser            = "UNIFORMHUB_DB_USER"
	EnvDBName            = "UNIFORMHUB_DB_NAME"
	EnvRedisURL          = "UNIFORMHUB_REDIS_URL"
	EnvIdentityPublicKey = "UNIFORMHUB_IDENTITY_PUBLIC_KEY"
	EnvIdentityIssuer    = "UNIFORMHUB_IDENTITY_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
