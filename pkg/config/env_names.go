package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without a tag.
const EnvPrefix = "TILLPOINT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "TILLPOINT_APP_ENV"
	EnvAppPort = "TILLPOINT_APP_PORT"
	EnvDBDSN   = "TILLPOINT_DB_DSN"
	EnvDBHost  = "TILLPOINT_DB_HOST"
	EnvDBUser  = "TILLPOINT_DB_USER"
	EnvDBName  = "TILLPOINT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
