package config

const (
	// EnvPrefix namespaces every environment variable read by Load.
	EnvPrefix = "minimarket"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MINIMARKET_DB_DSN"
	EnvDBHost = "MINIMARKET_DB_HOST"
	EnvDBUser = "MINIMARKET_DB_USER"
	EnvDBName = "MINIMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
