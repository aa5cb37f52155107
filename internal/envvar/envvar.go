package envvar

const (
	// ModelserveEnv is the environment variable used to determine the environment tier
	ModelserveEnv = "MODELSERVE_ENV"

	// ModelserveServerHTTPPort is the environment variable used to determine the HTTP port
	ModelserveServerHTTPPort = "MODELSERVE_SERVER_HTTP_PORT"

	// ModelserveConfigPath is the environment variable used to override the config directory
	ModelserveConfigPath = "MODELSERVE_CONFIG_PATH"
)
