package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig             = "SHOTTY_CONFIG"
	EnvToken              = "SHOTTY_TOKEN"
	EnvServerConfig       = "SHOTTY_AUTH_CONFIG"
	EnvServerListen       = "SHOTTY_AUTH_LISTEN"
	EnvServerClientID     = "SHOTTY_AUTH_CLIENT_ID"
	EnvServerClientSecret = "SHOTTY_AUTH_CLIENT_SECRET"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath         string // SHOTTY_CONFIG: client config file path
	Token              string // SHOTTY_TOKEN: access token override
	ServerConfigPath   string // SHOTTY_AUTH_CONFIG: server config file path
	ServerListen       string // SHOTTY_AUTH_LISTEN: listen address override
	ServerClientID     string // SHOTTY_AUTH_CLIENT_ID: app key override
	ServerClientSecret string // SHOTTY_AUTH_CLIENT_SECRET: app secret override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:         os.Getenv(EnvConfig),
		Token:              os.Getenv(EnvToken),
		ServerConfigPath:   os.Getenv(EnvServerConfig),
		ServerListen:       os.Getenv(EnvServerListen),
		ServerClientID:     os.Getenv(EnvServerClientID),
		ServerClientSecret: os.Getenv(EnvServerClientSecret),
	}
}

// ClientPath picks the client config path: flag > env > default.
func (e EnvOverrides) ClientPath(flag string) string {
	if flag != "" {
		return flag
	}

	if e.ConfigPath != "" {
		return e.ConfigPath
	}

	return DefaultClientPath()
}

// ServerPath picks the server config path: flag > env > default.
func (e EnvOverrides) ServerPath(flag string) string {
	if flag != "" {
		return flag
	}

	if e.ServerConfigPath != "" {
		return e.ServerConfigPath
	}

	return DefaultServerPath()
}
