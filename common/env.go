// Package common provides shared constants used across the nauta
// command-line client and its libraries.
package common

// Environment variable names for configuration.
const (
	// ConfigDirEnv overrides the directory holding the session record,
	// the databases and config.toml.
	ConfigDirEnv = "NAUTA_CONFIG_DIR"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "NAUTA_DEBUG"

	// ProxyEnv routes gateway traffic through an HTTP or SOCKS5 proxy.
	ProxyEnv = "NAUTA_PROXY"

	// CredentialKeyEnv supplies the hex encoded credential encryption key,
	// bypassing the system keyring.
	CredentialKeyEnv = "NAUTA_CREDENTIAL_KEY"
)
