package nauta

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nautacli/nauta/common"
)

const (
	DEF_GATEWAY_URL     = "https://secure.etecsa.net:8443"
	DEF_CHECK_URL       = "http://www.cubadebate.cu/"
	DEF_PORTAL_MARKER   = "secure.etecsa.net"
	DEF_ONLINE_MARKER   = "online.do"
	DEF_PROBE_TIMEOUT   = 3 * time.Second
	DEF_REQUEST_TIMEOUT = 30 * time.Second
	DEF_LOGOUT_ATTEMPTS = 10
	DEF_LOGOUT_BACKOFF  = 10 * time.Second
	DEF_VPN_PROCESS     = "openvpn"
	DEF_USER_AGENT      = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
)

const (
	ConfigFileName  = "config.toml"
	SessionFileName = "nauta-session"
	CookieFileName  = SessionFileName + ".cookies"
	LogFileName     = "nauta.log"

	logoutPath = "/LogoutServlet"
	queryPath  = "/EtecsaQueryServlet"
)

// DefaultKillCommand terminates a running VPN client through a privileged helper.
var DefaultKillCommand = []string{"sudo", "kill_openvpn.sh"}

// Config holds everything the client needs to reach the gateway.
// Durations in config.toml are written as strings, e.g. logout_backoff = "10s".
type Config struct {
	// GatewayURL is the landing endpoint; the logout and query servlets
	// live under it.
	GatewayURL string `toml:"gateway_url"`
	// CheckURL is an external page fetched to tell a gated network from an open one.
	CheckURL string `toml:"check_url"`
	// PortalMarker appears in the CheckURL response only when the gateway
	// intercepted the request.
	PortalMarker string `toml:"portal_marker"`
	// OnlineMarker is part of the URL the gateway redirects to after a good login.
	OnlineMarker string `toml:"online_marker"`

	ProbeTimeout   time.Duration `toml:"probe_timeout"`
	RequestTimeout time.Duration `toml:"request_timeout"`

	LogoutAttempts int           `toml:"logout_attempts"`
	LogoutBackoff  time.Duration `toml:"logout_backoff"`

	// VPNProcess names a process that must be stopped before logging out.
	// Empty disables the check.
	VPNProcess     string   `toml:"vpn_process"`
	VPNKillCommand []string `toml:"vpn_kill_command"`

	Proxy     string `toml:"proxy"`
	UserAgent string `toml:"user_agent"`
}

// DefaultConfig returns a Config for the ETECSA Nauta gateway.
func DefaultConfig() *Config {
	return &Config{
		GatewayURL:     DEF_GATEWAY_URL,
		CheckURL:       DEF_CHECK_URL,
		PortalMarker:   DEF_PORTAL_MARKER,
		OnlineMarker:   DEF_ONLINE_MARKER,
		ProbeTimeout:   DEF_PROBE_TIMEOUT,
		RequestTimeout: DEF_REQUEST_TIMEOUT,
		LogoutAttempts: DEF_LOGOUT_ATTEMPTS,
		LogoutBackoff:  DEF_LOGOUT_BACKOFF,
		VPNProcess:     DEF_VPN_PROCESS,
		VPNKillCommand: append([]string(nil), DefaultKillCommand...),
		UserAgent:      DEF_USER_AGENT,
	}
}

// LoadConfig returns the defaults overlaid with dir/config.toml, when it
// exists, and with the proxy environment variable.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if p := os.Getenv(common.ProxyEnv); p != "" {
		cfg.Proxy = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GatewayURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid gateway_url %q", c.GatewayURL)
	}
	if _, err := url.Parse(c.CheckURL); err != nil || c.CheckURL == "" {
		return fmt.Errorf("invalid check_url %q", c.CheckURL)
	}
	if c.PortalMarker == "" {
		return errors.New("portal_marker cannot be empty")
	}
	if c.LogoutAttempts < 1 {
		return fmt.Errorf("logout_attempts must be at least 1, got %d", c.LogoutAttempts)
	}
	if c.LogoutBackoff < 0 || c.ProbeTimeout < 0 || c.RequestTimeout < 0 {
		return errors.New("durations cannot be negative")
	}
	if c.VPNProcess != "" && len(c.VPNKillCommand) == 0 {
		return errors.New("vpn_kill_command is required when vpn_process is set")
	}
	if c.Proxy != "" {
		if _, err := ParseProxyURL(c.Proxy); err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
	}
	return nil
}

func (c *Config) logoutURL() string {
	return strings.TrimRight(c.GatewayURL, "/") + logoutPath
}

func (c *Config) queryURL() string {
	return strings.TrimRight(c.GatewayURL, "/") + queryPath
}

// gatewayHost is the host[:port] pages served by the gateway come from.
func (c *Config) gatewayHost() string {
	u, err := url.Parse(c.GatewayURL)
	if err != nil {
		return c.GatewayURL
	}
	return u.Host
}

// ResolveConfigDir returns the directory holding nauta's state, creating
// it if needed. The environment variable wins over the platform default.
func ResolveConfigDir() (string, error) {
	dir := os.Getenv(common.ConfigDirEnv)
	if dir == "" {
		cdr, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cdr, "nauta")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return "", err
	}
	return abs, nil
}
