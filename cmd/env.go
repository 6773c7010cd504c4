package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/nautacli/nauta/common"
	"github.com/nautacli/nauta/internal/history"
	"github.com/nautacli/nauta/pkg/credman"
	"github.com/nautacli/nauta/pkg/credman/keyring"
	"github.com/nautacli/nauta/pkg/logger"
	"github.com/nautacli/nauta/pkg/nauta"
)

// newClient builds the session manager for the commands.
var newClient = nauta.NewDefaultClient

// environment is what every command needs: the config directory, the
// loaded configuration and the logger.
type environment struct {
	dir string
	cfg *nauta.Config
	log logger.Logger
}

func setupEnv() (*environment, error) {
	dir, err := nauta.ResolveConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := nauta.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	return &environment{
		dir: dir,
		cfg: cfg,
		log: newLogger(dir),
	}, nil
}

func debugEnabled() bool {
	return debugMode || os.Getenv(common.DebugEnv) == "1"
}

// newLogger writes warnings and progress to stderr. In debug mode every
// message also goes to nauta.log in the config directory.
func newLogger(dir string) logger.Logger {
	stderr := log.New(os.Stderr, "", 0)
	if !debugEnabled() {
		return logger.NewStandardLogger(stderr)
	}
	console := logger.NewDebugLogger(stderr)
	fl, err := logger.NewFileLogger(filepath.Join(dir, nauta.LogFileName))
	if err != nil {
		console.Warning("cannot open log file: %v", err)
		return console
	}
	return logger.NewMultiLogger(console, fl)
}

func (e *environment) Close() {
	e.log.Close()
}

// credentialKey returns the key that encrypts stored passwords. The
// environment variable wins over the system keyring, and the key file in
// the config directory is used when no keyring is available.
func (e *environment) credentialKey() ([]byte, error) {
	if v := os.Getenv(common.CredentialKeyEnv); v != "" {
		return keyring.ParseHexKey(v)
	}
	return keyring.LoadKey(keyring.NewKeyring(), keyring.NewFileKeyStore(e.dir))
}

func (e *environment) openUsers() (*credman.Manager, error) {
	key, err := e.credentialKey()
	if err != nil {
		return nil, err
	}
	return credman.NewManager(filepath.Join(e.dir, credman.UsersFileName), key)
}

func (e *environment) openHistory() (*history.Store, error) {
	return history.Open(filepath.Join(e.dir, history.FileName))
}

// client builds a session manager for the given account. Connection
// history is kept unless noLog is set or the database cannot be opened.
// The returned closer releases the history database.
func (e *environment) client(user, password string, noLog bool) (*nauta.Client, func(), error) {
	var rec nauta.HistoryRecorder
	closer := func() {}
	if !noLog {
		h, err := e.openHistory()
		if err != nil {
			e.log.Warning("connection history disabled: %v", err)
		} else {
			rec = h
			closer = func() { h.Close() }
		}
	}
	c, err := newClient(e.cfg, e.dir, user, password, rec, e.log)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return c, closer, nil
}

// resolveUser turns the command line account into stored credentials: an
// empty name selects the default account, a name is matched as a prefix
// of the stored ones, and a password given on the command line wins.
func (e *environment) resolveUser(name, password string) (string, string, error) {
	m, err := e.openUsers()
	if err != nil {
		if name == "" {
			return "", "", err
		}
		e.log.Debug("users database unavailable: %v", err)
		return name, password, nil
	}
	defer m.Close()

	u, err := m.Credentials(name, password)
	if err != nil {
		return "", "", err
	}
	return u.Name, u.Password, nil
}
