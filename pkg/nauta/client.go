package nauta

import (
	"context"
	"errors"
	"fmt"

	"github.com/nautacli/nauta/pkg/logger"
)

// Gateway is the protocol surface driven by Client. *Protocol implements it.
type Gateway interface {
	Negotiate(ctx context.Context) (*Session, error)
	Login(ctx context.Context, s *Session, username, password string) (string, error)
	Logout(ctx context.Context, s *Session, username string) error
	RemainingTime(ctx context.Context, s *Session, username string) (string, error)
	UserCredit(ctx context.Context, s *Session, username, password string) (string, error)
}

// ClientOpts wires the collaborators of a Client.
type ClientOpts struct {
	Gateway Gateway
	Store   *SessionStore
	Prober  *Prober
	// History receives login and logout timestamps. May be nil.
	History HistoryRecorder
	Logger  logger.Logger
	Retry   RetryConfig
	// VPNProcess is stopped with VPNKillCommand before every logout
	// attempt. Empty disables the check.
	VPNProcess     string
	VPNKillCommand []string
}

// Client manages the life cycle of one gateway session: negotiation,
// login, persistence and a retried logout. A session saved by one process
// can be closed by another through LoadLastSession.
type Client struct {
	user     string
	password string

	gw      Gateway
	store   *SessionStore
	prober  *Prober
	history HistoryRecorder
	log     logger.Logger
	retry   RetryConfig

	vpnProcess     string
	vpnKillCommand []string
	processRunning func(ctx context.Context, name string) bool
	runHelper      func(ctx context.Context, argv []string) error

	session *Session
}

// NewClient returns a client acting for user. user and password may be
// empty when the client is only used to close a saved session.
func NewClient(user, password string, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = DEF_LOGOUT_ATTEMPTS
	}
	return &Client{
		user:           user,
		password:       password,
		gw:             opts.Gateway,
		store:          opts.Store,
		prober:         opts.Prober,
		history:        opts.History,
		log:            opts.Logger,
		retry:          opts.Retry,
		vpnProcess:     opts.VPNProcess,
		vpnKillCommand: opts.VPNKillCommand,
		processRunning: IsProcessRunning,
		runHelper:      RunHelper,
	}
}

// NewDefaultClient wires a Client for cfg with the session files kept in dir.
func NewDefaultClient(cfg *Config, dir, user, password string, history HistoryRecorder, l logger.Logger) (*Client, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	httpClient, err := NewHTTPClient(cfg.Proxy, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	store := NewOsSessionStore(dir)
	prober := NewProber(cfg, httpClient.Transport, l)
	protocol := NewProtocol(cfg, ProtocolOpts{
		Client:   httpClient,
		Prober:   prober,
		Sessions: store,
		Logger:   l,
	})
	return NewClient(user, password, ClientOpts{
		Gateway:        protocol,
		Store:          store,
		Prober:         prober,
		History:        history,
		Logger:         l,
		Retry:          NewRetryConfig(cfg),
		VPNProcess:     cfg.VPNProcess,
		VPNKillCommand: cfg.VPNKillCommand,
	}), nil
}

// User returns the account the client acts for.
func (c *Client) User() string {
	return c.user
}

// Session returns the in-memory session, nil when there is none.
func (c *Client) Session() *Session {
	return c.session
}

// IsLoggedIn reports whether a session record is saved on disk. It does
// not ask the gateway.
func (c *Client) IsLoggedIn() bool {
	return c.store.Exists()
}

// IsConnected reports whether the network is open, i.e. not gated by the portal.
func (c *Client) IsConnected(ctx context.Context) bool {
	if c.prober == nil {
		return false
	}
	return c.prober.IsConnected(ctx)
}

// Login negotiates a session if none is held, logs in and saves the
// session after each step.
func (c *Client) Login(ctx context.Context) error {
	if c.session == nil {
		s, err := c.gw.Negotiate(ctx)
		if err != nil {
			return err
		}
		c.session = s
		if err := c.store.Save(s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		c.log.Debug("session negotiated, login action %s", s.LoginAction)
	}

	uuid, err := c.gw.Login(ctx, c.session, c.user, c.password)
	if err != nil {
		return err
	}
	if uuid == "" {
		c.log.Debug("gateway did not send ATTRIBUTE_UUID")
	}
	c.session.AttributeUUID = uuid
	c.session.Username = c.user
	if err := c.store.Save(c.session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if c.history != nil {
		if err := c.history.RecordLoginStart(c.user); err != nil {
			c.log.Warning("could not record login time for %s: %v", c.user, err)
		}
	}
	c.log.Info("logged in as %s", c.user)
	return nil
}

// Logout closes the held session, or the one saved on disk. Transport
// failures are retried at a fixed interval up to the configured number of
// attempts. Without any session it only logs and returns nil.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		s, err := c.store.Load()
		if errors.Is(err, ErrSessionNotFound) {
			c.log.Info("no active session")
			return nil
		}
		if err != nil {
			return err
		}
		c.adopt(s)
	}

	username := c.user
	if username == "" {
		username = c.session.Username
	}
	defer c.recordLogoutEnd(username)

	state := &RetryState{}
	for {
		c.stopConflictingProcess(ctx)

		state.Attempts++
		err := c.gw.Logout(ctx, c.session, username)
		if err == nil {
			if derr := c.store.Dispose(c.session); derr != nil {
				c.log.Warning("could not remove session record: %v", derr)
			}
			c.session = nil
			c.log.Info("logged out %s", username)
			return nil
		}
		state.LastError = err
		if ClassifyError(err) == ErrCategoryFatal {
			return err
		}
		if !c.retry.ShouldRetry(state, err) {
			break
		}
		c.log.Warning("logout attempt %d/%d failed: %v; retrying in %s",
			state.Attempts, c.retry.MaxAttempts, err, c.retry.Delay)
		if werr := c.retry.WaitForRetry(ctx, state); werr != nil {
			break
		}
	}
	return &LogoutFailedError{Attempts: state.Attempts, Err: state.LastError}
}

func (c *Client) recordLogoutEnd(username string) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordLogoutEnd(username); err != nil {
		c.log.Warning("could not record logout time for %s: %v", username, err)
	}
}

func (c *Client) stopConflictingProcess(ctx context.Context) {
	if c.vpnProcess == "" || !c.processRunning(ctx, c.vpnProcess) {
		return
	}
	c.log.Warning("%s is running, stopping it", c.vpnProcess)
	if err := c.runHelper(ctx, c.vpnKillCommand); err != nil {
		c.log.Warning("could not stop %s: %v", c.vpnProcess, err)
	}
}

// LoadLastSession takes over the session saved on disk, typically by
// another process. The saved username is adopted when the client has none.
func (c *Client) LoadLastSession() error {
	s, err := c.store.Load()
	if err != nil {
		return err
	}
	c.adopt(s)
	return nil
}

func (c *Client) adopt(s *Session) {
	c.session = s
	if c.user == "" {
		c.user = s.Username
	}
}

// Dispose forgets the held session and removes the saved record without
// contacting the gateway.
func (c *Client) Dispose() error {
	err := c.store.Dispose(c.session)
	c.session = nil
	return err
}

// Connected logs in, runs fn and logs out again on every way out of fn:
// normal return, error, panic or cancellation of ctx. The logout runs at
// most once and is skipped when the session was already closed elsewhere.
// fn returning because ctx was cancelled counts as a clean exit.
func (c *Client) Connected(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := c.Login(ctx); err != nil {
		if c.session != nil {
			if derr := c.Dispose(); derr != nil {
				c.log.Warning("could not discard the unfinished session: %v", derr)
			}
		}
		return err
	}

	defer func() {
		if !c.IsLoggedIn() {
			c.log.Info("session was closed elsewhere")
			c.session = nil
			return
		}
		if lerr := c.Logout(context.WithoutCancel(ctx)); lerr != nil {
			err = errors.Join(err, lerr)
		}
	}()

	err = fn(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	return err
}

// RemainingTime asks the gateway for the time left on the account. Without
// a held session the query goes out with empty tokens, which the gateway
// still answers.
func (c *Client) RemainingTime(ctx context.Context) (string, error) {
	s := c.session
	if s == nil {
		s = NewSession()
	}
	return c.gw.RemainingTime(ctx, s, c.user)
}

// UserCredit reads the account credit. Without a held session a temporary
// one is negotiated and dropped afterwards; it is never saved.
func (c *Client) UserCredit(ctx context.Context) (string, error) {
	s := c.session
	if s == nil {
		var err error
		s, err = c.gw.Negotiate(ctx)
		if err != nil {
			return "", err
		}
	}
	return c.gw.UserCredit(ctx, s, c.user, c.password)
}
