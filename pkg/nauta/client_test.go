package nauta

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nautacli/nauta/pkg/logger"
	"github.com/spf13/afero"
)

// stubGateway scripts Gateway answers without any network.
type stubGateway struct {
	mu sync.Mutex

	negotiateErr error
	loginErr     error
	uuid         string
	// logoutErrs is consumed one entry per Logout call; once exhausted
	// every further call succeeds.
	logoutErrs   []error
	logoutCalls  int
	logoutUsers  []string
	loginCalls   int
	negotiations int
}

func (g *stubGateway) Negotiate(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.negotiations++
	if g.negotiateErr != nil {
		return nil, g.negotiateErr
	}
	s := NewSession()
	s.LoginAction = "https://secure.etecsa.net:8443//LoginServlet"
	s.CSRFHW = testCSRF
	s.WlanUserIP = testIP
	return s, nil
}

func (g *stubGateway) Login(ctx context.Context, s *Session, username, password string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loginCalls++
	if g.loginErr != nil {
		return "", g.loginErr
	}
	return g.uuid, nil
}

func (g *stubGateway) Logout(ctx context.Context, s *Session, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logoutCalls++
	g.logoutUsers = append(g.logoutUsers, username)
	if len(g.logoutErrs) == 0 {
		return nil
	}
	err := g.logoutErrs[0]
	g.logoutErrs = g.logoutErrs[1:]
	return err
}

func (g *stubGateway) RemainingTime(ctx context.Context, s *Session, username string) (string, error) {
	return "00:10:00", nil
}

func (g *stubGateway) UserCredit(ctx context.Context, s *Session, username, password string) (string, error) {
	if !s.Negotiated() {
		return "", ErrNoSession
	}
	return "$5.00 CUC", nil
}

type clientFixture struct {
	client  *Client
	gw      *stubGateway
	store   *SessionStore
	history *recordingHistory
	sleeps  []time.Duration
	log     *logger.MockLogger
}

func newClientFixture(t *testing.T, user, password string) *clientFixture {
	t.Helper()
	f := &clientFixture{
		gw:      &stubGateway{uuid: testUUID},
		store:   NewSessionStore(afero.NewMemMapFs(), "/state"),
		history: &recordingHistory{},
		log:     logger.NewMockLogger(),
	}
	retry := RetryConfig{
		MaxAttempts: DEF_LOGOUT_ATTEMPTS,
		Delay:       DEF_LOGOUT_BACKOFF,
		sleep: func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return ctx.Err()
		},
	}
	f.client = NewClient(user, password, ClientOpts{
		Gateway: f.gw,
		Store:   f.store,
		History: f.history,
		Logger:  f.log,
		Retry:   retry,
	})
	return f
}

func netErr() error {
	return &NetworkError{Op: "logout", Err: io.ErrUnexpectedEOF}
}

func TestClient_Login(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !f.client.IsLoggedIn() {
		t.Error("session not saved after login")
	}
	saved, err := f.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Username != testUser || saved.AttributeUUID != testUUID {
		t.Errorf("saved session %+v", saved)
	}
	if len(f.history.starts) != 1 || f.history.starts[0] != testUser {
		t.Errorf("history starts = %v", f.history.starts)
	}
}

func TestClient_LoginNegotiationFails(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	f.gw.negotiateErr = &PreLoginError{Err: ErrAlreadyConnected}

	err := f.client.Login(context.Background())
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
	if f.client.IsLoggedIn() {
		t.Error("nothing should be saved when negotiation fails")
	}
	if f.gw.loginCalls != 0 {
		t.Error("login attempted without a session")
	}
}

func TestClient_LoginRejectedKeepsNegotiatedSession(t *testing.T) {
	f := newClientFixture(t, testUser, "bad")
	f.gw.loginErr = &LoginError{Reason: "Usuario o clave incorrecta"}

	err := f.client.Login(context.Background())
	var le *LoginError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if f.client.Session() == nil || !f.client.IsLoggedIn() {
		t.Error("the negotiated session should be kept for a retry")
	}
	if len(f.history.starts) != 0 {
		t.Error("history recorded for a rejected login")
	}

	// a retry reuses the negotiated session
	f.gw.loginErr = nil
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if f.gw.negotiations != 1 {
		t.Errorf("negotiated %d times, want 1", f.gw.negotiations)
	}
}

func TestClient_LogoutRetries(t *testing.T) {
	for _, k := range []int{0, 1, 4, 9} {
		f := newClientFixture(t, testUser, testPassword)
		if err := f.client.Login(context.Background()); err != nil {
			t.Fatalf("Login: %v", err)
		}
		for i := 0; i < k; i++ {
			f.gw.logoutErrs = append(f.gw.logoutErrs, netErr())
		}

		if err := f.client.Logout(context.Background()); err != nil {
			t.Fatalf("k=%d: Logout: %v", k, err)
		}
		if f.gw.logoutCalls != k+1 {
			t.Errorf("k=%d: %d logout requests, want %d", k, f.gw.logoutCalls, k+1)
		}
		if len(f.sleeps) != k {
			t.Errorf("k=%d: slept %d times, want %d", k, len(f.sleeps), k)
		}
		for _, d := range f.sleeps {
			if d != DEF_LOGOUT_BACKOFF {
				t.Errorf("k=%d: slept %v, want %v", k, d, DEF_LOGOUT_BACKOFF)
			}
		}
		if f.client.IsLoggedIn() || f.client.Session() != nil {
			t.Errorf("k=%d: session not disposed", k)
		}
		if len(f.history.ends) != 1 {
			t.Errorf("k=%d: history recorded %d times, want 1", k, len(f.history.ends))
		}
	}
}

func TestClient_LogoutExhausted(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	for i := 0; i < 20; i++ {
		f.gw.logoutErrs = append(f.gw.logoutErrs, netErr())
	}

	err := f.client.Logout(context.Background())
	var lf *LogoutFailedError
	if !errors.As(err, &lf) {
		t.Fatalf("expected LogoutFailedError, got %v", err)
	}
	if lf.Attempts != DEF_LOGOUT_ATTEMPTS || f.gw.logoutCalls != DEF_LOGOUT_ATTEMPTS {
		t.Errorf("attempts = %d, requests = %d, want %d", lf.Attempts, f.gw.logoutCalls, DEF_LOGOUT_ATTEMPTS)
	}
	if len(f.sleeps) != DEF_LOGOUT_ATTEMPTS-1 {
		t.Errorf("slept %d times, want %d", len(f.sleeps), DEF_LOGOUT_ATTEMPTS-1)
	}
	if !IsNetworkError(err) {
		t.Error("LogoutFailedError should wrap the last network error")
	}
	if !f.client.IsLoggedIn() {
		t.Error("the session record must survive a failed logout")
	}
	if len(f.history.ends) != 1 {
		t.Errorf("history recorded %d times, want 1", len(f.history.ends))
	}
}

func TestClient_LogoutGatewayRefusalNotRetried(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.gw.logoutErrs = []error{&LogoutError{Msg: "FAILURE"}}

	err := f.client.Logout(context.Background())
	var le *LogoutError
	if !errors.As(err, &le) {
		t.Fatalf("expected LogoutError, got %v", err)
	}
	if f.gw.logoutCalls != 1 || len(f.sleeps) != 0 {
		t.Errorf("requests = %d, sleeps = %d, want 1 and 0", f.gw.logoutCalls, len(f.sleeps))
	}
	if len(f.history.ends) != 1 {
		t.Errorf("history recorded %d times, want 1", len(f.history.ends))
	}
}

func TestClient_LogoutWithoutSession(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.gw.logoutCalls != 0 {
		t.Error("logout request sent without a session")
	}
	if len(f.history.ends) != 0 {
		t.Error("history recorded without a session")
	}
	if len(f.log.InfoCalls) == 0 {
		t.Error("expected an informational message")
	}
}

func TestClient_LogoutSavedSessionFromAnotherProcess(t *testing.T) {
	up := newClientFixture(t, testUser, testPassword)
	if err := up.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}

	down := NewClient("", "", ClientOpts{Gateway: up.gw, Store: up.store, History: up.history})
	if err := down.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if down.User() != testUser {
		t.Errorf("User = %q, want the saved username", down.User())
	}
	if len(up.gw.logoutUsers) != 1 || up.gw.logoutUsers[0] != testUser {
		t.Errorf("logged out %v", up.gw.logoutUsers)
	}
	if up.store.Exists() {
		t.Error("record left after logout")
	}
}

func TestClient_LogoutStopsVPN(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.gw.logoutErrs = []error{netErr(), netErr()}

	var checks, kills int
	f.client.vpnProcess = "openvpn"
	f.client.vpnKillCommand = DefaultKillCommand
	f.client.processRunning = func(ctx context.Context, name string) bool {
		checks++
		return checks == 1
	}
	f.client.runHelper = func(ctx context.Context, argv []string) error {
		kills++
		return nil
	}

	if err := f.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if checks != 3 {
		t.Errorf("checked for the VPN %d times, want once per attempt (3)", checks)
	}
	if kills != 1 {
		t.Errorf("ran the kill helper %d times, want 1", kills)
	}
}

func TestClient_LoadLastSession(t *testing.T) {
	f := newClientFixture(t, "", "")
	if err := f.client.LoadLastSession(); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := f.store.Save(&Session{Username: "bob@nauta.co.cu", CSRFHW: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := f.client.LoadLastSession(); err != nil {
		t.Fatalf("LoadLastSession: %v", err)
	}
	if f.client.User() != "bob@nauta.co.cu" || f.client.Session().CSRFHW != "x" {
		t.Errorf("adopted user %q, session %+v", f.client.User(), f.client.Session())
	}
}

func TestClient_Connected(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	ran := false
	err := f.client.Connected(context.Background(), func(ctx context.Context) error {
		ran = true
		if !f.client.IsLoggedIn() {
			t.Error("not logged in inside the scope")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Connected: %v", err)
	}
	if !ran {
		t.Error("fn not run")
	}
	if f.gw.logoutCalls != 1 {
		t.Errorf("logout ran %d times, want 1", f.gw.logoutCalls)
	}
	if f.client.IsLoggedIn() {
		t.Error("session left open")
	}
}

func TestClient_ConnectedCancelled(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	ctx, cancel := context.WithCancel(context.Background())

	err := f.client.Connected(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("a cancelled scope is a clean exit, got %v", err)
	}
	if f.gw.logoutCalls != 1 {
		t.Errorf("logout ran %d times, want 1", f.gw.logoutCalls)
	}
}

func TestClient_ConnectedError(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	boom := errors.New("boom")

	err := f.client.Connected(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if f.gw.logoutCalls != 1 {
		t.Errorf("logout ran %d times, want 1", f.gw.logoutCalls)
	}
}

func TestClient_ConnectedPanic(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	defer func() {
		if r := recover(); r == nil {
			t.Error("panic swallowed")
		}
		if f.gw.logoutCalls != 1 {
			t.Errorf("logout ran %d times, want 1", f.gw.logoutCalls)
		}
	}()
	f.client.Connected(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
}

func TestClient_ConnectedSessionClosedElsewhere(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	err := f.client.Connected(context.Background(), func(ctx context.Context) error {
		other := NewClient("", "", ClientOpts{Gateway: f.gw, Store: f.store})
		return other.Logout(ctx)
	})
	if err != nil {
		t.Fatalf("Connected: %v", err)
	}
	if f.gw.logoutCalls != 1 {
		t.Errorf("logout ran %d times, want 1", f.gw.logoutCalls)
	}
}

func TestClient_ConnectedLoginFailure(t *testing.T) {
	f := newClientFixture(t, testUser, "bad")
	f.gw.loginErr = &LoginError{Reason: "Usuario o clave incorrecta"}
	ran := false

	err := f.client.Connected(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	var le *LoginError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if ran {
		t.Error("fn ran without a login")
	}
	if f.client.IsLoggedIn() || f.client.Session() != nil {
		t.Error("the unfinished session was not discarded")
	}
	if f.gw.logoutCalls != 0 {
		t.Error("logout sent for a session that never logged in")
	}
}

func TestClient_ConnectedLogoutFailureJoined(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	f.gw.logoutErrs = []error{&LogoutError{Msg: "FAILURE"}}

	err := f.client.Connected(context.Background(), func(ctx context.Context) error {
		return nil
	})
	var le *LogoutError
	if !errors.As(err, &le) {
		t.Fatalf("expected the logout error, got %v", err)
	}
}

func TestClient_Queries(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	ctx := context.Background()

	left, err := f.client.RemainingTime(ctx)
	if err != nil || left != "00:10:00" {
		t.Errorf("RemainingTime = %q, %v", left, err)
	}
	credit, err := f.client.UserCredit(ctx)
	if err != nil || credit != "$5.00 CUC" {
		t.Errorf("UserCredit = %q, %v", credit, err)
	}
	if f.store.Exists() {
		t.Error("the temporary credit session was saved")
	}
}

func TestClient_Dispose(t *testing.T) {
	f := newClientFixture(t, testUser, testPassword)
	if err := f.client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.client.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if f.client.IsLoggedIn() || f.client.Session() != nil {
		t.Error("session survived Dispose")
	}
	if f.gw.logoutCalls != 0 {
		t.Error("Dispose must not contact the gateway")
	}
}

func TestNewDefaultClient(t *testing.T) {
	g := newFakeGateway(t)
	check := newCheckServer(t, true)
	cfg := testConfig(g.srv.URL, check.URL)
	dir := t.TempDir()
	h := &recordingHistory{}

	c, err := NewDefaultClient(cfg, dir, testUser, testPassword, h, nil)
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	ctx := context.Background()
	if c.IsConnected(ctx) {
		t.Error("gated network reported as connected")
	}
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.Session().AttributeUUID != testUUID {
		t.Errorf("uuid = %q", c.Session().AttributeUUID)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if g.logouts() != 1 {
		t.Errorf("gateway saw %d logouts, want 1", g.logouts())
	}
	if len(h.starts) != 1 || len(h.ends) != 1 {
		t.Errorf("history starts=%v ends=%v", h.starts, h.ends)
	}
}
