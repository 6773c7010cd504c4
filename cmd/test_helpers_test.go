package cmd

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nautacli/nauta/common"
	"github.com/nautacli/nauta/internal/history"
	"github.com/nautacli/nauta/pkg/logger"
	"github.com/nautacli/nauta/pkg/nauta"
	"github.com/urfave/cli"
)

const (
	testUser     = "alice@nauta.com.cu"
	testPassword = "s3cret"
	testKey      = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// captureOutput captures stdout and stderr during function execution.
// It redirects os.Stdout and os.Stderr to pipes, runs the provided function,
// and returns the captured output as strings.
func captureOutput(f func()) (stdout, stderr string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	var bufOut, bufErr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(&bufOut, rOut) }()
	go func() { defer wg.Done(); io.Copy(&bufErr, rErr) }()

	f()

	wOut.Close()
	wErr.Close()
	wg.Wait()
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	rOut.Close()
	rErr.Close()

	return bufOut.String(), bufErr.String()
}

// assertContains checks if output contains the expected substring.
func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// assertNotContains checks if output does NOT contain the specified substring.
func assertNotContains(t *testing.T, output, notExpected string) {
	t.Helper()
	if strings.Contains(output, notExpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", notExpected, output)
	}
}

// newContext creates a CLI context for testing commands.
func newContext(app *cli.App, args []string, name string) *cli.Context {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: name}
	return ctx
}

func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Name = "nauta"
	app.HelpName = "nauta"
	return app
}

// fakeGateway answers like the portal without any network.
type fakeGateway struct {
	mu sync.Mutex

	negotiateErr error
	loginErr     error
	logoutErr    error
	left         string
	credit       string
	// onRemaining runs inside every remaining time query.
	onRemaining func()

	negotiations int
	logins       int
	logouts      int
}

func (g *fakeGateway) Negotiate(ctx context.Context) (*nauta.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.negotiations++
	if g.negotiateErr != nil {
		return nil, g.negotiateErr
	}
	s := nauta.NewSession()
	s.LoginAction = "https://secure.etecsa.net:8443/LoginServlet"
	s.CSRFHW = "tok123"
	s.WlanUserIP = "10.190.20.5"
	return s, nil
}

func (g *fakeGateway) Login(ctx context.Context, s *nauta.Session, username, password string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logins++
	if g.loginErr != nil {
		return "", g.loginErr
	}
	return "abc123", nil
}

func (g *fakeGateway) Logout(ctx context.Context, s *nauta.Session, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logouts++
	return g.logoutErr
}

func (g *fakeGateway) RemainingTime(ctx context.Context, s *nauta.Session, username string) (string, error) {
	g.mu.Lock()
	hook := g.onRemaining
	left := g.left
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	return left, nil
}

func (g *fakeGateway) UserCredit(ctx context.Context, s *nauta.Session, username, password string) (string, error) {
	return g.credit, nil
}

func (g *fakeGateway) counts() (logins, logouts int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logins, g.logouts
}

// setupCmdTest points the commands at a fresh config directory and a fake
// gateway, and resets the command flags.
func setupCmdTest(t *testing.T) (dir string, gw *fakeGateway) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv(common.ConfigDirEnv, dir)
	t.Setenv(common.CredentialKeyEnv, testKey)
	t.Setenv(common.ProxyEnv, "")
	t.Setenv(common.DebugEnv, "")

	gw = &fakeGateway{left: "01:00:00", credit: "$12.50 CUC"}
	origClient := newClient
	newClient = func(cfg *nauta.Config, dir, user, password string, h nauta.HistoryRecorder, l logger.Logger) (*nauta.Client, error) {
		return nauta.NewClient(user, password, nauta.ClientOpts{
			Gateway: gw,
			Store:   nauta.NewOsSessionStore(dir),
			History: h,
			Logger:  logger.NewNopLogger(),
			Retry:   nauta.RetryConfig{MaxAttempts: 1},
		}), nil
	}

	origOutput, origTick, origPrompt := barOutput, waitTick, readPassword
	barOutput = io.Discard
	readPassword = func(string) (string, error) {
		t.Error("unexpected password prompt")
		return "", errEmptyPassword
	}

	t.Cleanup(func() {
		newClient = origClient
		barOutput, waitTick, readPassword = origOutput, origTick, origPrompt
		sessionTime, batchMode, noLog = "", false, false
		runUser, runPassword = "", ""
		showSummary, debugMode = false, false
	})
	return dir, gw
}

func sessionSaved(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, nauta.SessionFileName))
	return err == nil
}

func historyEntries(t *testing.T, dir string) []history.Entry {
	t.Helper()
	h, err := history.Open(filepath.Join(dir, history.FileName))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()
	entries, err := h.List()
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return entries
}
