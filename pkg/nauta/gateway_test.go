package nauta

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nautacli/nauta/pkg/logger"
	"github.com/spf13/afero"
)

const (
	testUser     = "alice@nauta.com.cu"
	testPassword = "s3cret"
	testCSRF     = "tok123"
	testIP       = "10.190.20.5"
	testUUID     = "abc123"
)

// fakeGateway imitates the captive portal closely enough for the protocol
// flow: landing page, login form, login servlet, logout and query servlets.
type fakeGateway struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	logoutCalls   int
	logoutStatus  int
	logoutBody    string
	loginCookie   string
	lastLogout    map[string]string
	creditPage    string
	queryRedirect string
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		t:            t,
		logoutStatus: http.StatusOK,
		logoutBody:   "logoutcallback('SUCCESS');",
		creditPage: `<html><body><table id="sessioninfo"><tbody>
<tr><td>Estado:</td><td>Activa</td></tr>
<tr><td>Saldo:</td><td>
   $12.50 CUC
</td></tr>
</tbody></table></body></html>`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.landing)
	mux.HandleFunc("/LoginServlet", g.login)
	mux.HandleFunc("/web/online.do", g.online)
	mux.HandleFunc("/LogoutServlet", g.logout)
	mux.HandleFunc("/EtecsaQueryServlet", g.query)
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
	if r.Method == http.MethodGet {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "J1", Path: "/"})
		fmt.Fprintf(w, `<html><body><form action="/" method="post">
<input type="hidden" name="wlanuserip" value="%s">
<input type="hidden" name="ssid" value="">
</form></body></html>`, testIP)
		return
	}
	fmt.Fprintf(w, `<html><body>
<form id="formulario" action="/LoginServlet" method="post">
<input type="hidden" name="CSRFHW" value="%s">
<input type="hidden" name="wlanuserip" value="%s">
<input type="text" name="username">
<input type="password" name="password">
</form></body></html>`, testCSRF, testIP)
}

func (g *fakeGateway) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c, err := r.Cookie("JSESSIONID"); err == nil {
		g.mu.Lock()
		g.loginCookie = c.Value
		g.mu.Unlock()
	}
	if r.PostForm.Get("username") != testUser || r.PostForm.Get("password") != testPassword ||
		r.PostForm.Get("CSRFHW") != testCSRF {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><script>var x = 1;</script></head><body>
<script type="text/javascript">alert("Usuario o clave incorrecta");</script>
</body></html>`)
		return
	}
	http.Redirect(w, r, "/web/online.do?ATTRIBUTE_UUID="+testUUID+"&CSRFHW="+testCSRF, http.StatusFound)
}

func (g *fakeGateway) online(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `<html><script>var urlParam = "ATTRIBUTE_UUID=%s&CSRFHW=%s&wlanuserip=%s";</script></html>`,
		testUUID, testCSRF, testIP)
}

func (g *fakeGateway) logout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g.mu.Lock()
	g.logoutCalls++
	g.lastLogout = map[string]string{
		"CSRFHW":         q.Get("CSRFHW"),
		"username":       q.Get("username"),
		"ATTRIBUTE_UUID": q.Get("ATTRIBUTE_UUID"),
		"wlanuserip":     q.Get("wlanuserip"),
	}
	status, body := g.logoutStatus, g.logoutBody
	g.mu.Unlock()
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (g *fakeGateway) query(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("op") == "getLeftTime" {
		fmt.Fprint(w, "01:23:45")
		return
	}
	if g.queryRedirect != "" {
		http.Redirect(w, r, g.queryRedirect, http.StatusFound)
		return
	}
	fmt.Fprint(w, g.creditPage)
}

func (g *fakeGateway) logouts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logoutCalls
}

// newCheckServer serves the probe page, either rewritten by the portal
// (gated) or the real one.
func newCheckServer(t *testing.T, gated bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gated {
			fmt.Fprint(w, `<html><meta http-equiv="refresh" content="0;url=https://secure.etecsa.net:8443/"></html>`)
			return
		}
		fmt.Fprint(w, `<html><title>Cubadebate</title></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(gatewayURL, checkURL string) *Config {
	cfg := DefaultConfig()
	cfg.GatewayURL = gatewayURL
	cfg.CheckURL = checkURL
	cfg.ProbeTimeout = 2 * time.Second
	cfg.RequestTimeout = 5 * time.Second
	cfg.LogoutBackoff = time.Millisecond
	cfg.VPNProcess = ""
	return cfg
}

// recordingHistory counts history calls per user.
type recordingHistory struct {
	mu     sync.Mutex
	starts []string
	ends   []string
	err    error
}

func (h *recordingHistory) RecordLoginStart(username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, username)
	return h.err
}

func (h *recordingHistory) RecordLogoutEnd(username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, username)
	return h.err
}

// newTestProtocol wires a Protocol against g with a gated check page and an
// in-memory session store.
func newTestProtocol(t *testing.T, g *fakeGateway, history HistoryRecorder) (*Protocol, *SessionStore) {
	t.Helper()
	check := newCheckServer(t, true)
	cfg := testConfig(g.srv.URL, check.URL)
	store := NewSessionStore(afero.NewMemMapFs(), "/state")
	httpClient, err := NewHTTPClient("", cfg.RequestTimeout)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	l := logger.NewNopLogger()
	p := NewProtocol(cfg, ProtocolOpts{
		Client:   httpClient,
		Prober:   NewProber(cfg, httpClient.Transport, l),
		Sessions: store,
		History:  history,
		Logger:   l,
	})
	return p, store
}
