package nauta

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nautacli/nauta/pkg/logger"
	"golang.org/x/net/html/charset"
)

// maxPageSize caps how much of a gateway page is read.
const maxPageSize = 8 << 20

// HistoryRecorder is the connection-history collaborator.
type HistoryRecorder interface {
	RecordLoginStart(username string) error
	RecordLogoutEnd(username string) error
}

// SessionIndicator reports whether a session is currently considered open.
type SessionIndicator interface {
	Exists() bool
}

// ProtocolOpts wires the collaborators of a Protocol.
type ProtocolOpts struct {
	// Client performs every gateway request. Its Jar is ignored; each
	// request uses the jar of the session it acts on.
	Client *http.Client
	// Prober and Sessions back the negotiation preconditions. Either may be nil.
	Prober   *Prober
	Sessions SessionIndicator
	// History, when set, gets a logout timestamp after every answered
	// logout request.
	History HistoryRecorder
	Logger  logger.Logger
}

// Protocol speaks the gateway's form-based login protocol. It keeps no
// state of its own: every operation acts on the Session passed to it.
type Protocol struct {
	cfg      *Config
	client   *http.Client
	prober   *Prober
	sessions SessionIndicator
	history  HistoryRecorder
	log      logger.Logger
}

// NewProtocol returns a protocol client for the gateway described by cfg.
func NewProtocol(cfg *Config, opts ProtocolOpts) *Protocol {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	return &Protocol{
		cfg:      cfg,
		client:   opts.Client,
		prober:   opts.Prober,
		sessions: opts.Sessions,
		history:  opts.History,
		log:      opts.Logger,
	}
}

type page struct {
	status int
	reason string
	url    *url.URL
	body   string
}

func (pg *page) ok() bool {
	return pg.status >= 200 && pg.status < 300
}

func (pg *page) statusLine() string {
	return fmt.Sprintf("%d - %s", pg.status, pg.reason)
}

// do performs one request with the session's cookies and returns the final
// page after redirects. Transport failures come back as *NetworkError.
func (p *Protocol) do(ctx context.Context, s *Session, op, method, rawURL string, form url.Values) (*page, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &ProtocolError{Msg: fmt.Sprintf("%s: invalid request: %v", op, err)}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	client := *p.client
	client.Jar = s.Jar()

	p.log.Debug("%s: %s %s", op, method, redactQuery(req.URL))
	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	pg := &page{
		status: resp.StatusCode,
		reason: strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		url:    resp.Request.URL,
		body:   decodeBody(raw, resp.Header.Get("Content-Type")),
	}
	p.log.Debug("%s: %d from %s", op, pg.status, redactQuery(pg.url))
	return pg, nil
}

// Negotiate opens a new handshake: it fetches the landing page, posts its
// hidden inputs back and collects the login form's action and tokens.
func (p *Protocol) Negotiate(ctx context.Context) (*Session, error) {
	if p.sessions != nil && p.sessions.Exists() {
		return nil, &PreLoginError{Err: ErrSessionOpen}
	}
	if p.prober != nil && p.prober.IsConnected(ctx) {
		return nil, &PreLoginError{Err: ErrAlreadyConnected}
	}

	s := NewSession()
	landing, err := p.do(ctx, s, "negotiate", http.MethodGet, p.cfg.GatewayURL, nil)
	if err != nil {
		return nil, &PreLoginError{Msg: "cannot reach the gateway", Err: err}
	}
	if !landing.ok() {
		return nil, &PreLoginError{Msg: "failed to create session: " + landing.statusLine()}
	}
	doc, err := parseHTML(landing.body)
	if err != nil {
		return nil, &PreLoginError{Msg: "unreadable landing page", Err: err}
	}

	form := url.Values{}
	for name, value := range formInputs(doc) {
		form.Set(name, value)
	}
	loginPage, err := p.do(ctx, s, "negotiate", http.MethodPost, p.cfg.GatewayURL, form)
	if err != nil {
		return nil, &PreLoginError{Msg: "cannot reach the gateway", Err: err}
	}
	doc, err = parseHTML(loginPage.body)
	if err != nil {
		return nil, &LoginError{Reason: "unreadable login page"}
	}
	formNode, action := loginForm(doc)
	if formNode == nil || action == "" {
		return nil, &LoginError{Reason: "the gateway did not return a login form"}
	}
	actionURL, err := loginPage.url.Parse(action)
	if err != nil {
		return nil, &LoginError{Reason: fmt.Sprintf("invalid login form action %q", action)}
	}
	inputs := formInputs(formNode)

	s.LoginAction = actionURL.String()
	s.CSRFHW = inputs["CSRFHW"]
	s.WlanUserIP = inputs["wlanuserip"]
	if !s.Negotiated() {
		return nil, &LoginError{Reason: "the login form lacks CSRFHW or wlanuserip"}
	}
	p.log.Debug("negotiate: login action %s", s.LoginAction)
	return s, nil
}

// Login submits the credentials on a negotiated session and returns the
// ATTRIBUTE_UUID, or "" when the gateway did not include one.
func (p *Protocol) Login(ctx context.Context, s *Session, username, password string) (string, error) {
	if !s.Negotiated() {
		return "", ErrNoSession
	}
	form := url.Values{
		"CSRFHW":     {s.CSRFHW},
		"wlanuserip": {s.WlanUserIP},
		"username":   {username},
		"password":   {password},
	}
	pg, err := p.do(ctx, s, "login", http.MethodPost, s.LoginAction, form)
	if err != nil {
		return "", err
	}
	if !pg.ok() {
		return "", &LoginError{Reason: pg.statusLine()}
	}
	if !strings.Contains(pg.url.String(), p.cfg.OnlineMarker) {
		var reason string
		if doc, err := parseHTML(pg.body); err == nil {
			reason = loginFailureReason(doc)
		}
		return "", &LoginError{Reason: reason}
	}
	return attributeUUID(pg.body), nil
}

// Logout asks the gateway to close the session. The gateway must answer
// with a 2xx status and a body containing "SUCCESS".
func (p *Protocol) Logout(ctx context.Context, s *Session, username string) error {
	q := url.Values{
		"CSRFHW":         {s.CSRFHW},
		"username":       {username},
		"ATTRIBUTE_UUID": {s.AttributeUUID},
		"wlanuserip":     {s.WlanUserIP},
	}
	pg, err := p.do(ctx, s, "logout", http.MethodPost, p.cfg.logoutURL()+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if p.history != nil {
		defer func() {
			if herr := p.history.RecordLogoutEnd(username); herr != nil {
				p.log.Warning("could not record logout time for %s: %v", username, herr)
			}
		}()
	}
	if !pg.ok() {
		return &LogoutError{Msg: pg.statusLine()}
	}
	if !strings.Contains(strings.ToUpper(pg.body), "SUCCESS") {
		return &LogoutError{Msg: truncate(pg.body, 100)}
	}
	return nil
}

// RemainingTime asks for the time left on the account. The answer is
// returned as the gateway sent it.
func (p *Protocol) RemainingTime(ctx context.Context, s *Session, username string) (string, error) {
	form := url.Values{
		"op":             {"getLeftTime"},
		"ATTRIBUTE_UUID": {s.AttributeUUID},
		"CSRFHW":         {s.CSRFHW},
		"wlanuserip":     {s.WlanUserIP},
		"username":       {username},
	}
	pg, err := p.do(ctx, s, "remaining-time", http.MethodPost, p.cfg.queryURL(), form)
	if err != nil {
		return "", err
	}
	return pg.body, nil
}

// UserCredit reads the account credit. It only works while the network is
// still gated.
func (p *Protocol) UserCredit(ctx context.Context, s *Session, username, password string) (string, error) {
	form := url.Values{
		"CSRFHW":     {s.CSRFHW},
		"wlanuserip": {s.WlanUserIP},
		"username":   {username},
		"password":   {password},
	}
	pg, err := p.do(ctx, s, "credit", http.MethodPost, p.cfg.queryURL(), form)
	if err != nil {
		return "", err
	}
	if !pg.ok() {
		return "", &ProtocolError{Msg: "failed to get user information: " + pg.statusLine()}
	}
	if !strings.EqualFold(pg.url.Host, p.cfg.gatewayHost()) {
		return "", &ProtocolError{Msg: "cannot query credit while online"}
	}
	doc, err := parseHTML(pg.body)
	if err != nil {
		return "", &ProtocolError{Msg: "failed to get user credit: unreadable page"}
	}
	credit, ok := creditCell(doc)
	if !ok {
		return "", &ProtocolError{Msg: "failed to get user credit: information not found"}
	}
	return credit, nil
}

// decodeBody converts a page to UTF-8 using the declared or sniffed charset;
// the gateway serves ISO-8859-1.
func decodeBody(raw []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// redactQuery hides query values, which carry tokens, from debug logs.
func redactQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return u.String()
	}
	c := *u
	c.RawQuery = "…"
	return c.String()
}
