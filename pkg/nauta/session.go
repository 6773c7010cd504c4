package nauta

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Session is one authentication handshake with the gateway. The form
// tokens are filled in together by a successful negotiation; AttributeUUID
// and Username are set by a successful login. The JSON form is the
// persisted session record; the cookie jar is persisted separately.
type Session struct {
	LoginAction   string `json:"login_action"`
	CSRFHW        string `json:"csrfhw"`
	WlanUserIP    string `json:"wlanuserip"`
	AttributeUUID string `json:"attribute_uuid"`
	Username      string `json:"username"`

	jar *Jar
}

// NewSession returns an empty session with its own cookie jar.
func NewSession() *Session {
	return &Session{jar: NewJar()}
}

// Jar returns the cookie jar bound to the session.
func (s *Session) Jar() *Jar {
	if s.jar == nil {
		s.jar = NewJar()
	}
	return s.jar
}

// Negotiated reports whether the session holds the form tokens needed to log in.
func (s *Session) Negotiated() bool {
	return s.LoginAction != "" && s.CSRFHW != "" && s.WlanUserIP != ""
}

// Authenticated reports whether a login succeeded on this session.
func (s *Session) Authenticated() bool {
	return s.Username != ""
}

// Cookie is a single cookie as kept in the session's cookie file.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	// HostOnly is true when the cookie must not be sent to subdomains.
	HostOnly bool
	Path     string
	// Expiry is zero for cookies that end with the browser session.
	Expiry   time.Time
	Secure   bool
	HttpOnly bool
}

func (c Cookie) key() string {
	return c.Domain + "\x00" + c.Path + "\x00" + c.Name
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !c.Expiry.After(now)
}

// Jar is an http.CookieJar that remembers every cookie it accepted so it
// can be written to disk and restored by another process.
type Jar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]Cookie
	now     func() time.Time
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{
		jar:     newCookieJar(),
		entries: make(map[string]Cookie),
		now:     time.Now,
	}
}

func newCookieJar() *cookiejar.Jar {
	// cookiejar.New always returns a nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
	now := j.now()
	for _, hc := range cookies {
		c := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Path:     hc.Path,
			Secure:   hc.Secure,
			HttpOnly: hc.HttpOnly,
		}
		if hc.Domain == "" {
			c.Domain = u.Hostname()
			c.HostOnly = true
		} else {
			c.Domain = "." + strings.TrimPrefix(strings.ToLower(hc.Domain), ".")
		}
		if c.Path == "" || c.Path[0] != '/' {
			c.Path = defaultPath(u.Path)
		}
		switch {
		case hc.MaxAge < 0:
			delete(j.entries, c.key())
			continue
		case hc.MaxAge > 0:
			c.Expiry = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case !hc.Expires.IsZero():
			c.Expiry = hc.Expires
		}
		if !c.Expiry.IsZero() {
			// cookie files keep whole seconds
			c.Expiry = time.Unix(c.Expiry.Unix(), 0)
		}
		if c.expired(now) {
			delete(j.entries, c.key())
			continue
		}
		j.entries[c.key()] = c
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// All returns the live cookies sorted by domain, path and name.
func (j *Jar) All() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	out := make([]Cookie, 0, len(j.entries))
	for _, c := range j.entries {
		if c.expired(now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].key() < out[b].key()
	})
	return out
}

// Len returns the number of cookies held.
func (j *Jar) Len() int {
	return len(j.All())
}

// Clear drops every cookie.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = newCookieJar()
	j.entries = make(map[string]Cookie)
}

// Restore loads cookies read from a cookie file, skipping expired ones.
func (j *Jar) Restore(cookies []Cookie) {
	for _, c := range cookies {
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		host := strings.TrimPrefix(c.Domain, ".")
		u := &url.URL{Scheme: scheme, Host: host, Path: c.Path}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expiry,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if !c.HostOnly {
			hc.Domain = host
		}
		j.SetCookies(u, []*http.Cookie{hc})
	}
}

// defaultPath follows RFC 6265 section 5.1.4.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

var _ http.CookieJar = (*Jar)(nil)
