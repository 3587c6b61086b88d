// Package transport builds the credentialed HTTP client. Its cookie jar plays
// the part of the browser's cookie store: the renewal cookie set by the
// backend is sent back on every call and survives restarts when the jar is
// backed by a file.
package transport

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// NewClient returns an *http.Client with the configured timeout and a cookie
// jar persisted at jarPath. An empty jarPath keeps cookies in memory only.
func NewClient(cfg config.HTTPConfig, jarPath string) (*http.Client, error) {
	jar, err := NewJar(jarPath)
	if err != nil {
		return nil, errors.Wrap(err, "[transport NewClient] failed to create cookie jar")
	}
	return &http.Client{
		Timeout: cfg.GetTimeout(),
		Jar:     jar,
	}, nil
}

type storedCookie struct {
	URL      string        `json:"url"`
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path"`
	Domain   string        `json:"domain,omitempty"`
	Expires  time.Time     `json:"expires,omitempty"`
	Secure   bool          `json:"secure,omitempty"`
	HttpOnly bool          `json:"httpOnly,omitempty"`
	SameSite http.SameSite `json:"sameSite,omitempty"`
}

func (sc storedCookie) expired(now time.Time) bool {
	return !sc.Expires.IsZero() && !sc.Expires.After(now)
}

// Jar is an http.CookieJar that mirrors every accepted cookie to a file.
// Matching and expiry are left to net/http/cookiejar; the file only has to
// replay cookies into a fresh jar.
type Jar struct {
	jar     *cookiejar.Jar
	path    string
	lock    sync.Mutex
	entries map[string]storedCookie
	now     func() time.Time
}

var _ http.CookieJar = (*Jar)(nil)

func NewJar(path string) (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	j := &Jar{
		jar:     inner,
		path:    path,
		entries: make(map[string]storedCookie),
		now:     time.Now,
	}
	if path == "" {
		return j, nil
	}
	if err := j.load(); err != nil {
		// A corrupt jar only costs a sign-in.
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable cookie jar")
	}
	return j, nil
}

// Path returns the backing file, or "" for an in-memory jar.
func (j *Jar) Path() string {
	return j.path
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if j.path == "" {
		return
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	now := j.now()
	changed := false
	for _, c := range cookies {
		sc := storedCookie{
			URL:      (&url.URL{Scheme: u.Scheme, Host: u.Host}).String(),
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: c.SameSite,
		}
		if sc.Path == "" || !strings.HasPrefix(sc.Path, "/") {
			sc.Path = defaultPath(u.Path)
		}
		switch {
		case c.MaxAge > 0:
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			sc.Expires = c.Expires
		}

		key := cookieKey(u, sc)
		if c.MaxAge < 0 || sc.expired(now) {
			if _, ok := j.entries[key]; ok {
				delete(j.entries, key)
				changed = true
			}
			continue
		}
		j.entries[key] = sc
		changed = true
	}

	if changed {
		if err := j.save(); err != nil {
			log.Warn().Err(err).Str("path", j.path).Msg("failed to persist cookie jar")
		}
	}
}

func (j *Jar) load() error {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Jar load] read")
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return errors.Wrap(err, "[Jar load] decode")
	}

	now := j.now()
	for _, sc := range stored {
		if sc.expired(now) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Domain:   sc.Domain,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
			SameSite: sc.SameSite,
		}})
		j.entries[cookieKey(u, sc)] = sc
	}
	return nil
}

// save must be called with j.lock held.
func (j *Jar) save() error {
	keys := make([]string, 0, len(j.entries))
	for k := range j.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stored := make([]storedCookie, 0, len(keys))
	for _, k := range keys {
		stored = append(stored, j.entries[k])
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[Jar save] encode")
	}
	return utils.WriteFileAtomic(j.path, data, 0o600)
}

func cookieKey(u *url.URL, sc storedCookie) string {
	domain := sc.Domain
	if domain == "" {
		domain = u.Hostname()
	}
	return strings.ToLower(strings.TrimPrefix(domain, ".")) + ";" + sc.Path + ";" + sc.Name
}

// defaultPath is the RFC 6265 default-path of a request path.
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
