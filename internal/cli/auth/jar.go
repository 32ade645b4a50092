package auth

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
)

// Jar is an http.CookieJar for a single server whose cookies outlive the
// process. Every change is written through to a CookieStore.
type Jar struct {
	origin *url.URL
	store  CookieStore
	logger zerolog.Logger

	mu    sync.Mutex
	inner *cookiejar.Jar
}

// NewJar creates a jar for origin and restores previously saved cookies.
// A store that cannot be read yields an empty jar, as if logged out.
func NewJar(origin string, store CookieStore, logger zerolog.Logger) (*Jar, error) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", origin)
	}
	u := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}

	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	cookies, err := store.LoadCookies(originKey(u))
	if err != nil {
		logger.Warn().Err(err).Str("origin", originKey(u)).Msg("Failed to restore stored session, starting logged out")
		cookies = nil
	}
	if len(cookies) > 0 {
		inner.SetCookies(u, cookies)
	}

	return &Jar{
		origin: u,
		store:  store,
		logger: logger,
		inner:  inner,
	}, nil
}

// SetCookies implements http.CookieJar
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)
	j.persist()
}

// Cookies implements http.CookieJar
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Clear drops every cookie, in memory and in the store. Failing to update
// the store is logged; the in-memory jar is empty either way.
func (j *Jar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j.inner = inner

	key := originKey(j.origin)
	if err := j.store.DeleteCookies(key); err != nil {
		j.logger.Warn().Err(err).Str("origin", key).Msg("Failed to delete stored session cookie")
	}
	return nil
}

// persist writes the current cookie set for the origin. Callers hold mu.
func (j *Jar) persist() {
	key := originKey(j.origin)
	cookies := j.inner.Cookies(j.origin)

	var err error
	if len(cookies) == 0 {
		err = j.store.DeleteCookies(key)
	} else {
		err = j.store.SaveCookies(key, cookies)
	}
	if err != nil {
		j.logger.Warn().Err(err).Str("origin", key).Msg("Failed to persist session cookie")
	}
}

func originKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
