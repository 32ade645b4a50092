package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcred/quickcred/internal/cli/client"
	"github.com/quickcred/quickcred/internal/cli/config"
	"github.com/quickcred/quickcred/internal/cli/storage"
	backendconfig "github.com/quickcred/quickcred/internal/config"
	"github.com/quickcred/quickcred/internal/server"
	"github.com/quickcred/quickcred/internal/session"
)

// memoryCookieStore is an in-memory cookie store for testing
type memoryCookieStore struct {
	cookies map[string][]*http.Cookie
}

func newMemoryCookieStore() *memoryCookieStore {
	return &memoryCookieStore{cookies: make(map[string][]*http.Cookie)}
}

func (m *memoryCookieStore) SaveCookies(origin string, cookies []*http.Cookie) error {
	m.cookies[origin] = cookies
	return nil
}

func (m *memoryCookieStore) LoadCookies(origin string) ([]*http.Cookie, error) {
	return m.cookies[origin], nil
}

func (m *memoryCookieStore) DeleteCookies(origin string) error {
	delete(m.cookies, origin)
	return nil
}

// unavailableCookieStore fails every call, like a desktop without a keyring
type unavailableCookieStore struct {
	err error
}

func (u unavailableCookieStore) SaveCookies(string, []*http.Cookie) error {
	return u.err
}

func (u unavailableCookieStore) LoadCookies(string) ([]*http.Cookie, error) {
	return nil, u.err
}

func (u unavailableCookieStore) DeleteCookies(string) error {
	return u.err
}

// testEnv is one terminal session talking to one backend. Stores outlive
// individual commands the way they do on disk.
type testEnv struct {
	server    *httptest.Server
	durable   *session.MemoryStorage
	ephemeral *session.MemoryStorage
	cookies   *memoryCookieStore
	out       bytes.Buffer
	timeout   time.Duration

	mu   sync.Mutex
	hits map[string]int
}

// newTestEnv runs the development backend behind a request counter
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &backendconfig.Config{
		Server: backendconfig.ServerConfig{
			CORSOrigins: []string{"http://localhost:5000"},
		},
		Database: backendconfig.DatabaseConfig{URL: filepath.Join(t.TempDir(), "quickcred.sqlite")},
		Session: backendconfig.SessionConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
	}
	backend, err := server.New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return newStubEnv(t, backend.Handler())
}

// newStubEnv runs handler behind a request counter
func newStubEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	env := &testEnv{
		durable:   session.NewMemoryStorage(),
		ephemeral: session.NewMemoryStorage(),
		cookies:   newMemoryCookieStore(),
		timeout:   client.DefaultTimeout,
		hits:      make(map[string]int),
	}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits[r.URL.Path]++
		env.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(env.server.Close)

	return env
}

func (e *testEnv) opts() []AppOption {
	return []AppOption{
		WithServer(&config.Server{URL: e.server.URL, Alias: "test"}),
		WithStorage(e.durable, e.ephemeral),
		WithCookieStore(e.cookies),
		WithOutput(&e.out),
		WithTimeout(e.timeout),
	}
}

func (e *testEnv) count(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[path]
}

// signUp registers and logs in a user with role, then resets the output
func (e *testEnv) signUp(t *testing.T, role session.Role) {
	t.Helper()
	e.signUpAs(t, "Asha Rao", "asha@example.com", role)
}

func (e *testEnv) signUpAs(t *testing.T, name, email string, role session.Role) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, runRegister(ctx, client.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Role:     role,
	}, e.opts()...))
	require.NoError(t, runLogin(ctx, email, "secret123", e.opts()...))
	e.out.Reset()
}

// terminal returns a second terminal session against the same backend.
// Its requests are counted on e.
func (e *testEnv) terminal() *testEnv {
	return &testEnv{
		server:    e.server,
		durable:   session.NewMemoryStorage(),
		ephemeral: session.NewMemoryStorage(),
		cookies:   newMemoryCookieStore(),
		timeout:   e.timeout,
	}
}

func jsonError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestBrowser_ExpiredSessionSettlesOnLanding(t *testing.T) {
	env := newStubEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusUnauthorized, `{"error":"Session expired","code":"SESSION_EXPIRED"}`)
	}))
	require.NoError(t, env.durable.Set(session.KeyHasSession, "true"))

	require.NoError(t, runDashboard(context.Background(), "", env.opts()...))

	output := env.out.String()
	assert.Contains(t, output, "── /dashboard")
	assert.Contains(t, output, "→ /\n")
	assert.Contains(t, output, "Not signed in")
	assert.Equal(t, 1, env.count("/auth/profile"), "landing page must not check again")

	_, hasSession := env.durable.Get(session.KeyHasSession)
	assert.False(t, hasSession)
	_, prevent := env.ephemeral.Get(session.KeyPreventRedirect)
	assert.False(t, prevent, "landing page consumes the redirect guard")

	// the next landing visit makes no call at all
	require.NoError(t, runHome(context.Background(), env.opts()...))
	assert.Equal(t, 1, env.count("/auth/profile"))
}

func TestBrowser_TimeoutStaysOnPage(t *testing.T) {
	env := newStubEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	env.timeout = 50 * time.Millisecond

	require.NoError(t, runDashboard(context.Background(), "", env.opts()...))

	output := env.out.String()
	assert.Contains(t, output, "── /dashboard")
	assert.Contains(t, output, "Not signed in")
	assert.NotContains(t, output, "→")
}

func TestNewApp_RequiresConfig(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := newApp(WithStorage(session.NewMemoryStorage(), session.NewMemoryStorage()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quickcred init")
}

func TestNewApp_UnavailableKeyring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	opts := append(env.opts(), WithCookieStore(unavailableCookieStore{
		err: errors.New("The name org.freedesktop.secrets was not provided by any .service files"),
	}))

	require.NoError(t, runHome(ctx, opts...))
	assert.Contains(t, env.out.String(), "Not signed in")
	assert.Zero(t, env.count("/auth/profile"))

	env.out.Reset()
	require.NoError(t, runDashboard(ctx, "", opts...))
	assert.Contains(t, env.out.String(), "── / ")
	assert.Equal(t, 1, env.count("/auth/profile"))

	// the session only lives for one command, but login itself works
	require.NoError(t, runRegister(ctx, client.RegisterRequest{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Password: "secret123",
		Role:     session.RoleBorrower,
	}, opts...))
	env.out.Reset()
	require.NoError(t, runLogin(ctx, "asha@example.com", "secret123", opts...))
	assert.Contains(t, env.out.String(), "Welcome back, Asha Rao!")
}

func TestNewApp_NoConfigDirUsesMemoryStorage(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("HOME", "")

	a, err := newApp(
		WithServer(&config.Server{URL: env.server.URL, Alias: "test"}),
		WithCookieStore(env.cookies),
		WithOutput(&env.out),
	)
	require.NoError(t, err)
	require.NoError(t, a.browser.Open(context.Background(), session.PathLanding))
	assert.Contains(t, env.out.String(), "Not signed in")
}

func TestOpenStore_FallsBackToMemory(t *testing.T) {
	failing := func(string) (*storage.FileStore, error) {
		return nil, errors.New("no home directory")
	}
	assert.IsType(t, &session.MemoryStorage{}, openStore(failing, "https://a.example.com", "durable"))

	t.Setenv("HOME", t.TempDir())
	assert.IsType(t, &storage.FileStore{}, openStore(storage.Durable, "https://a.example.com", "durable"))
}
