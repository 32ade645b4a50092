package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quickcred/quickcred/internal/cli/auth"
	"github.com/quickcred/quickcred/internal/cli/client"
	"github.com/quickcred/quickcred/internal/cli/config"
	"github.com/quickcred/quickcred/internal/cli/render"
	"github.com/quickcred/quickcred/internal/cli/serverselect"
	"github.com/quickcred/quickcred/internal/cli/storage"
	"github.com/quickcred/quickcred/internal/session"
)

// maxRedirects bounds how many navigations one command follows
const maxRedirects = 5

var (
	serverAlias string
	cliLogger   = zerolog.Nop()
)

// BindGlobalFlags registers flags shared by every command
func BindGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&serverAlias, "server", "", "Server alias (uses the selected server if not specified)")
}

// SetLogger sets the logger used by commands
func SetLogger(logger zerolog.Logger) {
	cliLogger = logger
}

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
func getSelectedServer() (*config.Server, error) {
	// Load config
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'quickcred init' to create a configuration file", err)
	}

	server, err := serverselect.New(cfg, cliLogger).Resolve(serverAlias)
	if err != nil {
		return nil, err
	}

	if _, err := server.Origin(); err != nil {
		return nil, err
	}

	return server, nil
}

type appOptions struct {
	server    *config.Server
	out       io.Writer
	durable   session.Storage
	ephemeral session.Storage
	cookies   auth.CookieStore
	timeout   time.Duration
}

// AppOption injects dependencies into a command, mainly for tests
type AppOption func(*appOptions)

// WithServer skips config discovery and uses server
func WithServer(server *config.Server) AppOption {
	return func(o *appOptions) {
		o.server = server
	}
}

// WithOutput redirects page output
func WithOutput(w io.Writer) AppOption {
	return func(o *appOptions) {
		o.out = w
	}
}

// WithStorage replaces the durable and ephemeral flag stores
func WithStorage(durable, ephemeral session.Storage) AppOption {
	return func(o *appOptions) {
		o.durable = durable
		o.ephemeral = ephemeral
	}
}

// WithCookieStore replaces the keyring-backed cookie store
func WithCookieStore(store auth.CookieStore) AppOption {
	return func(o *appOptions) {
		o.cookies = store
	}
}

// WithTimeout overrides the API request timeout
func WithTimeout(timeout time.Duration) AppOption {
	return func(o *appOptions) {
		o.timeout = timeout
	}
}

// app is everything one command invocation works with
type app struct {
	server  *config.Server
	client  *client.Client
	jar     *auth.Jar
	ctrl    *session.Controller
	browser *browser
	out     io.Writer
}

func newApp(opts ...AppOption) (*app, error) {
	o := &appOptions{
		out:     os.Stdout,
		cookies: auth.Default,
		timeout: client.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.server == nil {
		server, err := getSelectedServer()
		if err != nil {
			return nil, err
		}
		o.server = server
	}

	origin, err := o.server.Origin()
	if err != nil {
		return nil, err
	}

	if o.durable == nil {
		o.durable = openStore(storage.Durable, origin, "durable")
	}
	if o.ephemeral == nil {
		o.ephemeral = openStore(storage.Ephemeral, origin, "ephemeral")
	}

	jar, err := auth.NewJar(origin, o.cookies, cliLogger)
	if err != nil {
		return nil, err
	}

	apiClient := client.New(origin)
	apiClient.SetCookieJar(jar)
	apiClient.SetTimeout(o.timeout)
	apiClient.SetLogger(cliLogger)

	b := &browser{out: o.out}
	ctrl := session.NewController(
		apiClient,
		session.NewFlags(o.durable, o.ephemeral),
		b,
		session.WithLogger(cliLogger),
	)
	b.ctrl = ctrl

	// any 401 drops the stored cookie and logs out locally
	apiClient.OnUnauthorized(func(ctx context.Context, err error) {
		if clearErr := jar.Clear(); clearErr != nil {
			cliLogger.Warn().Err(clearErr).Msg("Failed to clear stored session")
		}
		ctrl.ForceLogout(err)
	})

	return &app{
		server:  o.server,
		client:  apiClient,
		jar:     jar,
		ctrl:    ctrl,
		browser: b,
		out:     o.out,
	}, nil
}

// openStore opens a flag store on disk. When there is nowhere to keep it
// the flags live in memory for this command only.
func openStore(open func(origin string) (*storage.FileStore, error), origin, kind string) session.Storage {
	store, err := open(origin)
	if err != nil {
		cliLogger.Warn().Err(err).Str("store", kind).Msg("Flag storage unavailable, using memory")
		return session.NewMemoryStorage()
	}
	store.SetLogger(cliLogger)
	return store
}

// browser plays the role of the web browser: it loads pages through the
// controller, renders them and follows navigations the controller requests.
type browser struct {
	ctrl *session.Controller
	out  io.Writer
	next string
}

// Navigate implements session.Navigator
func (b *browser) Navigate(path string) {
	b.next = path
}

// Open loads path and follows redirects until a page settles
func (b *browser) Open(ctx context.Context, path string) error {
	for hops := 0; ; hops++ {
		if hops > maxRedirects {
			return fmt.Errorf("too many redirects, stopped at %s", path)
		}

		b.next = ""
		b.ctrl.PageLoad(ctx, path)
		render.Page(b.out, b.ctrl.ViewModel())

		if b.next == "" {
			return nil
		}
		path = b.next
	}
}

// Render re-renders the current page, then follows a pending navigation
func (b *browser) Render(ctx context.Context) error {
	render.Page(b.out, b.ctrl.ViewModel())
	return b.follow(ctx)
}

// Follow prints the notices raised on the current page, then follows a
// pending navigation
func (b *browser) Follow(ctx context.Context) error {
	for _, n := range b.ctrl.ViewModel().Notices {
		fmt.Fprintln(b.out, render.Notice(n))
	}
	return b.follow(ctx)
}

func (b *browser) follow(ctx context.Context) error {
	if b.next == "" {
		return nil
	}
	return b.Open(ctx, b.next)
}

// requireUser fails when the current page has no confirmed user
func (a *app) requireUser() (*session.User, error) {
	user := a.ctrl.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("not logged in. Please run 'quickcred login' first")
	}
	return user, nil
}
