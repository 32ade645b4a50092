package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// API is the subset of the backend the controller talks to
type API interface {
	Profile(ctx context.Context) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	Logout(ctx context.Context) error
	TopUp(ctx context.Context, amount float64) (float64, error)
	UpdateWallet(ctx context.Context, op Operation, amount float64) (float64, error)
	DashboardData(ctx context.Context, view View) (*DashboardData, error)
	CreateLoan(ctx context.Context, req LoanRequest) (string, error)
	FundLoan(ctx context.Context, id string) (float64, error)
	RepayLoan(ctx context.Context, id string) (*Repayment, error)
}

// Navigator performs page navigations requested by the controller
type Navigator interface {
	Navigate(path string)
}

// NoticeLevel classifies a user-facing notification
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message surfaced to the user on the current page
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Controller owns the client's belief about who is logged in. It decides
// when to ask the backend, reconciles the answer into State and requests
// navigations through its Navigator.
type Controller struct {
	api    API
	flags  *Flags
	nav    Navigator
	logger zerolog.Logger

	// syncing is the reentrancy latch of SyncProfile
	syncing atomic.Bool

	mu              sync.Mutex
	state           State
	path            string
	preventRedirect bool
	pendingNav      string
	view            View
	dashboard       *DashboardData
	notices         []Notice
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller. The initial path is the landing page
// until PageLoad is called.
func NewController(api API, flags *Flags, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		flags:  flags,
		nav:    nav,
		logger: zerolog.Nop(),
		path:   PathLanding,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageLoad starts a fresh page at path. The in-memory session from the
// previous page is discarded and a profile check runs if the trigger policy
// allows it.
func (c *Controller) PageLoad(ctx context.Context, path string) {
	c.mu.Lock()
	c.state.clear()
	c.path = path
	c.pendingNav = ""
	c.view = ""
	c.dashboard = nil
	c.notices = nil
	c.preventRedirect = false
	c.mu.Unlock()

	// preventRedirect is one-shot: every landing page load consumes it
	if IsLanding(path) {
		prevent, err := c.flags.ConsumePreventRedirect()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear redirect flag")
		}
		c.mu.Lock()
		c.preventRedirect = prevent
		c.mu.Unlock()
	}

	if !c.shouldCheck(path) {
		c.logger.Debug().Str("path", path).Msg("Skipping profile check")
		return
	}

	c.SyncProfile(ctx)
}

// shouldCheck implements the page-load trigger policy. justLoggedIn is
// consumed on every call.
func (c *Controller) shouldCheck(path string) bool {
	justLoggedIn, err := c.flags.ConsumeJustLoggedIn()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear login flag")
	}
	return !IsLanding(path) || c.flags.HasSession() || justLoggedIn
}

// SyncProfile asks the backend who the current user is and reconciles the
// answer. A call made while another is in flight does nothing and returns
// false.
func (c *Controller) SyncProfile(ctx context.Context) bool {
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("Profile check already in progress")
		return false
	}
	defer c.syncing.Store(false)

	user, err := c.api.Profile(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Profile check failed")
		c.handleAuthFailure(err)
		return true
	}
	if user == nil {
		c.handleAuthFailure(nil)
		return true
	}

	c.mu.Lock()
	c.state.confirm(*user)
	path := c.path
	prevent := c.preventRedirect
	c.mu.Unlock()

	if err := c.flags.MarkSession(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist session flag")
	}

	c.logger.Debug().Str("user_id", user.ID).Str("path", path).Msg("Profile confirmed")

	switch {
	case IsDashboard(path):
		c.initDashboard(ctx, user.Role)
	case IsLanding(path) && !prevent:
		c.navigate(PathDashboard)
	}

	return true
}

// handleAuthFailure clears the session and, for session errors away from
// the landing page, returns the user to the landing page without letting
// it bounce back.
func (c *Controller) handleAuthFailure(err error) {
	c.clearSession()

	code := ErrorCode(err)
	if code != CodeAuthRequired && code != CodeSessionExpired {
		return
	}

	c.mu.Lock()
	path := c.path
	c.mu.Unlock()

	if !IsLanding(path) {
		c.redirectToLanding()
	}
}

// ForceLogout is invoked when any backend call answers 401. The server has
// already dropped the session, so only local state is cleared.
func (c *Controller) ForceLogout(err error) {
	c.logger.Info().Err(err).Msg("Session rejected by server, logging out")
	c.clearSession()

	c.mu.Lock()
	path := c.path
	c.mu.Unlock()

	if !IsLanding(path) {
		c.redirectToLanding()
	}
}

// Login authenticates with the backend and sends the user to the dashboard
func (c *Controller) Login(ctx context.Context, email, password string) error {
	user, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.notify(NoticeError, "Login failed: "+errorMessage(err, "Please try again."))
		return err
	}

	c.mu.Lock()
	c.state.confirm(*user)
	c.mu.Unlock()

	if err := c.flags.MarkSession(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist session flag")
	}
	if err := c.flags.MarkJustLoggedIn(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist login flag")
	}
	if err := c.flags.ClearPreventRedirect(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear redirect flag")
	}

	c.logger.Info().Str("user_id", user.ID).Msg("Logged in")
	c.navigate(PathDashboard)
	return nil
}

// Logout ends the session on the server, then locally
func (c *Controller) Logout(ctx context.Context) error {
	err := c.api.Logout(ctx)
	if err != nil && !errors.Is(err, ErrSessionRejected) {
		c.notify(NoticeError, "Failed to logout. Please try again.")
		return err
	}

	c.clearSession()
	c.notify(NoticeSuccess, "Logged out successfully")
	c.navigate(PathLanding)
	return nil
}

// CurrentUser returns a copy of the confirmed user, or nil
func (c *Controller) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.User()
}

// Path returns the path of the current page
func (c *Controller) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Snapshot captures everything the view model is built from
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Path:       c.path,
		User:       c.state.User(),
		View:       c.view,
		RedirectTo: c.pendingNav,
		Notices:    append([]Notice(nil), c.notices...),
	}
	if c.dashboard != nil {
		data := *c.dashboard
		snap.Dashboard = &data
	}
	return snap
}

// ViewModel builds the view model for the current page
func (c *Controller) ViewModel() ViewModel {
	return BuildViewModel(c.Snapshot())
}

func (c *Controller) clearSession() {
	c.mu.Lock()
	c.state.clear()
	c.view = ""
	c.dashboard = nil
	c.mu.Unlock()

	if err := c.flags.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear session flags")
	}
}

func (c *Controller) redirectToLanding() {
	if err := c.flags.SetPreventRedirect(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist redirect flag")
	}
	c.navigate(PathLanding)
}

// navigate requests at most one navigation per page
func (c *Controller) navigate(path string) {
	c.mu.Lock()
	if pending := c.pendingNav; pending != "" {
		c.mu.Unlock()
		c.logger.Debug().Str("path", path).Str("pending", pending).Msg("Navigation already pending")
		return
	}
	c.pendingNav = path
	c.mu.Unlock()

	c.logger.Debug().Str("path", path).Msg("Navigating")
	c.nav.Navigate(path)
}

func (c *Controller) notify(level NoticeLevel, message string) {
	c.mu.Lock()
	c.notices = append(c.notices, Notice{Level: level, Message: message})
	c.mu.Unlock()
}

// errorMessage returns the backend's message for err, or fallback
func errorMessage(err error, fallback string) string {
	var msg interface{ ErrorMessage() string }
	if errors.As(err, &msg) && msg.ErrorMessage() != "" {
		return msg.ErrorMessage()
	}
	return fallback
}
