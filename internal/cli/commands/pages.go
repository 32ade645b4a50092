package commands

import (
	"context"

	"github.com/quickcred/quickcred/internal/session"
	"github.com/spf13/cobra"
)

// NewHomeCmd creates the home command
func NewHomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Open the landing page",
		Long: `Open the landing page.

When a session is remembered it is checked with the server and, if still
valid, you are taken to your dashboard.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHome(cmd.Context())
		},
	}
}

func runHome(ctx context.Context, opts ...AppOption) error {
	a, err := newApp(opts...)
	if err != nil {
		return err
	}
	return a.browser.Open(ctx, session.PathLanding)
}

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show your dashboard",
		Long: `Show your dashboard.

Without --view the last selected view is shown, or the one matching your role.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), view)
		},
	}

	cmd.Flags().StringVar(&view, "view", "", "Force a view (borrower or lender)")

	return cmd
}

func runDashboard(ctx context.Context, view string, opts ...AppOption) error {
	path, err := dashboardPath(view)
	if err != nil {
		return err
	}

	a, err := newApp(opts...)
	if err != nil {
		return err
	}
	return a.browser.Open(ctx, path)
}

func dashboardPath(view string) (string, error) {
	if view == "" {
		return session.PathDashboard, nil
	}

	v, err := session.ParseView(view)
	if err != nil {
		return "", err
	}
	if v == session.ViewBorrower {
		return session.PathBorrower, nil
	}
	return session.PathLender, nil
}

// NewViewCmd creates the view command
func NewViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "view <borrower|lender>",
		Short:     "Switch the dashboard view and remember the choice",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(session.ViewBorrower), string(session.ViewLender)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), args[0])
		},
	}
}

// runView opens the role-specific dashboard path. Loading it selects the
// view and remembers the choice.
func runView(ctx context.Context, raw string, opts ...AppOption) error {
	view, err := session.ParseView(raw)
	if err != nil {
		return err
	}
	path, err := dashboardPath(string(view))
	if err != nil {
		return err
	}

	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if err := a.browser.Open(ctx, path); err != nil {
		return err
	}
	_, err = a.requireUser()
	return err
}
