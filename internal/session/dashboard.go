package session

import "context"

// initDashboard selects the dashboard view for a freshly confirmed user:
// a role-specific path wins, then the remembered view, then the user's role.
func (c *Controller) initDashboard(ctx context.Context, role Role) {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()

	view, ok := forcedView(path)
	if !ok {
		view, ok = c.flags.DashboardView()
	}
	if !ok {
		view = viewForRole(role)
	}

	if err := c.SwitchView(ctx, view); err != nil {
		c.logger.Warn().Err(err).Str("view", string(view)).Msg("Failed to initialize dashboard view")
	}
}

// SwitchView activates a dashboard view, remembers the choice and loads the
// data behind it. A failed data load leaves the view active with a notice.
func (c *Controller) SwitchView(ctx context.Context, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.view = view
	c.dashboard = nil
	c.mu.Unlock()

	if err := c.flags.SetDashboardView(view); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to remember dashboard view")
	}

	data, err := c.api.DashboardData(ctx, view)
	if err != nil {
		c.logger.Warn().Err(err).Str("view", string(view)).Msg("Failed to load dashboard data")
		c.notify(NoticeError, "Failed to load "+string(view)+" data: "+errorMessage(err, "please try again."))
		return nil
	}

	c.mu.Lock()
	// the view may have been switched again while loading
	if c.view == view {
		c.dashboard = data
	}
	c.mu.Unlock()

	return nil
}

func viewForRole(role Role) View {
	if role == RoleBorrower {
		return ViewBorrower
	}
	return ViewLender
}
