package session

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// ParseAmount validates a user-entered amount. Only finite numbers greater
// than zero are accepted; the backend stays the authority on limits.
func ParseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// WalletBalance returns the last balance the server reported, if a user is known
func (c *Controller) WalletBalance() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsAuthenticated() {
		return 0, false
	}
	return c.state.user.WalletBalance, true
}

// AdjustWallet adds to or subtracts from the wallet. The balance shown
// afterwards is always the one returned by the server.
func (c *Controller) AdjustWallet(ctx context.Context, op Operation, rawAmount string) (float64, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		c.notify(NoticeError, "Please enter a valid amount")
		return 0, err
	}
	if _, err := ParseOperation(string(op)); err != nil {
		c.notify(NoticeError, err.Error())
		return 0, err
	}

	newBalance, err := c.api.UpdateWallet(ctx, op, amount)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", string(op)).Msg("Wallet update failed")
		c.notify(NoticeError, errorMessage(err, "Failed to update wallet. Please try again."))
		return 0, err
	}

	c.applyBalance(newBalance)
	c.notify(NoticeSuccess, "Wallet updated successfully")
	return newBalance, nil
}

// TopUp credits the wallet. It requires a confirmed user and reloads the
// page when on a dashboard.
func (c *Controller) TopUp(ctx context.Context, rawAmount string) (float64, error) {
	if c.CurrentUser() == nil {
		c.notify(NoticeError, "Please login first")
		return 0, ErrNotLoggedIn
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		c.notify(NoticeError, "Please enter a valid amount")
		return 0, err
	}

	newBalance, err := c.api.TopUp(ctx, amount)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Wallet top-up failed")
		c.notify(NoticeError, "Top-up failed: "+errorMessage(err, "Please try again."))
		return 0, err
	}

	c.applyBalance(newBalance)
	c.notify(NoticeSuccess, "Wallet topped up successfully!")
	c.reloadDashboard()
	return newBalance, nil
}

// applyBalance overwrites every locally held balance with the server value
func (c *Controller) applyBalance(balance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.setBalance(balance)
	if c.dashboard != nil {
		c.dashboard.Analytics.WalletBalance = balance
		c.dashboard.User.WalletBalance = balance
	}
}
