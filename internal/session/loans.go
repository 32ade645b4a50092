package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ParseTerm validates a user-entered loan term in whole months
func ParseTerm(raw string) (int, error) {
	term, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || term <= 0 {
		return 0, ErrInvalidTerm
	}
	return term, nil
}

// RequestLoan asks the backend for a new loan and returns its ID. Amount
// and term limits are enforced by the server.
func (c *Controller) RequestLoan(ctx context.Context, rawAmount, rawTerm, purpose string) (string, error) {
	if c.CurrentUser() == nil {
		c.notify(NoticeError, "Please login first")
		return "", ErrNotLoggedIn
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		c.notify(NoticeError, "Please enter a valid amount")
		return "", err
	}
	term, err := ParseTerm(rawTerm)
	if err != nil {
		c.notify(NoticeError, "Please enter a valid term")
		return "", err
	}

	id, err := c.api.CreateLoan(ctx, LoanRequest{
		Amount:     amount,
		TermMonths: term,
		Purpose:    strings.TrimSpace(purpose),
	})
	if err != nil {
		c.logger.Warn().Err(err).Float64("amount", amount).Msg("Loan request failed")
		c.notify(NoticeError, "Loan request failed: "+errorMessage(err, "Please try again."))
		return "", err
	}

	c.logger.Info().Str("loan_id", id).Float64("amount", amount).Int("term_months", term).Msg("Loan requested")
	c.notify(NoticeSuccess, "Loan request created successfully")
	c.reloadDashboard()
	return id, nil
}

// FundLoan funds a pending loan from the wallet and returns the new balance
func (c *Controller) FundLoan(ctx context.Context, id string) (float64, error) {
	id, err := c.loanAction(id)
	if err != nil {
		return 0, err
	}

	newBalance, err := c.api.FundLoan(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("loan_id", id).Msg("Loan funding failed")
		c.notify(NoticeError, "Funding failed: "+errorMessage(err, "Please try again."))
		return 0, err
	}

	c.applyBalance(newBalance)
	c.notify(NoticeSuccess, "Loan funded successfully")
	c.reloadDashboard()
	return newBalance, nil
}

// RepayLoan settles a funded loan. The wallet balance afterwards is the one
// reported by the server.
func (c *Controller) RepayLoan(ctx context.Context, id string) (*Repayment, error) {
	id, err := c.loanAction(id)
	if err != nil {
		return nil, err
	}

	repayment, err := c.api.RepayLoan(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("loan_id", id).Msg("Loan repayment failed")
		c.notify(NoticeError, "Repayment failed: "+errorMessage(err, "Please try again."))
		return nil, err
	}

	c.applyBalance(repayment.NewBalance)
	c.notify(NoticeSuccess, fmt.Sprintf("Loan repaid successfully (₹%.2f)", repayment.TotalRepayment))
	c.reloadDashboard()
	return repayment, nil
}

// loanAction checks the preconditions shared by fund and repay
func (c *Controller) loanAction(id string) (string, error) {
	if c.CurrentUser() == nil {
		c.notify(NoticeError, "Please login first")
		return "", ErrNotLoggedIn
	}
	id = strings.TrimSpace(id)
	if id == "" {
		c.notify(NoticeError, "Please choose a loan")
		return "", ErrMissingLoanID
	}
	return id, nil
}

// reloadDashboard reloads the current page when it is a dashboard
func (c *Controller) reloadDashboard() {
	if path := c.Path(); IsDashboard(path) {
		c.navigate(path)
	}
}
