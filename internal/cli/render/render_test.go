package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quickcred/quickcred/internal/session"
)

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{5, "₹5.00"},
		{999.999, "₹1,000.00"},
		{1000, "₹1,000.00"},
		{123456, "₹1,23,456.00"},
		{1234567.5, "₹12,34,567.50"},
		{-2500.25, "-₹2,500.25"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatINR(tt.amount))
	}
}

func TestPage_SignedOut(t *testing.T) {
	var buf bytes.Buffer
	Page(&buf, session.BuildViewModel(session.Snapshot{Path: "/"}))

	out := buf.String()
	assert.Contains(t, out, "── / ")
	assert.Contains(t, out, "Not signed in")
	assert.NotContains(t, out, "Signed in as")
}

func TestPage_Dashboard(t *testing.T) {
	snap := session.Snapshot{
		Path: session.PathDashboard,
		User: &session.User{ID: "u1", Name: "Asha", Role: session.RoleLender, WalletBalance: 150000},
		View: session.ViewLender,
		Dashboard: &session.DashboardData{
			Analytics: session.Analytics{WalletBalance: 150000, ActiveLoans: 2, TotalInvested: 20000},
		},
		Notices:    []session.Notice{{Level: session.NoticeSuccess, Message: "Wallet updated successfully"}},
		RedirectTo: "",
	}

	var buf bytes.Buffer
	Page(&buf, session.BuildViewModel(snap))

	out := buf.String()
	assert.Contains(t, out, "Signed in as Asha")
	assert.Contains(t, out, "Manage your investments")
	assert.Contains(t, out, "[○ borrower] [● lender]")
	assert.Contains(t, out, "Wallet: ₹1,50,000.00")
	assert.Contains(t, out, "✓ Wallet updated successfully")
	assert.Contains(t, out, "Total invested  ₹20,000.00")
	assert.Contains(t, out, "No loans yet.")
	assert.NotContains(t, out, "Not signed in")
}

func TestPage_Redirect(t *testing.T) {
	var buf bytes.Buffer
	Page(&buf, session.ViewModel{Path: "/", ShowAuthButtons: true, RedirectTo: "/dashboard"})
	assert.Contains(t, buf.String(), "→ /dashboard")
}

func TestPage_LoanTables(t *testing.T) {
	user := &session.User{ID: "u1", Name: "Asha", Role: session.RoleBorrower, WalletBalance: 5000}

	t.Run("borrower sees repayment due", func(t *testing.T) {
		snap := session.Snapshot{
			Path: session.PathBorrower,
			User: user,
			View: session.ViewBorrower,
			Dashboard: &session.DashboardData{Loans: []session.Loan{
				{ID: "loan-1", Amount: 10000, TermMonths: 6, Status: "funded", Purpose: "Stock", TotalAmount: 12820},
				{ID: "loan-2", Amount: 2000, TermMonths: 1, Status: "pending"},
			}},
		}

		var buf bytes.Buffer
		Page(&buf, session.BuildViewModel(snap))

		out := buf.String()
		assert.Contains(t, out, "TOTAL DUE")
		assert.Regexp(t, `loan-1\s+₹10,000.00\s+6m\s+funded\s+₹12,820.00\s+Stock`, out)
		assert.Regexp(t, `loan-2\s+₹2,000.00\s+1m\s+pending\s+-`, out)
		assert.NotContains(t, out, "Available loans")
	})

	t.Run("lender sees available loans", func(t *testing.T) {
		snap := session.Snapshot{
			Path: session.PathLender,
			User: user,
			View: session.ViewLender,
			Dashboard: &session.DashboardData{
				MyLoans: []session.Loan{{ID: "loan-1", Amount: 10000, TermMonths: 6, Status: "funded", LenderReturn: 1200}},
				AvailableLoans: []session.Loan{
					{ID: "loan-3", Amount: 750, TermMonths: 2, Status: "pending", Purpose: "Books", BorrowerName: "Ravi"},
				},
			},
		}

		var buf bytes.Buffer
		Page(&buf, session.BuildViewModel(snap))

		out := buf.String()
		assert.Regexp(t, `loan-1\s+₹10,000.00\s+6m\s+funded\s+₹1,200.00`, out)
		assert.Contains(t, out, "Available loans")
		assert.Regexp(t, `loan-3\s+Ravi\s+₹750.00\s+2m\s+Books`, out)
	})
}

func TestRepayment(t *testing.T) {
	var buf bytes.Buffer
	Repayment(&buf, &session.Repayment{TotalRepayment: 12820, LenderReturn: 1200, PlatformMargin: 1620})

	out := buf.String()
	assert.Contains(t, out, "Total repaid     ₹12,820.00")
	assert.Contains(t, out, "Lender return    ₹1,200.00")
	assert.Contains(t, out, "Platform margin  ₹1,620.00")
}
