// Package render prints session view models to a terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/quickcred/quickcred/internal/session"
)

// Page writes one page: header, notices, the auth area, the dashboard and
// any pending redirect.
func Page(w io.Writer, vm session.ViewModel) {
	path := vm.Path
	if path == "" {
		path = session.PathLanding
	}
	fmt.Fprintf(w, "── %s %s\n", path, strings.Repeat("─", max(0, 40-len(path))))

	for _, n := range vm.Notices {
		fmt.Fprintln(w, Notice(n))
	}

	if vm.ShowAuthButtons {
		fmt.Fprintln(w, "Not signed in. Run 'quickcred login' or 'quickcred register'.")
	}
	if vm.ShowUserMenu {
		fmt.Fprintf(w, "Signed in as %s\n", vm.UserName)
	}

	if vm.Dashboard != nil {
		Dashboard(w, vm.Dashboard, vm.Wallet)
	} else if vm.Wallet.Known {
		fmt.Fprintf(w, "Wallet: %s\n", FormatINR(vm.Wallet.Balance))
	}

	if vm.RedirectTo != "" {
		fmt.Fprintf(w, "→ %s\n", vm.RedirectTo)
	}
}

// Notice formats a single notification line
func Notice(n session.Notice) string {
	switch n.Level {
	case session.NoticeSuccess:
		return "✓ " + n.Message
	case session.NoticeError:
		return "✗ " + n.Message
	default:
		return "• " + n.Message
	}
}

// Dashboard writes the dashboard section
func Dashboard(w io.Writer, d *session.DashboardViewModel, wallet session.WalletViewModel) {
	fmt.Fprintf(w, "\nWelcome back, %s! Manage your %s.\n", d.WelcomeName, d.WelcomeRole)

	selectors := make([]string, 0, len(d.Selectors))
	for _, s := range d.Selectors {
		mark := "○"
		if s.Active {
			mark = "●"
		}
		selectors = append(selectors, fmt.Sprintf("[%s %s]", mark, s.View))
	}
	fmt.Fprintf(w, "View: %s\n", strings.Join(selectors, " "))

	if wallet.Known {
		fmt.Fprintf(w, "Wallet: %s\n", FormatINR(wallet.Balance))
	}

	if d.Data == nil {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	a := d.Data.Analytics
	if d.ShowBorrower {
		fmt.Fprintf(tw, "Loans requested\t%d\n", a.TotalLoansRequested)
		fmt.Fprintf(tw, "Pending\t%d\n", a.PendingLoans)
		fmt.Fprintf(tw, "Funded\t%d\n", a.FundedLoans)
		fmt.Fprintf(tw, "Repaid\t%d\n", a.RepaidLoans)
		fmt.Fprintf(tw, "Total borrowed\t%s\n", FormatINR(a.TotalBorrowed))
	}
	if d.ShowLender {
		fmt.Fprintf(tw, "Loans funded\t%d\n", a.TotalLoansFunded)
		fmt.Fprintf(tw, "Loans repaid\t%d\n", a.TotalLoansRepaid)
		fmt.Fprintf(tw, "Active loans\t%d\n", a.ActiveLoans)
		fmt.Fprintf(tw, "Total invested\t%s\n", FormatINR(a.TotalInvested))
		fmt.Fprintf(tw, "Total returns\t%s\n", FormatINR(a.TotalReturns))
	}
	tw.Flush()

	if d.ShowBorrower {
		loanTable(w, d.Data.Loans, "TOTAL DUE", func(l session.Loan) float64 { return l.TotalAmount })
		return
	}

	loanTable(w, d.Data.MyLoans, "RETURN", func(l session.Loan) float64 { return l.LenderReturn })

	fmt.Fprintln(w, "\nAvailable loans")
	if len(d.Data.AvailableLoans) == 0 {
		fmt.Fprintln(w, "No loan requests right now.")
		return
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tAMOUNT\tTERM\tPURPOSE")
	for _, loan := range d.Data.AvailableLoans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dm\t%s\n", loan.ID, loan.BorrowerName, FormatINR(loan.Amount), loan.TermMonths, loan.Purpose)
	}
	tw.Flush()
}

// loanTable lists the caller's loans. extra names a money column that is
// only filled once a loan is funded.
func loanTable(w io.Writer, loans []session.Loan, extra string, value func(session.Loan) float64) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No loans yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tAMOUNT\tTERM\tSTATUS\t%s\tPURPOSE\n", extra)
	for _, loan := range loans {
		due := "-"
		if v := value(loan); v > 0 {
			due = FormatINR(v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%dm\t%s\t%s\t%s\n", loan.ID, FormatINR(loan.Amount), loan.TermMonths, loan.Status, due, loan.Purpose)
	}
	tw.Flush()
}

// Repayment writes the settlement of a repaid loan
func Repayment(w io.Writer, r *session.Repayment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total repaid\t%s\n", FormatINR(r.TotalRepayment))
	fmt.Fprintf(tw, "Lender return\t%s\n", FormatINR(r.LenderReturn))
	fmt.Fprintf(tw, "Platform margin\t%s\n", FormatINR(r.PlatformMargin))
	tw.Flush()
}

// WalletDialog writes the wallet dialog header with the last known balance
func WalletDialog(w io.Writer, wallet session.WalletViewModel) {
	fmt.Fprintln(w, "Manage Wallet")
	if wallet.Known {
		fmt.Fprintf(w, "Current Balance: %s\n", FormatINR(wallet.Balance))
	} else {
		fmt.Fprintf(w, "Current Balance: %s\n", FormatINR(0))
	}
}

// FormatINR formats an amount in rupees with Indian digit grouping,
// e.g. 1234567.5 -> ₹12,34,567.50
func FormatINR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	paise := int64(math.Round(amount * 100))
	whole := strconv.FormatInt(paise/100, 10)
	frac := paise % 100

	// last three digits, then groups of two
	var grouped string
	if len(whole) <= 3 {
		grouped = whole
	} else {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(parts, ",") + "," + tail
	}

	return fmt.Sprintf("%s₹%s.%02d", sign, grouped, frac)
}
