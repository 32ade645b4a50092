package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickcred/quickcred/internal/cli/render"
	"github.com/quickcred/quickcred/internal/session"
)

// NewLoanCmd creates the loan command group
func NewLoanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Request, fund and repay loans",
		Long: `Request, fund and repay loans.

Loans run from ₹500 to ₹50,000 over 1 to 12 months. Borrowers pay 4.7%
interest per month; lenders earn 2% per month on what they fund.`,
	}

	cmd.AddCommand(newLoanRequestCmd())
	cmd.AddCommand(newLoanFundCmd())
	cmd.AddCommand(newLoanRepayCmd())

	return cmd
}

func newLoanRequestCmd() *cobra.Command {
	var purpose string

	cmd := &cobra.Command{
		Use:   "request <amount> <term-months>",
		Short: "Ask lenders for a loan",
		Long: `Ask lenders for a loan.

Examples:
  $ quickcred loan request 10000 6
  $ quickcred loan request 2500 3 --purpose "Shop stock"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoanRequest(cmd.Context(), args[0], args[1], purpose)
		},
	}

	cmd.Flags().StringVar(&purpose, "purpose", "", "What the loan is for")

	return cmd
}

func newLoanFundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund <loan-id>",
		Short: "Fund a pending loan from your wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoanFund(cmd.Context(), args[0])
		},
	}
}

func newLoanRepayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repay <loan-id>",
		Short: "Repay a funded loan with interest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoanRepay(cmd.Context(), args[0])
		},
	}
}

// loanAction opens the dashboard, runs action and follows the reload it
// triggers. action reports the error that fails the command.
func loanAction(ctx context.Context, action func(a *app) error, opts ...AppOption) error {
	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if err := a.browser.Open(ctx, session.PathDashboard); err != nil {
		return err
	}

	actionErr := action(a)
	if err := a.browser.Follow(ctx); err != nil {
		return err
	}
	return actionErr
}

func runLoanRequest(ctx context.Context, rawAmount, rawTerm, purpose string, opts ...AppOption) error {
	return loanAction(ctx, func(a *app) error {
		id, err := a.ctrl.RequestLoan(ctx, rawAmount, rawTerm, purpose)
		if err != nil {
			return fmt.Errorf("loan request failed: %w", err)
		}
		fmt.Fprintf(a.out, "Loan ID: %s\n", id)
		return nil
	}, opts...)
}

func runLoanFund(ctx context.Context, id string, opts ...AppOption) error {
	return loanAction(ctx, func(a *app) error {
		if _, err := a.ctrl.FundLoan(ctx, id); err != nil {
			return fmt.Errorf("funding failed: %w", err)
		}
		return nil
	}, opts...)
}

func runLoanRepay(ctx context.Context, id string, opts ...AppOption) error {
	return loanAction(ctx, func(a *app) error {
		repayment, err := a.ctrl.RepayLoan(ctx, id)
		if err != nil {
			return fmt.Errorf("repayment failed: %w", err)
		}
		render.Repayment(a.out, repayment)
		return nil
	}, opts...)
}
