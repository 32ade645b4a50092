package commands

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/quickcred/quickcred/internal/cli/render"
	"github.com/quickcred/quickcred/internal/session"
	"github.com/spf13/cobra"
)

// NewWalletCmd creates the wallet command
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet [add|subtract] [amount]",
		Short: "Add money to or remove money from your wallet",
		Long: `Add money to or remove money from your wallet.

Missing arguments are asked for interactively.

Examples:
  $ quickcred wallet               # Interactive
  $ quickcred wallet add 5000      # Add ₹5,000
  $ quickcred wallet subtract 250  # Remove ₹250`,
		Args:      cobra.MaximumNArgs(2),
		ValidArgs: []string{string(session.OpAdd), string(session.OpSubtract)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var op, amount string
			if len(args) > 0 {
				op = args[0]
			}
			if len(args) > 1 {
				amount = args[1]
			}
			return runWallet(cmd.Context(), op, amount)
		},
	}

	return cmd
}

func runWallet(ctx context.Context, rawOp, rawAmount string, opts ...AppOption) error {
	var op session.Operation
	if rawOp != "" {
		parsed, err := session.ParseOperation(rawOp)
		if err != nil {
			return err
		}
		op = parsed
	}

	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if err := a.browser.Open(ctx, session.PathDashboard); err != nil {
		return err
	}
	if _, err := a.requireUser(); err != nil {
		return err
	}

	render.WalletDialog(a.out, a.ctrl.ViewModel().Wallet)

	if op == "" {
		if op, err = promptOperation(); err != nil {
			return err
		}
	}
	if rawAmount == "" {
		if rawAmount, err = promptText("Amount (₹)"); err != nil {
			return err
		}
	}

	_, walletErr := a.ctrl.AdjustWallet(ctx, op, rawAmount)
	if err := a.browser.Render(ctx); err != nil {
		return err
	}
	if walletErr != nil {
		return fmt.Errorf("wallet update failed: %w", walletErr)
	}
	return nil
}

// NewTopUpCmd creates the topup command
func NewTopUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topup <amount>",
		Short: "Top up your wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopUp(cmd.Context(), args[0])
		},
	}
}

func runTopUp(ctx context.Context, rawAmount string, opts ...AppOption) error {
	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if err := a.browser.Open(ctx, session.PathDashboard); err != nil {
		return err
	}

	_, topUpErr := a.ctrl.TopUp(ctx, rawAmount)
	if err := a.browser.Follow(ctx); err != nil {
		return err
	}
	if topUpErr != nil {
		return fmt.Errorf("top-up failed: %w", topUpErr)
	}
	return nil
}

func promptOperation() (session.Operation, error) {
	ops := []session.Operation{session.OpAdd, session.OpSubtract}

	prompt := promptui.Select{
		Label: "Wallet operation",
		Items: []string{"Add Money", "Remove Money"},
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("operation selection cancelled: %w", err)
	}
	return ops[index], nil
}
