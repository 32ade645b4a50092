package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/quickcred/quickcred/internal/cli/client"
	"github.com/quickcred/quickcred/internal/cli/render"
	"github.com/quickcred/quickcred/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var validate = validator.New()

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to QuickCred",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set QUICKCRED_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set QUICKCRED_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, email, password string, opts ...AppOption) error {
	// Check for environment variables (useful for scripting)
	if email == "" {
		email = os.Getenv("QUICKCRED_EMAIL")
	}
	if password == "" {
		password = os.Getenv("QUICKCRED_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or QUICKCRED_EMAIL env var)")
	}

	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if password == "" {
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	req := client.LoginRequest{Email: email, Password: password}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid login details: %w", err)
	}

	origin, _ := a.server.Origin()
	fmt.Fprintf(a.out, "Logging in to %s (%s)...\n", a.server.Alias, origin)

	loginErr := a.ctrl.Login(ctx, req.Email, req.Password)
	if err := a.browser.Follow(ctx); err != nil {
		return err
	}
	if loginErr != nil {
		return fmt.Errorf("login failed: %w", loginErr)
	}
	return nil
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a QuickCred account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), client.RegisterRequest{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     session.Role(role),
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set QUICKCRED_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set QUICKCRED_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&role, "role", "", "Primary role: borrower or lender (will prompt if not provided)")

	return cmd
}

func runRegister(ctx context.Context, req client.RegisterRequest, opts ...AppOption) error {
	if req.Email == "" {
		req.Email = os.Getenv("QUICKCRED_EMAIL")
	}
	if req.Password == "" {
		req.Password = os.Getenv("QUICKCRED_PASSWORD")
	}

	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	if req.Name == "" {
		if req.Name, err = promptText("Full name"); err != nil {
			return err
		}
	}
	if req.Email == "" {
		if req.Email, err = promptText("Email"); err != nil {
			return err
		}
	}
	if req.Password == "" {
		if req.Password, err = readPassword(); err != nil {
			return err
		}
	}
	if req.Role == "" {
		if req.Role, err = promptRole(); err != nil {
			return err
		}
	}

	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid registration details: %w", err)
	}

	resp, err := a.client.Register(ctx, req)
	if err != nil {
		msg := err.Error()
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		fmt.Fprintln(a.out, render.Notice(session.Notice{Level: session.NoticeError, Message: "Registration failed: " + msg}))
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(a.out, render.Notice(session.Notice{Level: session.NoticeSuccess, Message: "Registration successful! Please login."}))
	cliLogger.Debug().Str("user_id", resp.UserID).Str("role", string(resp.Role)).Msg("Registered")
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of QuickCred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context, opts ...AppOption) error {
	a, err := newApp(opts...)
	if err != nil {
		return err
	}

	logoutErr := a.ctrl.Logout(ctx)
	if logoutErr == nil {
		if err := a.jar.Clear(); err != nil {
			return fmt.Errorf("failed to delete stored session: %w", err)
		}
	}

	if err := a.browser.Follow(ctx); err != nil {
		return err
	}
	if logoutErr != nil {
		return fmt.Errorf("logout failed: %w", logoutErr)
	}
	return nil
}

func readPassword() (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or QUICKCRED_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func promptText(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		},
	}

	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled: %w", err)
	}
	return value, nil
}

func promptRole() (session.Role, error) {
	roles := []session.Role{session.RoleBorrower, session.RoleLender}

	prompt := promptui.Select{
		Label: "I want to",
		Items: []string{"Borrow money (borrower)", "Lend money (lender)"},
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("role selection cancelled: %w", err)
	}
	return roles[index], nil
}
