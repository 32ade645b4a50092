package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcred/quickcred/internal/cli/client"
	"github.com/quickcred/quickcred/internal/session"
)

func TestRunRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := client.RegisterRequest{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Password: "secret123",
		Role:     session.RoleLender,
	}

	require.NoError(t, runRegister(ctx, req, env.opts()...))
	assert.Contains(t, env.out.String(), "✓ Registration successful! Please login.")

	env.out.Reset()
	err := runRegister(ctx, req, env.opts()...)
	require.Error(t, err)
	assert.Contains(t, env.out.String(), "✗ Registration failed: User already exists")
}

func TestRunRegister_InvalidDetailsSkipNetwork(t *testing.T) {
	env := newTestEnv(t)

	err := runRegister(context.Background(), client.RegisterRequest{
		Name:     "Asha Rao",
		Email:    "not-an-email",
		Password: "secret123",
		Role:     session.RoleBorrower,
	}, env.opts()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid registration details")
	assert.Zero(t, env.count("/auth/register"))
}

func TestRunLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, runRegister(ctx, client.RegisterRequest{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Password: "secret123",
		Role:     session.RoleBorrower,
	}, env.opts()...))
	env.out.Reset()

	require.NoError(t, runLogin(ctx, "asha@example.com", "secret123", env.opts()...))

	output := env.out.String()
	assert.Contains(t, output, "Logging in to test")
	assert.Contains(t, output, "── /dashboard")
	assert.Contains(t, output, "Welcome back, Asha Rao! Manage your loan applications.")
	assert.Contains(t, output, "[● borrower] [○ lender]")
	assert.Contains(t, output, "Wallet: ₹0.00")

	assert.NotEmpty(t, env.cookies.cookies, "session cookie is persisted")
	_, hasSession := env.durable.Get(session.KeyHasSession)
	assert.True(t, hasSession)
	_, justLoggedIn := env.ephemeral.Get(session.KeyJustLoggedIn)
	assert.False(t, justLoggedIn, "dashboard load consumes the login marker")
}

func TestRunLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, session.RoleBorrower)
	require.NoError(t, runLogout(context.Background(), env.opts()...))
	env.out.Reset()

	err := runLogin(context.Background(), "asha@example.com", "wrong-password", env.opts()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.Contains(t, env.out.String(), "✗ Login failed: Invalid credentials")
	assert.NotContains(t, env.out.String(), "── /dashboard")
	assert.Empty(t, env.cookies.cookies)
}

func TestRunLogin_RequiresEmail(t *testing.T) {
	t.Setenv("QUICKCRED_EMAIL", "")

	err := runLogin(context.Background(), "", "secret123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestRunLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, session.RoleBorrower)
	ctx := context.Background()

	require.NoError(t, runLogout(ctx, env.opts()...))

	output := env.out.String()
	assert.Contains(t, output, "✓ Logged out successfully")
	assert.Contains(t, output, "Not signed in")
	assert.Empty(t, env.cookies.cookies)

	_, hasSession := env.durable.Get(session.KeyHasSession)
	assert.False(t, hasSession)

	// with no remembered session the landing page stays quiet
	profileCalls := env.count("/auth/profile")
	require.NoError(t, runHome(ctx, env.opts()...))
	assert.Equal(t, profileCalls, env.count("/auth/profile"))
}
