package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcred/quickcred/internal/session"
)

// DefaultTimeout bounds every API call
const DefaultTimeout = 8000 * time.Millisecond

var (
	// ErrUnauthorized is returned, together with the *APIError, when the
	// server answers 401. The unauthorized handler has already run.
	ErrUnauthorized = session.ErrSessionRejected
	ErrTimeout      = errors.New("request timed out")
)

// APIError is the error payload returned by the backend
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ErrorCode returns the structured error code, if any
func (e *APIError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the human readable message from the backend
func (e *APIError) ErrorMessage() string {
	return e.Message
}

// UnauthorizedHandler is called whenever a request is answered with 401
type UnauthorizedHandler func(ctx context.Context, err error)

// Client represents an HTTP client for the QuickCred API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	onUnauthorized UnauthorizedHandler
	logger         zerolog.Logger
}

// New creates a new API client with an in-memory cookie jar
func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar: jar,
		},
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetCookieJar replaces the cookie jar holding the session cookie
func (c *Client) SetCookieJar(jar http.CookieJar) {
	c.httpClient.Jar = jar
}

// SetTimeout overrides the per-request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SetLogger sets the client logger
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// OnUnauthorized registers the handler run on every 401 response
func (c *Client) OnUnauthorized(handler UnauthorizedHandler) {
	c.onUnauthorized = handler
}

// call is the shared request helper. It sends JSON, applies the timeout,
// decodes a 2xx body into out and turns anything else into an error. A 401
// runs the unauthorized handler and yields no result.
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w after %s", method, endpoint, ErrTimeout, c.timeout)
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)

		if resp.StatusCode == http.StatusUnauthorized {
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx, apiErr)
			}
			return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w after %s", method, endpoint, ErrTimeout, c.timeout)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// userResponse wraps endpoints that answer with {"user": {...}}
type userResponse struct {
	Message string        `json:"message,omitempty"`
	User    *session.User `json:"user"`
}

// Profile returns the user behind the current session cookie
func (c *Client) Profile(ctx context.Context) (*session.User, error) {
	var resp userResponse
	if err := c.call(ctx, http.MethodGet, "/auth/profile", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("profile response has no user")
	}
	return resp.User, nil
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates the user. The session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*session.User, error) {
	reqBody := LoginRequest{
		Email:    email,
		Password: password,
	}

	var resp userResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("login response has no user")
	}
	return resp.User, nil
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string       `json:"name" validate:"required"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Role     session.Role `json:"role" validate:"required,oneof=borrower lender"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Message string       `json:"message"`
	UserID  string       `json:"user_id"`
	Role    session.Role `json:"role"`
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, reqBody RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", reqBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the session on the server
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

type balanceResponse struct {
	Message    string   `json:"message"`
	NewBalance *float64 `json:"new_balance"`
}

func (r balanceResponse) balance() (float64, error) {
	if r.NewBalance == nil {
		return 0, fmt.Errorf("response has no new_balance")
	}
	return *r.NewBalance, nil
}

// TopUpRequest represents the top-up request body
type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

// TopUp credits the wallet and returns the balance reported by the server
func (c *Client) TopUp(ctx context.Context, amount float64) (float64, error) {
	var resp balanceResponse
	if err := c.call(ctx, http.MethodPost, "/transactions/topup", TopUpRequest{Amount: amount}, &resp); err != nil {
		return 0, err
	}
	return resp.balance()
}

// UpdateWalletRequest represents the wallet adjustment request body
type UpdateWalletRequest struct {
	Operation session.Operation `json:"operation"`
	Amount    float64           `json:"amount"`
}

// UpdateWallet adjusts the wallet and returns the balance reported by the server
func (c *Client) UpdateWallet(ctx context.Context, op session.Operation, amount float64) (float64, error) {
	reqBody := UpdateWalletRequest{
		Operation: op,
		Amount:    amount,
	}

	var resp balanceResponse
	if err := c.call(ctx, http.MethodPost, "/transactions/update-wallet", reqBody, &resp); err != nil {
		return 0, err
	}
	return resp.balance()
}

// DashboardData loads the data behind a dashboard view
func (c *Client) DashboardData(ctx context.Context, view session.View) (*session.DashboardData, error) {
	var endpoint string
	switch view {
	case session.ViewBorrower:
		endpoint = "/dashboard/borrower-data"
	case session.ViewLender:
		endpoint = "/dashboard/lender-data"
	default:
		return nil, fmt.Errorf("unknown dashboard view '%s'", view)
	}

	var data session.DashboardData
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type createLoanResponse struct {
	Message string `json:"message"`
	LoanID  string `json:"loan_id"`
}

// CreateLoan submits a loan request and returns the new loan's ID
func (c *Client) CreateLoan(ctx context.Context, req session.LoanRequest) (string, error) {
	var resp createLoanResponse
	if err := c.call(ctx, http.MethodPost, "/loans/create", req, &resp); err != nil {
		return "", err
	}
	if resp.LoanID == "" {
		return "", fmt.Errorf("loan response has no loan_id")
	}
	return resp.LoanID, nil
}

// FundLoan funds a pending loan and returns the lender's new balance
func (c *Client) FundLoan(ctx context.Context, id string) (float64, error) {
	var resp balanceResponse
	if err := c.call(ctx, http.MethodPost, "/loans/fund/"+url.PathEscape(id), nil, &resp); err != nil {
		return 0, err
	}
	return resp.balance()
}

type repayResponse struct {
	session.Repayment
	NewBalance *float64 `json:"new_balance"`
}

// RepayLoan repays a funded loan and returns the settlement
func (c *Client) RepayLoan(ctx context.Context, id string) (*session.Repayment, error) {
	var resp repayResponse
	if err := c.call(ctx, http.MethodPost, "/loans/repay/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.NewBalance == nil {
		return nil, fmt.Errorf("response has no new_balance")
	}
	repayment := resp.Repayment
	repayment.NewBalance = *resp.NewBalance
	return &repayment, nil
}
