package session

import (
	"errors"
	"fmt"
	"time"
)

// Role is the primary role a user registered with
type Role string

const (
	RoleBorrower Role = "borrower"
	RoleLender   Role = "lender"
)

// View is one of the two mutually exclusive dashboard views
type View string

const (
	ViewBorrower View = "borrower"
	ViewLender   View = "lender"
)

// ParseView validates a dashboard view name
func ParseView(raw string) (View, error) {
	switch View(raw) {
	case ViewBorrower, ViewLender:
		return View(raw), nil
	default:
		return "", fmt.Errorf("invalid view '%s', must be one of: borrower, lender", raw)
	}
}

// Operation is a wallet adjustment direction
type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
)

// ParseOperation validates a wallet operation name
func ParseOperation(raw string) (Operation, error) {
	switch Operation(raw) {
	case OpAdd, OpSubtract:
		return Operation(raw), nil
	default:
		return "", fmt.Errorf("invalid operation '%s', must be one of: add, subtract", raw)
	}
}

// Error codes the backend attaches to authentication failures
const (
	CodeAuthRequired   = "AUTH_REQUIRED"
	CodeSessionExpired = "SESSION_EXPIRED"
)

var (
	// ErrSessionRejected marks a call the server answered with 401. By the
	// time it is returned the session has already been cleared.
	ErrSessionRejected = errors.New("session rejected by server")
	ErrInvalidAmount   = errors.New("please enter a valid amount")
	ErrInvalidTerm     = errors.New("please enter a valid term")
	ErrMissingLoanID   = errors.New("loan id is required")
	ErrNotLoggedIn     = errors.New("please login first")
)

// CodedError is implemented by errors that carry a backend error code
type CodedError interface {
	error
	ErrorCode() string
}

// ErrorCode extracts the backend error code from err, or "" when there is none
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ""
}

// User is the identity confirmed by the backend
type User struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          Role    `json:"role"`
	WalletBalance float64 `json:"wallet_balance"`
}

// Analytics holds the dashboard summary numbers. Borrower and lender
// payloads fill different fields.
type Analytics struct {
	WalletBalance       float64 `json:"wallet_balance"`
	TotalLoansRequested int     `json:"total_loans_requested,omitempty"`
	PendingLoans        int     `json:"pending_loans,omitempty"`
	FundedLoans         int     `json:"funded_loans,omitempty"`
	RepaidLoans         int     `json:"repaid_loans,omitempty"`
	TotalBorrowed       float64 `json:"total_borrowed,omitempty"`
	TotalLoansFunded    int     `json:"total_loans_funded,omitempty"`
	TotalLoansRepaid    int     `json:"total_loans_repaid,omitempty"`
	TotalReturns        float64 `json:"total_returns,omitempty"`
	ActiveLoans         int     `json:"active_loans,omitempty"`
	TotalInvested       float64 `json:"total_invested,omitempty"`
}

// Loan statuses reported by the backend
const (
	LoanPending = "pending"
	LoanFunded  = "funded"
	LoanRepaid  = "repaid"
)

// Loan is a loan row shown on a dashboard. Repayment figures are only
// present once the loan is funded.
type Loan struct {
	ID            string     `json:"id"`
	Amount        float64    `json:"amount"`
	TermMonths    int        `json:"term_months"`
	Purpose       string     `json:"purpose"`
	Status        string     `json:"status"`
	BorrowerName  string     `json:"borrower_name,omitempty"`
	TotalInterest float64    `json:"total_interest,omitempty"`
	TotalAmount   float64    `json:"total_amount,omitempty"`
	LenderReturn  float64    `json:"lender_return,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

// LoanRequest is a borrower's request for a new loan
type LoanRequest struct {
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"term_months"`
	Purpose    string  `json:"purpose"`
}

// Repayment is the settlement the backend reports for a repaid loan
type Repayment struct {
	TotalRepayment float64 `json:"total_repayment"`
	LenderReturn   float64 `json:"lender_return"`
	PlatformMargin float64 `json:"platform_margin"`
	NewBalance     float64 `json:"new_balance"`
}

// DashboardData is the payload behind one dashboard view
type DashboardData struct {
	User           User      `json:"user"`
	Analytics      Analytics `json:"analytics"`
	Loans          []Loan    `json:"loans,omitempty"`
	MyLoans        []Loan    `json:"my_loans,omitempty"`
	AvailableLoans []Loan    `json:"available_loans,omitempty"`
}
