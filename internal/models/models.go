package models

import (
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/quickcred/quickcred/internal/assert"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
		assert.Length(b.ID, ulid.EncodedSize)
	}
	return nil
}

// Roles a user can register with
const (
	RoleBorrower = "borrower"
	RoleLender   = "lender"
)

// User represents a platform account. Every user has a wallet; the role only
// selects the default dashboard.
type User struct {
	BaseModel
	Name          string    `json:"name" gorm:"not null"`
	Email         string    `json:"email" gorm:"unique;not null"`
	PasswordHash  string    `json:"-" gorm:"not null"`
	Role          string    `json:"role" gorm:"not null;default:borrower"`
	WalletBalance float64   `json:"wallet_balance" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session is a server-side login. The cookie only carries its ID, so
// deleting the row logs the user out everywhere.
type Session struct {
	BaseModel
	UserID    string    `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`

	// Relationships
	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Loan statuses
const (
	LoanPending = "pending"
	LoanFunded  = "funded"
	LoanRepaid  = "repaid"
)

// Monthly rates applied to every new loan. The borrower pays
// LoanInterestRate; the lender earns LoanLenderReturnRate and the platform
// keeps the difference.
const (
	LoanInterestRate       = 0.047
	LoanLenderReturnRate   = 0.02
	LoanPlatformMarginRate = 0.027
)

// Loan request limits
const (
	LoanMinAmount = 500
	LoanMaxAmount = 50000
	LoanMinTerm   = 1
	LoanMaxTerm   = 12
)

// Loan is a borrower's request, funded by at most one lender
type Loan struct {
	BaseModel
	BorrowerID         string     `json:"borrower_id" gorm:"not null;index"`
	LenderID           *string    `json:"lender_id,omitempty" gorm:"index"`
	Amount             float64    `json:"amount" gorm:"not null"`
	TermMonths         int        `json:"term_months" gorm:"not null"`
	Purpose            string     `json:"purpose"`
	Status             string     `json:"status" gorm:"not null;default:pending;index"`
	InterestRate       float64    `json:"interest_rate" gorm:"not null"`
	LenderReturnRate   float64    `json:"lender_return_rate" gorm:"not null"`
	PlatformMarginRate float64    `json:"platform_margin_rate" gorm:"not null"`
	FundedAt           *time.Time `json:"funded_at,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Borrower User `json:"-" gorm:"foreignKey:BorrowerID;constraint:OnDelete:CASCADE"`
}

// Interest is what the borrower owes on top of the principal
func (l *Loan) Interest() float64 {
	return CalculateInterest(l.Amount, l.InterestRate, l.TermMonths)
}

// LenderReturn is what the lender earns on top of the principal
func (l *Loan) LenderReturn() float64 {
	return CalculateInterest(l.Amount, l.LenderReturnRate, l.TermMonths)
}

// CalculateInterest returns simple interest rounded to the paisa
func CalculateInterest(principal, monthlyRate float64, months int) float64 {
	return math.Round(principal*monthlyRate*float64(months)*100) / 100
}

// Transaction types
const (
	TransactionWalletTopup      = "wallet_topup"
	TransactionWalletDeposit    = "wallet_deposit"
	TransactionWalletWithdraw   = "wallet_withdrawal"
	TransactionLoanFunding      = "loan_funding"
	TransactionLoanDisbursement = "loan_disbursement"
	TransactionRepayment        = "repayment"
	TransactionPrincipalReturn  = "principal_return"
	TransactionInterestPayment  = "interest_payment"
)

// Transaction records a wallet movement
type Transaction struct {
	BaseModel
	UserID      string  `json:"user_id" gorm:"not null;index"`
	LoanID      *string `json:"loan_id,omitempty" gorm:"index"`
	Amount      float64 `json:"amount" gorm:"not null"`
	Type        string  `json:"type" gorm:"not null"`
	Description string  `json:"description"`

	// Relationships
	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Session{}, &Loan{}, &Transaction{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
