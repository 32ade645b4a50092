package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickcred/quickcred/internal/models"
)

// loanTermDays is the length of one loan month when computing due dates
const loanTermDays = 30

// requestError is a handler failure that maps straight to a response
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

var (
	errLoanNotFound     = &requestError{http.StatusNotFound, "Loan not found"}
	errLoanNotPending   = &requestError{http.StatusBadRequest, "Loan is not available for funding"}
	errLoanNotFunded    = &requestError{http.StatusBadRequest, "Loan is not in funded status"}
	errLenderOnly       = &requestError{http.StatusForbidden, "Only lenders can fund loans"}
	errOwnLoan          = &requestError{http.StatusForbidden, "You cannot fund your own loan"}
	errBorrowerOnly     = &requestError{http.StatusForbidden, "Only the borrower can repay this loan"}
	errFundingBalance   = &requestError{http.StatusBadRequest, "Insufficient wallet balance"}
	errRepaymentBalance = &requestError{http.StatusBadRequest, "Insufficient wallet balance for repayment"}
)

// CreateLoanRequest represents a loan request
type CreateLoanRequest struct {
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"term_months"`
	Purpose    string  `json:"purpose"`
}

// CreateLoanResponse is returned when a loan request is stored
type CreateLoanResponse struct {
	Message string `json:"message"`
	LoanID  string `json:"loan_id"`
}

// FundLoanResponse is returned when a lender funds a loan
type FundLoanResponse struct {
	Message    string  `json:"message"`
	NewBalance float64 `json:"new_balance"`
}

// RepayLoanResponse is returned when a borrower repays a loan
type RepayLoanResponse struct {
	Message        string  `json:"message"`
	TotalRepayment float64 `json:"total_repayment"`
	LenderReturn   float64 `json:"lender_return"`
	PlatformMargin float64 `json:"platform_margin"`
	NewBalance     float64 `json:"new_balance"`
}

// LoansResponse lists loans
type LoansResponse struct {
	Loans []LoanDetail `json:"loans"`
}

// LoanDetail is a loan as shown to clients. Repayment figures are only set
// once the loan is funded.
type LoanDetail struct {
	ID            string     `json:"id"`
	BorrowerID    string     `json:"borrower_id"`
	LenderID      *string    `json:"lender_id,omitempty"`
	BorrowerName  string     `json:"borrower_name,omitempty"`
	BorrowerEmail string     `json:"borrower_email,omitempty"`
	Amount        float64    `json:"amount"`
	TermMonths    int        `json:"term_months"`
	Purpose       string     `json:"purpose"`
	Status        string     `json:"status"`
	InterestRate  float64    `json:"interest_rate"`
	TotalInterest float64    `json:"total_interest,omitempty"`
	TotalAmount   float64    `json:"total_amount,omitempty"`
	LenderReturn  float64    `json:"lender_return,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FundedAt      *time.Time `json:"funded_at,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

func newLoanDetail(loan *models.Loan) LoanDetail {
	detail := LoanDetail{
		ID:           loan.ID,
		BorrowerID:   loan.BorrowerID,
		LenderID:     loan.LenderID,
		Amount:       loan.Amount,
		TermMonths:   loan.TermMonths,
		Purpose:      loan.Purpose,
		Status:       loan.Status,
		InterestRate: loan.InterestRate,
		CreatedAt:    loan.CreatedAt,
		FundedAt:     loan.FundedAt,
		DueDate:      loan.DueDate,
	}
	if loan.Borrower.ID != "" {
		detail.BorrowerName = loan.Borrower.Name
		detail.BorrowerEmail = loan.Borrower.Email
	}
	if loan.Status != models.LoanPending {
		detail.TotalInterest = loan.Interest()
		detail.TotalAmount = roundPaise(loan.Amount + detail.TotalInterest)
		detail.LenderReturn = loan.LenderReturn()
	}
	return detail
}

func newLoanDetails(loans []models.Loan) []LoanDetail {
	details := make([]LoanDetail, 0, len(loans))
	for i := range loans {
		details = append(details, newLoanDetail(&loans[i]))
	}
	return details
}

// respondLoanError answers with the mapped request error, or 500
func (s *Server) respondLoanError(c *gin.Context, err error, message string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.JSON(reqErr.status, gin.H{"error": reqErr.message})
		return
	}
	s.logger.Error().Err(err).Str("loan_id", c.Param("id")).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// findLoan loads a loan inside tx, mapping a missing row to errLoanNotFound
func findLoan(tx *gorm.DB, id string) (*models.Loan, error) {
	var loan models.Loan
	if err := models.FindByID(tx, id, &loan); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// @Summary Request a loan
// @Tags loans
// @Accept json
// @Produce json
// @Param request body CreateLoanRequest true "Loan request"
// @Success 201 {object} CreateLoanResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /loans/create [post]
func (s *Server) createLoan(c *gin.Context) {
	user, _ := currentUser(c)

	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == 0 || req.TermMonths == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount and term required"})
		return
	}
	if !validAmount(req.Amount) || req.Amount < models.LoanMinAmount || req.Amount > models.LoanMaxAmount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loan amount must be between ₹500 and ₹50,000"})
		return
	}
	if req.TermMonths < models.LoanMinTerm || req.TermMonths > models.LoanMaxTerm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loan term must be between 1 and 12 months"})
		return
	}

	loan := &models.Loan{
		BorrowerID:         user.ID,
		Amount:             roundPaise(req.Amount),
		TermMonths:         req.TermMonths,
		Purpose:            req.Purpose,
		Status:             models.LoanPending,
		InterestRate:       models.LoanInterestRate,
		LenderReturnRate:   models.LoanLenderReturnRate,
		PlatformMarginRate: models.LoanPlatformMarginRate,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(loan).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create loan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().
		Str("loan_id", loan.ID).
		Str("borrower_id", user.ID).
		Float64("amount", loan.Amount).
		Int("term_months", loan.TermMonths).
		Msg("Loan requested")

	c.JSON(http.StatusCreated, CreateLoanResponse{
		Message: "Loan request created successfully",
		LoanID:  loan.ID,
	})
}

// @Summary List loans waiting for a lender
// @Tags loans
// @Produce json
// @Success 200 {object} LoansResponse
// @Router /loans/pending [get]
func (s *Server) pendingLoans(c *gin.Context) {
	loans, err := s.listPendingLoans(c.Request.Context(), "")
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list pending loans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, LoansResponse{Loans: newLoanDetails(loans)})
}

// @Summary List the caller's loans
// @Description Borrowers see the loans they requested, lenders the loans they funded
// @Tags loans
// @Produce json
// @Success 200 {object} LoansResponse
// @Failure 401 {object} map[string]interface{}
// @Router /loans/my-loans [get]
func (s *Server) myLoans(c *gin.Context) {
	user, _ := currentUser(c)

	column := "borrower_id"
	if user.Role == models.RoleLender {
		column = "lender_id"
	}

	loans, err := s.listLoans(c.Request.Context(), column, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list loans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, LoansResponse{Loans: newLoanDetails(loans)})
}

// @Summary Fund a pending loan
// @Description Moves the principal from the lender's wallet to the borrower's
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} FundLoanResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /loans/fund/{id} [post]
func (s *Server) fundLoan(c *gin.Context) {
	user, _ := currentUser(c)
	loanID := c.Param("id")

	var (
		loan       *models.Loan
		newBalance float64
	)
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if loan, err = findLoan(tx, loanID); err != nil {
			return err
		}
		if loan.Status != models.LoanPending {
			return errLoanNotPending
		}
		if user.Role != models.RoleLender {
			return errLenderOnly
		}
		if loan.BorrowerID == user.ID {
			return errOwnLoan
		}

		fundedAt := time.Now().UTC()
		dueDate := fundedAt.AddDate(0, 0, loan.TermMonths*loanTermDays)

		// Only one lender can win a pending loan
		result := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", loan.ID, models.LoanPending).
			Updates(map[string]any{
				"status":    models.LoanFunded,
				"lender_id": user.ID,
				"funded_at": fundedAt,
				"due_date":  dueDate,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errLoanNotPending
		}

		newBalance, err = moveFunds(tx, user.ID, &loan.ID, -loan.Amount,
			models.TransactionLoanFunding, fmt.Sprintf("Funded loan for %.2f", loan.Amount))
		if errors.Is(err, errInsufficientBalance) {
			return errFundingBalance
		}
		if err != nil {
			return err
		}

		_, err = moveFunds(tx, loan.BorrowerID, &loan.ID, loan.Amount,
			models.TransactionLoanDisbursement, fmt.Sprintf("Loan of %.2f disbursed", loan.Amount))
		return err
	})
	if err != nil {
		s.respondLoanError(c, err, "Failed to fund loan")
		return
	}

	s.logger.Info().
		Str("loan_id", loan.ID).
		Str("lender_id", user.ID).
		Str("borrower_id", loan.BorrowerID).
		Float64("amount", loan.Amount).
		Msg("Loan funded")

	c.JSON(http.StatusOK, FundLoanResponse{
		Message:    "Loan funded successfully",
		NewBalance: newBalance,
	})
}

// @Summary Repay a funded loan
// @Description Debits principal plus interest from the borrower and pays the lender principal plus their return
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} RepayLoanResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /loans/repay/{id} [post]
func (s *Server) repayLoan(c *gin.Context) {
	user, _ := currentUser(c)
	loanID := c.Param("id")

	var resp RepayLoanResponse
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		loan, err := findLoan(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanFunded || loan.LenderID == nil {
			return errLoanNotFunded
		}
		if loan.BorrowerID != user.ID {
			return errBorrowerOnly
		}

		interest := loan.Interest()
		lenderReturn := loan.LenderReturn()
		resp.TotalRepayment = roundPaise(loan.Amount + interest)
		resp.LenderReturn = lenderReturn
		resp.PlatformMargin = roundPaise(interest - lenderReturn)

		result := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", loan.ID, models.LoanFunded).
			Update("status", models.LoanRepaid)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errLoanNotFunded
		}

		resp.NewBalance, err = moveFunds(tx, user.ID, &loan.ID, -resp.TotalRepayment,
			models.TransactionRepayment, fmt.Sprintf("Loan repayment of %.2f", resp.TotalRepayment))
		if errors.Is(err, errInsufficientBalance) {
			return errRepaymentBalance
		}
		if err != nil {
			return err
		}

		if _, err := moveFunds(tx, *loan.LenderID, &loan.ID, loan.Amount,
			models.TransactionPrincipalReturn, fmt.Sprintf("Principal of %.2f returned", loan.Amount)); err != nil {
			return err
		}
		_, err = moveFunds(tx, *loan.LenderID, &loan.ID, lenderReturn,
			models.TransactionInterestPayment, fmt.Sprintf("Lender return of %.2f", lenderReturn))
		return err
	})
	if err != nil {
		s.respondLoanError(c, err, "Failed to repay loan")
		return
	}

	s.logger.Info().
		Str("loan_id", loanID).
		Str("borrower_id", user.ID).
		Float64("total_repayment", resp.TotalRepayment).
		Float64("platform_margin", resp.PlatformMargin).
		Msg("Loan repaid")

	resp.Message = "Loan repaid successfully"
	c.JSON(http.StatusOK, resp)
}
