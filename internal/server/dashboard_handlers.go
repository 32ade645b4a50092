package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickcred/quickcred/internal/models"
)

// Analytics holds borrower dashboard summary numbers
type Analytics struct {
	WalletBalance       float64 `json:"wallet_balance"`
	TotalLoansRequested int     `json:"total_loans_requested"`
	PendingLoans        int     `json:"pending_loans"`
	FundedLoans         int     `json:"funded_loans"`
	RepaidLoans         int     `json:"repaid_loans"`
	TotalBorrowed       float64 `json:"total_borrowed"`
}

// LenderAnalytics holds lender dashboard summary numbers
type LenderAnalytics struct {
	WalletBalance    float64 `json:"wallet_balance"`
	TotalLoansFunded int     `json:"total_loans_funded"`
	TotalLoansRepaid int     `json:"total_loans_repaid"`
	TotalReturns     float64 `json:"total_returns"`
	ActiveLoans      int     `json:"active_loans"`
	TotalInvested    float64 `json:"total_invested"`
}

// BorrowerDataResponse is the borrower dashboard payload
type BorrowerDataResponse struct {
	User      *UserDetail  `json:"user"`
	Analytics Analytics    `json:"analytics"`
	Loans     []LoanDetail `json:"loans"`
}

// LenderDataResponse is the lender dashboard payload
type LenderDataResponse struct {
	User           *UserDetail     `json:"user"`
	Analytics      LenderAnalytics `json:"analytics"`
	MyLoans        []LoanDetail    `json:"my_loans"`
	AvailableLoans []LoanDetail    `json:"available_loans"`
}

// AnalyticsResponse carries the role specific analytics of the caller
type AnalyticsResponse struct {
	Analytics map[string]any `json:"analytics"`
}

// listLoans returns loans whose column equals id, newest first
func (s *Server) listLoans(ctx context.Context, column, id string) ([]models.Loan, error) {
	var loans []models.Loan
	err := s.db.WithContext(ctx).
		Preload("Borrower").
		Where(column+" = ?", id).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// listPendingLoans returns loans waiting for a lender, skipping those
// requested by excludeBorrower when set
func (s *Server) listPendingLoans(ctx context.Context, excludeBorrower string) ([]models.Loan, error) {
	query := s.db.WithContext(ctx).
		Preload("Borrower").
		Where("status = ?", models.LoanPending)
	if excludeBorrower != "" {
		query = query.Where("borrower_id <> ?", excludeBorrower)
	}

	var loans []models.Loan
	err := query.Order("created_at ASC").Find(&loans).Error
	return loans, err
}

func borrowerAnalytics(user *models.User, loans []models.Loan) Analytics {
	analytics := Analytics{
		WalletBalance:       user.WalletBalance,
		TotalLoansRequested: len(loans),
	}
	for _, loan := range loans {
		switch loan.Status {
		case models.LoanPending:
			analytics.PendingLoans++
		case models.LoanFunded:
			analytics.FundedLoans++
			analytics.TotalBorrowed += loan.Amount
		case models.LoanRepaid:
			analytics.RepaidLoans++
			analytics.TotalBorrowed += loan.Amount
		}
	}
	analytics.TotalBorrowed = roundPaise(analytics.TotalBorrowed)
	return analytics
}

func (s *Server) lenderAnalytics(ctx context.Context, user *models.User, loans []models.Loan) (LenderAnalytics, error) {
	analytics := LenderAnalytics{WalletBalance: user.WalletBalance}
	for _, loan := range loans {
		switch loan.Status {
		case models.LoanFunded:
			analytics.TotalLoansFunded++
			analytics.ActiveLoans++
			analytics.TotalInvested += loan.Amount
		case models.LoanRepaid:
			analytics.TotalLoansRepaid++
			analytics.TotalInvested += loan.Amount
		}
	}
	analytics.TotalInvested = roundPaise(analytics.TotalInvested)

	var returns float64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", user.ID, models.TransactionInterestPayment).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&returns).Error
	if err != nil {
		return analytics, err
	}
	analytics.TotalReturns = roundPaise(returns)
	return analytics, nil
}

// @Summary Borrower dashboard data
// @Tags dashboard
// @Produce json
// @Success 200 {object} BorrowerDataResponse
// @Failure 401 {object} map[string]interface{}
// @Router /dashboard/borrower-data [get]
func (s *Server) borrowerData(c *gin.Context) {
	user, _ := currentUser(c)

	loans, err := s.listLoans(c.Request.Context(), "borrower_id", user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load borrower dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, BorrowerDataResponse{
		User:      newUserDetail(user),
		Analytics: borrowerAnalytics(user, loans),
		Loans:     newLoanDetails(loans),
	})
}

// @Summary Lender dashboard data
// @Tags dashboard
// @Produce json
// @Success 200 {object} LenderDataResponse
// @Failure 401 {object} map[string]interface{}
// @Router /dashboard/lender-data [get]
func (s *Server) lenderData(c *gin.Context) {
	user, _ := currentUser(c)
	ctx := c.Request.Context()

	myLoans, err := s.listLoans(ctx, "lender_id", user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load lender dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	available, err := s.listPendingLoans(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load available loans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	analytics, err := s.lenderAnalytics(ctx, user, myLoans)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to sum lender returns")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, LenderDataResponse{
		User:           newUserDetail(user),
		Analytics:      analytics,
		MyLoans:        newLoanDetails(myLoans),
		AvailableLoans: newLoanDetails(available),
	})
}

// roleAnalytics flattens the caller's dashboard numbers into one object
func (s *Server) roleAnalytics(ctx context.Context, user *models.User) (map[string]any, error) {
	result := map[string]any{
		"user_role":      user.Role,
		"wallet_balance": user.WalletBalance,
	}

	if user.Role != models.RoleLender {
		loans, err := s.listLoans(ctx, "borrower_id", user.ID)
		if err != nil {
			return nil, err
		}
		analytics := borrowerAnalytics(user, loans)
		result["total_loans_requested"] = analytics.TotalLoansRequested
		result["pending_loans"] = analytics.PendingLoans
		result["funded_loans"] = analytics.FundedLoans
		result["repaid_loans"] = analytics.RepaidLoans
		result["total_borrowed"] = analytics.TotalBorrowed
		return result, nil
	}

	loans, err := s.listLoans(ctx, "lender_id", user.ID)
	if err != nil {
		return nil, err
	}
	analytics, err := s.lenderAnalytics(ctx, user, loans)
	if err != nil {
		return nil, err
	}
	result["total_loans_funded"] = analytics.TotalLoansFunded
	result["total_loans_repaid"] = analytics.TotalLoansRepaid
	result["total_returns"] = analytics.TotalReturns
	result["active_loans"] = analytics.ActiveLoans
	result["total_invested"] = analytics.TotalInvested
	return result, nil
}

// @Summary Role specific analytics
// @Tags transactions
// @Produce json
// @Success 200 {object} AnalyticsResponse
// @Failure 401 {object} map[string]interface{}
// @Router /transactions/analytics [get]
func (s *Server) transactionAnalytics(c *gin.Context) {
	user, _ := currentUser(c)

	analytics, err := s.roleAnalytics(c.Request.Context(), user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to compute analytics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, AnalyticsResponse{Analytics: analytics})
}
