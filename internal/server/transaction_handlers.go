package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickcred/quickcred/internal/models"
)

var errInsufficientBalance = errors.New("insufficient balance")

// TopUpRequest represents a wallet top-up request
type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

// UpdateWalletRequest represents a wallet adjustment request
type UpdateWalletRequest struct {
	Operation string  `json:"operation"`
	Amount    float64 `json:"amount"`
}

// BalanceResponse is returned by every wallet mutation
type BalanceResponse struct {
	Message    string  `json:"message"`
	NewBalance float64 `json:"new_balance"`
}

// TransactionHistoryResponse lists wallet movements, newest first
type TransactionHistoryResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// @Summary Top up wallet
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body TopUpRequest true "Top-up request"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /transactions/topup [post]
func (s *Server) topUpWallet(c *gin.Context) {
	user, _ := currentUser(c)

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid amount required"})
		return
	}

	newBalance, err := s.adjustBalance(c.Request.Context(), user.ID, req.Amount,
		models.TransactionWalletTopup, fmt.Sprintf("Wallet topup of %.2f", req.Amount))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to top up wallet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Message:    "Wallet topped up successfully",
		NewBalance: newBalance,
	})
}

// @Summary Add to or subtract from wallet
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body UpdateWalletRequest true "Wallet update request"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /transactions/update-wallet [post]
func (s *Server) updateWallet(c *gin.Context) {
	user, _ := currentUser(c)

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	var (
		delta   float64
		txType  string
		message string
	)
	switch req.Operation {
	case "add":
		delta, txType = req.Amount, models.TransactionWalletDeposit
		message = fmt.Sprintf("Added %.2f to wallet", req.Amount)
	case "subtract":
		delta, txType = -req.Amount, models.TransactionWalletWithdraw
		message = fmt.Sprintf("Removed %.2f from wallet", req.Amount)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid operation"})
		return
	}

	newBalance, err := s.adjustBalance(c.Request.Context(), user.ID, delta, txType, message)
	if errors.Is(err, errInsufficientBalance) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update wallet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Message:    "Wallet updated successfully",
		NewBalance: newBalance,
	})
}

// @Summary Wallet transaction history
// @Tags transactions
// @Produce json
// @Success 200 {object} TransactionHistoryResponse
// @Failure 401 {object} map[string]interface{}
// @Router /transactions/history [get]
func (s *Server) transactionHistory(c *gin.Context) {
	user, _ := currentUser(c)

	var transactions []models.Transaction
	if err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, TransactionHistoryResponse{Transactions: transactions})
}

// adjustBalance applies delta to the user's wallet and records the movement.
// The balance never goes below zero.
func (s *Server) adjustBalance(ctx context.Context, userID string, delta float64, txType, description string) (float64, error) {
	var newBalance float64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		newBalance, err = moveFunds(tx, userID, nil, delta, txType, description)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("type", txType).
		Float64("amount", math.Abs(delta)).
		Float64("new_balance", newBalance).
		Msg("Wallet updated")

	return newBalance, nil
}

// moveFunds applies delta to one wallet inside tx and records a transaction
// row, optionally tied to a loan
func moveFunds(tx *gorm.DB, userID string, loanID *string, delta float64, txType, description string) (float64, error) {
	var user models.User
	if err := models.FindByID(tx, userID, &user); err != nil {
		return 0, err
	}

	newBalance := roundPaise(user.WalletBalance + delta)
	if newBalance < 0 {
		return 0, errInsufficientBalance
	}

	if err := tx.Model(&user).Update("wallet_balance", newBalance).Error; err != nil {
		return 0, err
	}

	err := tx.Create(&models.Transaction{
		UserID:      userID,
		LoanID:      loanID,
		Amount:      math.Abs(delta),
		Type:        txType,
		Description: description,
	}).Error
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func roundPaise(amount float64) float64 {
	return math.Round(amount*100) / 100
}
