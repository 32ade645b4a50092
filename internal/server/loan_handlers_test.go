package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createLoan(t *testing.T, srv *Server, cookie *http.Cookie, amount float64, term int) string {
	t.Helper()

	w := do(t, srv, http.MethodPost, "/loans/create", CreateLoanRequest{
		Amount:     amount,
		TermMonths: term,
		Purpose:    "Shop stock",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	id, _ := decode(t, w)["loan_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func balance(t *testing.T, srv *Server, cookie *http.Cookie) float64 {
	t.Helper()

	w := do(t, srv, http.MethodGet, "/auth/profile", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["user"].(map[string]any)["wallet_balance"].(float64)
}

func TestCreateLoan(t *testing.T) {
	srv := newTestServer(t)
	cookie := registerAndLogin(t, srv, "asha@example.com", "borrower")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid request",
			body:       CreateLoanRequest{Amount: 5000, TermMonths: 3, Purpose: "Tuition"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing term",
			body:       map[string]any{"amount": 5000},
			wantStatus: http.StatusBadRequest,
			wantError:  "Amount and term required",
		},
		{
			name:       "amount below minimum",
			body:       CreateLoanRequest{Amount: 499, TermMonths: 3},
			wantStatus: http.StatusBadRequest,
			wantError:  "Loan amount must be between ₹500 and ₹50,000",
		},
		{
			name:       "amount above maximum",
			body:       CreateLoanRequest{Amount: 50001, TermMonths: 3},
			wantStatus: http.StatusBadRequest,
			wantError:  "Loan amount must be between ₹500 and ₹50,000",
		},
		{
			name:       "term too long",
			body:       CreateLoanRequest{Amount: 5000, TermMonths: 13},
			wantStatus: http.StatusBadRequest,
			wantError:  "Loan term must be between 1 and 12 months",
		},
		{
			name:       "negative term",
			body:       CreateLoanRequest{Amount: 5000, TermMonths: -1},
			wantStatus: http.StatusBadRequest,
			wantError:  "Loan term must be between 1 and 12 months",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/loans/create", tt.body, cookie)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode(t, w)["error"])
			}
		})
	}

	t.Run("requires session", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/create", CreateLoanRequest{Amount: 5000, TermMonths: 3})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoanLifecycle(t *testing.T) {
	srv := newTestServer(t)
	borrower := registerAndLogin(t, srv, "asha@example.com", "borrower")
	lender := registerAndLogin(t, srv, "vikram@example.com", "lender")

	loanID := createLoan(t, srv, borrower, 10000, 6)

	t.Run("pending list names the borrower", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/loans/pending", nil)
		require.Equal(t, http.StatusOK, w.Code)

		loans := decode(t, w)["loans"].([]any)
		require.Len(t, loans, 1)
		loan := loans[0].(map[string]any)
		assert.Equal(t, loanID, loan["id"])
		assert.Equal(t, "Asha Rao", loan["borrower_name"])
		assert.Equal(t, "asha@example.com", loan["borrower_email"])
		assert.Equal(t, "pending", loan["status"])
	})

	t.Run("borrowers cannot fund", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/fund/"+loanID, nil, borrower)
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Only lenders can fund loans", decode(t, w)["error"])
	})

	t.Run("funding needs balance", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/fund/"+loanID, nil, lender)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Insufficient wallet balance", decode(t, w)["error"])

		// The loan stays open
		w = do(t, srv, http.MethodGet, "/loans/pending", nil)
		assert.Len(t, decode(t, w)["loans"].([]any), 1)
	})

	t.Run("unknown loan", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/fund/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil, lender)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Loan not found", decode(t, w)["error"])
	})

	t.Run("fund", func(t *testing.T) {
		do(t, srv, http.MethodPost, "/transactions/topup", TopUpRequest{Amount: 20000}, lender)

		w := do(t, srv, http.MethodPost, "/loans/fund/"+loanID, nil, lender)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "Loan funded successfully", body["message"])
		assert.InDelta(t, 10000, body["new_balance"], 0.001)
		assert.InDelta(t, 10000, balance(t, srv, borrower), 0.001)
	})

	t.Run("funded loans cannot be funded again", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/fund/"+loanID, nil, lender)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Loan is not available for funding", decode(t, w)["error"])
	})

	t.Run("my loans shows repayment figures", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/loans/my-loans", nil, borrower)
		require.Equal(t, http.StatusOK, w.Code)

		loans := decode(t, w)["loans"].([]any)
		require.Len(t, loans, 1)
		loan := loans[0].(map[string]any)
		assert.Equal(t, "funded", loan["status"])
		assert.InDelta(t, 2820, loan["total_interest"], 0.001)
		assert.InDelta(t, 12820, loan["total_amount"], 0.001)
		assert.NotEmpty(t, loan["due_date"])

		w = do(t, srv, http.MethodGet, "/loans/my-loans", nil, lender)
		assert.Len(t, decode(t, w)["loans"].([]any), 1)
	})

	t.Run("only the borrower repays", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/repay/"+loanID, nil, lender)
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Only the borrower can repay this loan", decode(t, w)["error"])
	})

	t.Run("repayment needs balance", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/repay/"+loanID, nil, borrower)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Insufficient wallet balance for repayment", decode(t, w)["error"])
		assert.InDelta(t, 10000, balance(t, srv, borrower), 0.001)
	})

	t.Run("repay", func(t *testing.T) {
		do(t, srv, http.MethodPost, "/transactions/topup", TopUpRequest{Amount: 5000}, borrower)

		w := do(t, srv, http.MethodPost, "/loans/repay/"+loanID, nil, borrower)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "Loan repaid successfully", body["message"])
		assert.InDelta(t, 12820, body["total_repayment"], 0.001)
		assert.InDelta(t, 1200, body["lender_return"], 0.001)
		assert.InDelta(t, 1620, body["platform_margin"], 0.001)
		assert.InDelta(t, 2180, body["new_balance"], 0.001)
		assert.InDelta(t, 21200, balance(t, srv, lender), 0.001)
	})

	t.Run("repaid loans cannot be repaid again", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/loans/repay/"+loanID, nil, borrower)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Loan is not in funded status", decode(t, w)["error"])
	})

	t.Run("lender analytics", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/transactions/analytics", nil, lender)
		require.Equal(t, http.StatusOK, w.Code)

		analytics := decode(t, w)["analytics"].(map[string]any)
		assert.Equal(t, "lender", analytics["user_role"])
		assert.InDelta(t, 1200, analytics["total_returns"], 0.001)
		assert.InDelta(t, 1, analytics["total_loans_repaid"], 0.001)
		assert.InDelta(t, 0, analytics["active_loans"], 0.001)
		assert.InDelta(t, 10000, analytics["total_invested"], 0.001)
	})

	t.Run("borrower analytics", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/transactions/analytics", nil, borrower)
		require.Equal(t, http.StatusOK, w.Code)

		analytics := decode(t, w)["analytics"].(map[string]any)
		assert.Equal(t, "borrower", analytics["user_role"])
		assert.InDelta(t, 1, analytics["total_loans_requested"], 0.001)
		assert.InDelta(t, 1, analytics["repaid_loans"], 0.001)
		assert.InDelta(t, 10000, analytics["total_borrowed"], 0.001)
	})

	t.Run("wallet history records every movement", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/transactions/history", nil, lender)
		require.Equal(t, http.StatusOK, w.Code)

		var types []string
		for _, tx := range decode(t, w)["transactions"].([]any) {
			entry := tx.(map[string]any)
			types = append(types, entry["type"].(string))
			if entry["type"] != "wallet_topup" {
				assert.Equal(t, loanID, entry["loan_id"])
			}
		}
		assert.ElementsMatch(t, []string{"wallet_topup", "loan_funding", "principal_return", "interest_payment"}, types)
	})
}

func TestFundLoan_OwnLoan(t *testing.T) {
	srv := newTestServer(t)
	lender := registerAndLogin(t, srv, "vikram@example.com", "lender")
	do(t, srv, http.MethodPost, "/transactions/topup", TopUpRequest{Amount: 5000}, lender)

	loanID := createLoan(t, srv, lender, 1000, 2)

	w := do(t, srv, http.MethodPost, "/loans/fund/"+loanID, nil, lender)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You cannot fund your own loan", decode(t, w)["error"])
	assert.InDelta(t, 5000, balance(t, srv, lender), 0.001)
}
