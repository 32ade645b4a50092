package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestBaseModel_GeneratesULID(t *testing.T) {
	db := openTestDB(t)

	user := &User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	assert.Len(t, user.ID, 26)

	var found User
	require.NoError(t, FindByID(db, user.ID, &found))
	assert.Equal(t, "asha@example.com", found.Email)
	assert.Equal(t, RoleBorrower, found.Role)
	assert.Zero(t, found.WalletBalance)
}

func TestUser_EmailUnique(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&User{Name: "A", Email: "dup@example.com", PasswordHash: "x"}).Error)
	assert.Error(t, db.Create(&User{Name: "B", Email: "dup@example.com", PasswordHash: "y"}).Error)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&Session{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Hour)}).Expired(now))
}

func TestCalculateInterest(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		months    int
		want      float64
	}{
		{"borrower rate", 10000, LoanInterestRate, 6, 2820},
		{"lender rate", 10000, LoanLenderReturnRate, 6, 1200},
		{"fractional result", 1234, LoanInterestRate, 1, 58},
		{"zero months", 1000, LoanInterestRate, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateInterest(tt.principal, tt.rate, tt.months), 0.001)
		})
	}
}

func TestLoan_DefaultsToPending(t *testing.T) {
	db := openTestDB(t)

	borrower := &User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(borrower).Error)

	loan := &Loan{
		BorrowerID:         borrower.ID,
		Amount:             5000,
		TermMonths:         3,
		InterestRate:       LoanInterestRate,
		LenderReturnRate:   LoanLenderReturnRate,
		PlatformMarginRate: LoanPlatformMarginRate,
	}
	require.NoError(t, db.Create(loan).Error)

	var found Loan
	require.NoError(t, FindByID(db, loan.ID, &found))
	assert.Equal(t, LoanPending, found.Status)
	assert.Nil(t, found.LenderID)
	assert.InDelta(t, 705.0, found.Interest(), 0.001)
	assert.InDelta(t, 300.0, found.LenderReturn(), 0.001)
}
