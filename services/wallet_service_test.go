package services

import (
	"context"
	"errors"
	"testing"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
)

func TestDebitReducesBalanceAndWritesLedger(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, 100)

	if err := wallet.Debit(context.Background(), user.ID, 32, models.TransactionSMSSend); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if got := currentBalance(t, db, user.ID); got != 68 {
		t.Errorf("balance = %v, want 68", got)
	}

	var tx models.Transaction
	if err := db.First(&tx, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("fetch ledger row: %v", err)
	}
	if tx.Amount != -32 {
		t.Errorf("ledger amount = %v, want -32", tx.Amount)
	}
	if tx.TransactionType != models.TransactionSMSSend {
		t.Errorf("ledger type = %q, want %q", tx.TransactionType, models.TransactionSMSSend)
	}
}

func TestDebitInsufficientFundsChangesNothing(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, 10)

	err := wallet.Debit(context.Background(), user.ID, 32, models.TransactionSMSSend)
	if !errors.Is(err, apperrors.InsufficientFunds) {
		t.Fatalf("err = %v, want InsufficientFunds", err)
	}

	if got := currentBalance(t, db, user.ID); got != 10 {
		t.Errorf("balance = %v, want 10 (unchanged)", got)
	}
	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("ledger rows = %d, want 0", count)
	}
}

func TestDebitUnknownUser(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)

	err := wallet.Debit(context.Background(), "no-such-user", 10, models.TransactionSMSSend)
	if !errors.Is(err, apperrors.NotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestCreditThenDebitKeepsLedgerInvariant(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	if err := wallet.Credit(ctx, user.ID, 500, models.TransactionTopup); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := wallet.Debit(ctx, user.ID, 96, models.TransactionSMSScheduled); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := wallet.Credit(ctx, user.ID, 32, models.TransactionSMSRefund); err != nil {
		t.Fatalf("refund: %v", err)
	}

	balance := currentBalance(t, db, user.ID)
	if balance != 436 {
		t.Errorf("balance = %v, want 436", balance)
	}
	if sum := ledgerSum(t, db, user.ID); sum != balance {
		t.Errorf("ledger sum = %v, balance = %v; must be equal", sum, balance)
	}
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	user := createTestUser(t, db, 32)

	if err := wallet.Debit(context.Background(), user.ID, 32, models.TransactionSMSSend); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := currentBalance(t, db, user.ID); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
}
