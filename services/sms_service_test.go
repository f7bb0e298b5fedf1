package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/pkg/sms"
)

func newSMSFixture(t *testing.T, balance float64) (*SMSService, *sms.MockClient, *models.User) {
	t.Helper()

	db := newTestDB(t)
	gateway := sms.NewMockClient()
	wallet := NewWalletService(db)
	contacts := NewContactService(db)
	svc := NewSMSService(db, wallet, contacts, gateway, testUnitCost, "LUCO")
	user := createTestUser(t, db, balance)
	return svc, gateway, user
}

func TestEnqueueDebitsAndCreatesPendingRows(t *testing.T) {
	svc, gateway, user := newSMSFixture(t, 100)

	created, err := svc.enqueue(context.Background(), user.ID, "hello",
		[]string{"+254700000001", "+254700000002"}, "LUCO")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}
	for _, m := range created {
		if m.Status != models.MessageStatusPending {
			t.Errorf("status = %q, want pending", m.Status)
		}
		if m.Cost != testUnitCost {
			t.Errorf("cost = %v, want %v", m.Cost, testUnitCost)
		}
	}

	// The queue path never touches the gateway; the worker does that later.
	if gateway.CallCount() != 0 {
		t.Errorf("gateway calls = %d, want 0", gateway.CallCount())
	}
	if balance := currentBalance(t, svc.DB, user.ID); balance != 100-2*testUnitCost {
		t.Errorf("balance = %v, want %v", balance, 100-2*testUnitCost)
	}
	if n := countTransactions(t, svc.DB, user.ID, models.TransactionSMSSend); n != 1 {
		t.Errorf("sms_send ledger rows = %d, want 1 (single debit)", n)
	}
}

func TestEnqueueInsufficientIsAllOrNothing(t *testing.T) {
	svc, _, user := newSMSFixture(t, 40)

	_, err := svc.enqueue(context.Background(), user.ID, "hello",
		[]string{"+254700000001", "+254700000002"}, "LUCO")
	if !errors.Is(err, apperrors.InsufficientFunds) {
		t.Fatalf("err = %v, want InsufficientFunds", err)
	}

	var count int64
	svc.DB.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("message rows = %d, want 0", count)
	}
	if balance := currentBalance(t, svc.DB, user.ID); balance != 40 {
		t.Errorf("balance = %v, want 40 (unchanged)", balance)
	}
}

func TestDedupeKeepsFirstOccurrenceOrder(t *testing.T) {
	got := dedupe([]string{"+1", "+2", "+1", "+3", "+2"})
	want := []string{"+1", "+2", "+3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupe = %v, want %v", got, want)
	}
}
