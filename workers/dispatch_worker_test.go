package workers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	"luco-sms-platform/pkg/sms"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Message{},
		&models.DeliveryReport{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedPending(t *testing.T, db *gorm.DB, userID string, recipients ...string) []models.Message {
	t.Helper()

	out := make([]models.Message, 0, len(recipients))
	for _, r := range recipients {
		msg := models.Message{
			UserID:    userID,
			Recipient: r,
			Message:   "hello",
			Status:    models.MessageStatusPending,
			Cost:      32,
		}
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func seedUser(t *testing.T, db *gorm.DB, balance float64) *models.User {
	t.Helper()

	id := uuid.NewString()
	user := models.User{
		ID:             id,
		Username:       "u-" + id[:8],
		Email:          "u-" + id[:8] + "@example.com",
		ExternalUserID: "ext-" + id[:8],
		WalletBalance:  balance,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func TestDispatchPendingMarksSent(t *testing.T) {
	db := newTestDB(t)
	gateway := sms.NewMockClient()
	worker := NewDispatchWorker(db, gateway, 100)
	user := seedUser(t, db, 0)

	msgs := seedPending(t, db, user.ID, "+254700000001", "+254700000002")

	dispatched, err := worker.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched != 2 {
		t.Errorf("dispatched = %d, want 2", dispatched)
	}
	if gateway.CallCount() != 2 {
		t.Errorf("gateway calls = %d, want 2", gateway.CallCount())
	}

	for _, m := range msgs {
		var got models.Message
		if err := db.First(&got, m.ID).Error; err != nil {
			t.Fatalf("fetch message: %v", err)
		}
		if got.Status != models.MessageStatusSent {
			t.Errorf("message %d status = %q, want sent", m.ID, got.Status)
		}
		var reports int64
		db.Model(&models.DeliveryReport{}).Where("sms_id = ?", m.ID).Count(&reports)
		if reports != 1 {
			t.Errorf("message %d delivery reports = %d, want 1", m.ID, reports)
		}
	}
}

func TestDispatchFailureDoesNotRefund(t *testing.T) {
	db := newTestDB(t)
	gateway := sms.NewMockClient()
	gateway.FailAlways = true
	worker := NewDispatchWorker(db, gateway, 100)

	// Balance already debited at enqueue time; a gateway failure on the
	// immediate path keeps the charge.
	user := seedUser(t, db, 68)
	msgs := seedPending(t, db, user.ID, "+254700000001")

	if _, err := worker.DispatchPending(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	var got models.Message
	if err := db.First(&got, msgs[0].ID).Error; err != nil {
		t.Fatalf("fetch message: %v", err)
	}
	if got.Status != models.MessageStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}

	var balance models.User
	if err := db.First(&balance, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	if balance.WalletBalance != 68 {
		t.Errorf("balance = %v, want 68 (no refund)", balance.WalletBalance)
	}
	var refunds int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&refunds)
	if refunds != 0 {
		t.Errorf("ledger rows = %d, want 0", refunds)
	}
}

func TestDispatchRespectsBatchSize(t *testing.T) {
	db := newTestDB(t)
	gateway := sms.NewMockClient()
	worker := NewDispatchWorker(db, gateway, 2)
	user := seedUser(t, db, 0)

	seedPending(t, db, user.ID, "+254700000001", "+254700000002", "+254700000003")

	dispatched, err := worker.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched != 2 {
		t.Errorf("dispatched = %d, want 2 (batch limit)", dispatched)
	}

	var pending int64
	db.Model(&models.Message{}).Where("status = ?", models.MessageStatusPending).Count(&pending)
	if pending != 1 {
		t.Errorf("remaining pending = %d, want 1", pending)
	}
}

func TestDispatchNothingPending(t *testing.T) {
	db := newTestDB(t)
	gateway := sms.NewMockClient()
	worker := NewDispatchWorker(db, gateway, 100)

	dispatched, err := worker.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", dispatched)
	}
	if gateway.CallCount() != 0 {
		t.Errorf("gateway calls = %d, want 0", gateway.CallCount())
	}
}
