package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"luco-sms-platform/models"
)

const testUnitCost = 32.0

// newTestDB opens an isolated in-memory database migrated with the full
// schema. The named shared-cache DSN keeps every pooled connection on the
// same database.
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
		&models.ScheduledMessage{},
		&models.Contact{},
		&models.ContactGroup{},
		&models.ContactGroupMember{},
		&models.Template{},
		&models.APIKey{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, balance float64) *models.User {
	t.Helper()

	id := uuid.NewString()
	user := models.User{
		ID:             id,
		Username:       "user-" + id[:8],
		Email:          "user-" + id[:8] + "@example.com",
		ExternalUserID: "ext-" + id[:8],
		WalletBalance:  balance,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return &user
}

func currentBalance(t *testing.T, db *gorm.DB, userID string) float64 {
	t.Helper()

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	return user.WalletBalance
}

func ledgerSum(t *testing.T, db *gorm.DB, userID string) float64 {
	t.Helper()

	var sum float64
	row := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Row()
	if err := row.Scan(&sum); err != nil {
		t.Fatalf("sum ledger: %v", err)
	}
	return sum
}

func countTransactions(t *testing.T, db *gorm.DB, userID, txType string) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND transaction_type = ?", userID, txType).
		Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

func futureTime() time.Time {
	return time.Now().Add(1 * time.Hour)
}
