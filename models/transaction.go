package models

import "time"

// Transaction reasons. Debits are stored with negative amounts.
const (
	TransactionTopup        = "topup"
	TransactionSMSSend      = "sms_send"      // immediate-send reservation
	TransactionSMSScheduled = "sms_scheduled" // scheduled-send reservation
	TransactionSMSRefund    = "sms_refund"    // failed/cancelled schedule refund
	TransactionSMSDeduction = "sms_deduction" // developer API post-send deduction
)

// Transaction is one append-only wallet ledger row. Rows are never updated or
// deleted; the sum of a user's rows always equals their wallet balance.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Amount          float64   `gorm:"not null" json:"amount"`
	TransactionType string    `gorm:"type:varchar(20);not null" json:"transaction_type"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
