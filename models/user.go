package models

import "time"

// User is a local platform account. Created lazily the first time the identity
// provider verifies a session whose email has no matching local record.
type User struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	WalletBalance  float64   `gorm:"not null;default:0" json:"wallet_balance"`
	ExternalUserID string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"external_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Transactions      []Transaction      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Messages          []Message          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ScheduledMessages []ScheduledMessage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Contacts          []Contact          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ContactGroups     []ContactGroup     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Templates         []Template         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	APIKeys           []APIKey           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
