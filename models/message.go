package models

import "time"

// Message delivery statuses.
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
)

// Message records one recipient-level send attempt, created either by the
// immediate-send path (pending, finalized by the dispatch worker) or by the
// scheduled-send engine after a successful gateway call (sent).
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Recipient string    `gorm:"type:varchar(20);not null;index" json:"recipient"`
	Message   string    `gorm:"type:varchar(160);not null" json:"message"`
	Status    string    `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Cost      float64   `gorm:"not null" json:"cost"`
	SenderID  string    `gorm:"type:varchar(20)" json:"sender_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	DeliveryReports []DeliveryReport `gorm:"foreignKey:SMSID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string { return "sms_messages" }

// DeliveryReport is an append/update-only status trail for one message.
type DeliveryReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SMSID     uint      `gorm:"not null;index" json:"sms_id"`
	Status    string    `gorm:"type:varchar(20);not null;index" json:"status"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeliveryReport) TableName() string { return "sms_delivery_reports" }
