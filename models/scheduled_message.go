package models

import "time"

// ScheduledMessage lifecycle: pending → processing → sent|failed, plus the
// user-initiated pending → cancelled. sent, failed and cancelled are terminal.
const (
	ScheduleStatusPending    = "pending"
	ScheduleStatusProcessing = "processing"
	ScheduleStatusSent       = "sent"
	ScheduleStatusFailed     = "failed"
	ScheduleStatusCancelled  = "cancelled"
)

// ScheduledMessage is a reserved future send. Its cost is debited at creation
// and refunded exactly once if it ends failed or cancelled; rows are never
// deleted, cancellation is a status.
type ScheduledMessage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Recipient string `gorm:"type:varchar(20);not null;index" json:"recipient"`
	Message   string `gorm:"type:varchar(160);not null" json:"message"`
	SenderID  string `gorm:"type:varchar(20)" json:"sender_id,omitempty"`

	ScheduledTime time.Time `gorm:"not null;index" json:"scheduled_time"`
	Status        string    `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`

	Cost          float64    `gorm:"not null" json:"cost"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`

	// Set once the engine has turned this schedule into a real Message.
	SentMessageID *uint `json:"sent_message_id,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Terminal reports whether the schedule can no longer change state.
func (s *ScheduledMessage) Terminal() bool {
	switch s.Status {
	case ScheduleStatusSent, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	}
	return false
}
