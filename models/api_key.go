package models

import "time"

// APIKey authenticates the developer send surface in place of a session.
// The key is an opaque secret with a recognizable "Luco_" prefix.
type APIKey struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Key       string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	IsActive  bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}
