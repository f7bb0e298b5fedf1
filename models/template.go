package models

import "time"

// Template is a reusable message body, unique name per user.
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index;uniqueIndex:uix_user_template_name" json:"user_id"`
	Name      string    `gorm:"type:varchar(50);not null;uniqueIndex:uix_user_template_name" json:"name"`
	Content   string    `gorm:"type:varchar(160);not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Template) TableName() string { return "sms_templates" }
