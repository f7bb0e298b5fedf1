package models

import "time"

// Contact is one phone-book entry, unique per (user, phone_number).
type Contact struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index;uniqueIndex:uix_user_phone" json:"user_id"`
	PhoneNumber string    `gorm:"type:varchar(20);not null;index;uniqueIndex:uix_user_phone" json:"phone_number"`
	Name        string    `gorm:"type:varchar(100)" json:"name,omitempty"`
	Email       string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Groups []ContactGroup `gorm:"many2many:contact_group_members;joinForeignKey:ContactID;joinReferences:GroupID" json:"groups,omitempty"`
}

// ContactGroup is a named collection of contacts, unique per (user, name).
// Deleting a group removes its membership rows but never its contacts.
type ContactGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index;uniqueIndex:uix_user_group_name" json:"user_id"`
	Name        string    `gorm:"type:varchar(100);not null;index;uniqueIndex:uix_user_group_name" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Contacts []Contact `gorm:"many2many:contact_group_members;joinForeignKey:GroupID;joinReferences:ContactID" json:"contacts,omitempty"`
}

func (ContactGroup) TableName() string { return "contact_groups" }

// ContactGroupMember is the explicit join row so membership carries its owner
// and timestamp and can be queried directly.
type ContactGroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContactID uint      `gorm:"not null;index:idx_contact_group_user" json:"contact_id"`
	GroupID   uint      `gorm:"not null;index:idx_contact_group_user" json:"group_id"`
	UserID    string    `gorm:"type:varchar(36);index:idx_contact_group_user" json:"user_id"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`
}

func (ContactGroupMember) TableName() string { return "contact_group_members" }
