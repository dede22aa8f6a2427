package models

import (
	"time"
)

// User represents an account that owns bills
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;size:150" json:"email"`
	PasswordHash string    `gorm:"size:200" json:"-"`
	Name         string    `gorm:"size:100" json:"name,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Notification endpoint in URL form (e.g. a shoutrrr service URL).
	// Empty means the process-wide fallback endpoint is used instead.
	NotifyURL string `gorm:"size:255" json:"notify_url,omitempty"`

	// Personal mailbox credentials for invoice ingestion. All three must be
	// set for the ingestion job to poll this user's mailbox.
	IMAPServer   string `gorm:"size:150" json:"imap_server,omitempty"`
	IMAPUser     string `gorm:"size:150" json:"imap_user,omitempty"`
	IMAPPassword string `gorm:"size:150" json:"-"`

	// Relationships
	Bills []Bill `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// HasMailboxConfig reports whether the user has complete mailbox credentials
func (u *User) HasMailboxConfig() bool {
	return u.IMAPServer != "" && u.IMAPUser != "" && u.IMAPPassword != ""
}
