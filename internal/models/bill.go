package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Bill status values
const (
	StatusOpen = "open"
	StatusPaid = "paid"
)

// File type values derived from the stored filename
const (
	FileTypeImage = "image"
	FileTypePDF   = "pdf"
)

// Bill represents a trackable invoice
type Bill struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"not null;size:150" json:"title"`
	Filename  string     `gorm:"uniqueIndex;not null;size:150" json:"filename"`
	Amount    *float64   `json:"amount,omitempty"`
	Status    string     `gorm:"not null;default:open;size:20" json:"status"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`

	// Relationships
	User  User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Files []BillFile `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// TableName returns the table name for Bill
func (Bill) TableName() string {
	return "bills"
}

// IsOpen reports whether the bill is still unpaid
func (b *Bill) IsOpen() bool {
	return b.Status == StatusOpen
}

// DaysLeft returns the number of whole days until the due date relative to
// now. Returns nil when no due date is set. Zero or negative means overdue.
func (b *Bill) DaysLeft() *int {
	return daysUntil(b.DueDate, time.Now())
}

// DaysLeftAt is DaysLeft evaluated against an explicit reference time
func (b *Bill) DaysLeftAt(now time.Time) *int {
	return daysUntil(b.DueDate, now)
}

func daysUntil(due *time.Time, now time.Time) *int {
	if due == nil {
		return nil
	}
	days := int(civilDate(*due).Sub(civilDate(now)).Hours() / 24)
	return &days
}

// civilDate strips the time of day and location, leaving only the
// calendar date. Due dates are stored as pure dates, so classifying
// them against a zoned wall clock must compare dates, not instants.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FileType classifies the primary stored file by extension
func (b *Bill) FileType() string {
	return FileTypeFor(b.Filename)
}

// FileTypeFor classifies a stored filename as image or pdf
func FileTypeFor(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "jpg", "jpeg", "png":
		return FileTypeImage
	default:
		return FileTypePDF
	}
}
