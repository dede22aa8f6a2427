package models

// BillFile represents an additional stored file belonging to a bill
type BillFile struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BillID   uint   `gorm:"not null;index" json:"bill_id"`
	Filename string `gorm:"not null;size:150" json:"filename"`

	// Relationships
	Bill Bill `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for BillFile
func (BillFile) TableName() string {
	return "bill_files"
}

// FileType classifies the stored file by extension
func (f *BillFile) FileType() string {
	return FileTypeFor(f.Filename)
}
