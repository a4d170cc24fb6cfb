package models

// Document is an uploaded file attached to an event, stored in the
// configured storage backend under StoragePath.
type Document struct {
	BaseModel
	EventID     string `gorm:"index"`
	OwnerID     string `gorm:"not null;index"`
	FileName    string `gorm:"not null"`
	ContentType string `gorm:"not null"`
	SizeBytes   int64
	StoragePath string `gorm:"not null;uniqueIndex"`
	// Shared documents are visible to the whole event team, not just
	// the owner.
	Shared bool `gorm:"default:false"`
}
