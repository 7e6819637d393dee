package models

import (
	"fmt"
	"time"
)

// MaxFileSize is the per-record upload size bound in bytes. The transport
// layer allows up to 16MB; this stricter limit governs.
const MaxFileSize = 10 * 1024 * 1024

// Processing status values for an UploadedFile.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// UploadedFile holds the metadata and derived text for one processed upload.
// ExtractedText and SummarizedText are populated only once Status reaches
// completed. Failed records keep FailedReason so they can be reviewed and
// reprocessed instead of being deleted.
type UploadedFile struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Filename         string    `gorm:"size:255;not null"` // stored name under the upload dir
	OriginalFilename string    `gorm:"size:255;not null"`
	FileSize         int64     `gorm:"not null"`
	MimeType         string    `gorm:"size:127;not null"`
	ExtractedText    string    `gorm:"type:text"`
	SummarizedText   string    `gorm:"type:text"`
	UploadedAt       time.Time `gorm:"not null;index"`
	LastAccessed     *time.Time
	Status           string `gorm:"size:20;not null;default:pending;index"`
	FailedReason     string `gorm:"size:255"`
	UserID           uint   `gorm:"index;not null"`
	User             User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// ValidateFileSize enforces the 10MB record-level bound.
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %dMB", MaxFileSize/1024/1024)
	}
	return nil
}
