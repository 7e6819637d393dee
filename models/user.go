package models

import (
	"time"
)

// User is a registered account. Email is stored lowercase. Active is a soft
// flag used instead of physically deleting the row; a hard delete cascades to
// the user's uploaded files.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string `gorm:"size:100;not null;uniqueIndex"`
	Email          string `gorm:"size:120;not null;uniqueIndex"`
	HashedPassword []byte `gorm:"not null"`
	LastLogin      *time.Time
	Active         bool           `gorm:"default:true;not null"`
	RoleID         *uint          `gorm:"index"`
	Role           Role           `gorm:"foreignKey:RoleID;references:ID"`
	Files          []UploadedFile `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
