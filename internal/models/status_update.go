package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusUpdate is an append-only lifecycle record written by staff.
// Rows are never updated or deleted once created.
type StatusUpdate struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ReportID  string    `gorm:"size:36;not null;index" json:"reportId"`
	Status    Status    `gorm:"size:32;not null" json:"status"`
	Comment   string    `gorm:"type:text" json:"comment"`
	AuthorID  string    `gorm:"size:64;not null" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (s *StatusUpdate) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
