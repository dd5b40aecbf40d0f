package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaseStatus string

const (
	CaseStatusSolved   CaseStatus = "solved"
	CaseStatusOngoing  CaseStatus = "ongoing"
	CaseStatusUnsolved CaseStatus = "unsolved"
)

func (s CaseStatus) Valid() bool {
	return s == CaseStatusSolved || s == CaseStatusOngoing || s == CaseStatusUnsolved
}

// MajorCase is a curated, editor-maintained case. It is tracked separately
// from citizen reports and has its own status vocabulary.
type MajorCase struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Summary        string     `gorm:"type:text" json:"summary"`
	Status         CaseStatus `gorm:"size:16;not null;index" json:"status"`
	AmountInvolved *float64   `json:"amountInvolved,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (m *MajorCase) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
