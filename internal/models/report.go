package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category 举报分类
type Category string

const (
	CategoryCorruption   Category = "corruption"
	CategoryBribery      Category = "bribery"
	CategoryAbuseOfPower Category = "abuse_of_power"
	CategoryNepotism     Category = "nepotism"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCorruption,
	CategoryBribery,
	CategoryAbuseOfPower,
	CategoryNepotism,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a report.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusVerified    Status = "verified"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusVerified, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports can no longer be edited or receive evidence.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Report 公民提交的腐败举报
type Report struct {
	ID              string   `gorm:"primaryKey;size:36" json:"id"`
	ReferenceNumber string   `gorm:"uniqueIndex;size:32;not null" json:"referenceNumber"`
	Title           string   `gorm:"not null" json:"title"`
	Description     string   `gorm:"type:text;not null" json:"description"`
	Category        Category `gorm:"size:32;not null;index" json:"category"`
	Status          Status   `gorm:"size:32;not null;index" json:"status"`
	IsAnonymous     bool     `gorm:"not null" json:"isAnonymous"`
	ReporterID      *string  `gorm:"size:64;index" json:"reporterId"` // nil when anonymous
	Location        string   `json:"location,omitempty"`
	District        string   `gorm:"size:100;index" json:"district,omitempty"`
	AmountInvolved  *float64 `json:"amountInvolved,omitempty"`

	// Denormalized counters, the vote ledger is authoritative
	UpvotesCount   int64 `gorm:"not null;default:0" json:"upvotesCount"`
	DownvotesCount int64 `gorm:"not null;default:0" json:"downvotesCount"`
	SharesCount    int64 `gorm:"not null;default:0" json:"sharesCount"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Evidence      []Evidence     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"evidence"`
	StatusUpdates []StatusUpdate `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"statusUpdates"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether actorID may act as the report's owner.
// Anonymous reports have no owner.
func (r *Report) OwnedBy(actorID string) bool {
	if r.IsAnonymous || r.ReporterID == nil || actorID == "" {
		return false
	}
	return *r.ReporterID == actorID
}
