package models

import (
	"time"
)

type Polarity string

const (
	PolarityUp   Polarity = "up"
	PolarityDown Polarity = "down"
)

func (p Polarity) Valid() bool {
	return p == PolarityUp || p == PolarityDown
}

// Vote is one voter's live vote on a report. The composite primary key
// enforces at most one vote per (report, voter); retracting deletes the row.
type Vote struct {
	ReportID  string    `gorm:"primaryKey;size:36" json:"reportId"`
	Report    Report    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoterID   string    `gorm:"primaryKey;size:64" json:"voterId"`
	Polarity  Polarity  `gorm:"size:8;not null" json:"polarity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
