package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Politician struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Party     string    `json:"party,omitempty"`
	Position  string    `json:"position,omitempty"`
	District  string    `gorm:"size:100;index" json:"district,omitempty"`
	IsActive  bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Politician) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
