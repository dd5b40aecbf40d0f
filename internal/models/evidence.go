package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeAudio    FileType = "audio"
)

// Evidence 举报附件元数据，文件本体在外部存储
type Evidence struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ReportID     string    `gorm:"size:36;not null;index" json:"reportId"`
	FileType     FileType  `gorm:"size:16;not null" json:"fileType"`
	OriginalName string    `gorm:"not null" json:"originalName"`
	ContentType  string    `gorm:"size:128" json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	StorageRef   string    `gorm:"not null" json:"-"` // imgur refs carry the delete hash
	Position     int       `gorm:"not null;default:0" json:"position"` // display order
	UploadedAt   time.Time `json:"uploadedAt"`
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
