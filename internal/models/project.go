package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a creative-production job tracked on the dashboard.
type Project struct {
	ID          uuid.UUID                        `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string                           `json:"title" gorm:"not null"`
	Brand       Brand                            `json:"brand" gorm:"not null;index"`
	Type        ProjectType                      `json:"type" gorm:"not null"`
	Description string                           `json:"description"`
	Deadline    time.Time                        `json:"deadline"`
	Priority    int                              `json:"priority" gorm:"not null;default:1;index"`
	Status      Status                           `json:"status" gorm:"not null;default:'Pending';index"`
	CreatedAt   time.Time                        `json:"created_at" gorm:"autoCreateTime"`
	Files       datatypes.JSONSlice[ProjectFile] `json:"files"`
}

// ProjectFile is an attachment stored in object storage.
type ProjectFile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return nil
}

// IsActive reports whether the project still belongs in the prioritized list.
func (p *Project) IsActive() bool {
	return p.Status != StatusCompleted
}

// PriorityBand groups priorities the way the dashboard colours them.
func (p *Project) PriorityBand() string {
	switch {
	case p.Priority <= 3:
		return "high"
	case p.Priority <= 7:
		return "medium"
	default:
		return "low"
	}
}

// FileIndex returns the position of the attachment with the given id, or -1.
func (p *Project) FileIndex(fileID uuid.UUID) int {
	for i, f := range p.Files {
		if f.ID == fileID {
			return i
		}
	}
	return -1
}
