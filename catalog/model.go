package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoRecord maps a video id to the object holding its bytes.
type VideoRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	Key          string    `gorm:"not null" json:"key"`
	Location     string    `gorm:"not null" json:"location"`
	ContentType  string    `json:"contentType"`
	Size         *int64    `json:"size,omitempty"`
	OriginalName string    `gorm:"index" json:"originalName"`
	NameFold     string    `gorm:"index" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName pins the table name.
func (VideoRecord) TableName() string { return "video_records" }

// BeforeCreate assigns an id if none is set and folds the name for search.
// SQLite's LOWER only folds ASCII, so the lowered copy is computed here.
func (r *VideoRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.NameFold = strings.ToLower(r.OriginalName)
	return nil
}
