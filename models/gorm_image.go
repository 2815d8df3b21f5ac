package models

import "time"

// Image represents a stored gallery media file using GORM.
// It corresponds to the 'images' table.
type Image struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename     string     `gorm:"not null;index" json:"filename"` // path relative to the static root
	Title        *string    `gorm:"" json:"title,omitempty"`
	Description  *string    `gorm:"" json:"description,omitempty"`
	Date         time.Time  `gorm:"not null;index" json:"date"`
	OriginalDate *time.Time `gorm:"" json:"original_date,omitempty"`
	AlbumID      *uint      `gorm:"index" json:"album_id,omitempty"` // Nullable
	DisplayOrder int        `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    int64      `gorm:"not null" json:"created_at"`
	UpdatedAt    int64      `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
