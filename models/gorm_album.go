package models

// Album represents a gallery album in the database using GORM.
// It corresponds to the 'albums' table and to one directory under the gallery root.
type Album struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	NormalizedName string `gorm:"not null;uniqueIndex" json:"normalized_name"` // directory name under the gallery root
	DisplayName    string `gorm:"not null" json:"display_name"`
	CreatedAt      int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt      int64  `gorm:"not null" json:"updated_at"` // Unix timestamp

	Images []Image `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Album) TableName() string {
	return "albums"
}
