package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/models"
)

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// Create inserts an image row. OriginalDate defaults to Date.
func (r *ImageRepository) Create(image *models.Image) error {
	now := time.Now().Unix()
	if image.CreatedAt == 0 {
		image.CreatedAt = now
	}
	if image.UpdatedAt == 0 {
		image.UpdatedAt = now
	}
	if image.OriginalDate == nil {
		d := image.Date
		image.OriginalDate = &d
	}
	if err := r.DB.Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image %s: %w", image.Filename, err)
	}
	return nil
}

// GetByID retrieves an image by its ID
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get image by ID %d: %w", id, err)
	}
	return &image, nil
}

// ListAll retrieves every image row
func (r *ImageRepository) ListAll() ([]models.Image, error) {
	var images []models.Image
	if err := r.DB.Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// ListByAlbum lists the images of an album in the requested order
func (r *ImageRepository) ListByAlbum(albumID uint, sortOrder string) ([]models.Image, error) {
	if !database.IsValidSortOrder(sortOrder) {
		sortOrder = database.DefaultSortOrder
	}

	query := r.DB.Where("album_id = ?", albumID)
	switch sortOrder {
	case database.SortDateAsc:
		query = query.Order("date ASC").Order("id ASC")
	case database.SortDateDesc:
		query = query.Order("date DESC").Order("id DESC")
	default:
		query = query.Order("display_order ASC").Order("date DESC")
	}

	var images []models.Image
	if err := query.Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images for album ID %d: %w", albumID, err)
	}

	if sortOrder == database.SortFilenameNat {
		sort.SliceStable(images, func(i, j int) bool {
			return natsort.Compare(images[i].Filename, images[j].Filename)
		})
	}
	return images, nil
}

// Update saves the editable fields of an image
func (r *ImageRepository) Update(image *models.Image) error {
	image.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Image{}).Where("id = ?", image.ID).Updates(map[string]interface{}{
		"filename":      image.Filename,
		"title":         image.Title,
		"description":   image.Description,
		"date":          image.Date,
		"album_id":      image.AlbumID,
		"display_order": image.DisplayOrder,
		"updated_at":    image.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update image ID %d: %w", image.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an image row
func (r *ImageRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Image{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete image ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByIDs removes the given image rows and reports how many were deleted
func (r *ImageRepository) DeleteByIDs(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.DB.Where("id IN ?", ids).Delete(&models.Image{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete %d images: %w", len(ids), result.Error)
	}
	return result.RowsAffected, nil
}

// CountByAlbum counts the images referencing an album
func (r *ImageRepository) CountByAlbum(albumID uint) (int64, error) {
	var count int64
	if err := r.DB.Model(&models.Image{}).Where("album_id = ?", albumID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count images for album ID %d: %w", albumID, err)
	}
	return count, nil
}

// NextDisplayOrder returns the display order that appends to the end of an album
func (r *ImageRepository) NextDisplayOrder(albumID uint) (int, error) {
	var maxOrder sql.NullInt64
	err := r.DB.Model(&models.Image{}).
		Where("album_id = ?", albumID).
		Select("MAX(display_order)").
		Row().Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to read display order for album ID %d: %w", albumID, err)
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}
