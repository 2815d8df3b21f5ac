package repository

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/models"
)

// AlbumRepository handles database operations for Album entities. DB is either
// the pool or the transaction of a database.UnitOfWork.
type AlbumRepository struct {
	DB *gorm.DB
}

// NewAlbumRepository creates a new instance of AlbumRepository
func NewAlbumRepository(db *gorm.DB) *AlbumRepository {
	return &AlbumRepository{DB: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateIfNotExists returns the album named normalizedName, inserting it with
// displayName if absent. An existing album is returned unchanged so curated
// display names survive. A concurrent insert of the same name is resolved by
// looking the winner up again. The bool reports whether a row was inserted.
func (r *AlbumRepository) CreateIfNotExists(normalizedName, displayName string) (*models.Album, bool, error) {
	if normalizedName == "" {
		return nil, false, fmt.Errorf("album normalized name must not be empty")
	}
	existing, err := r.FindByNormalizedName(normalizedName)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = normalizedName
	}
	now := time.Now().Unix()
	album := &models.Album{
		NormalizedName: normalizedName,
		DisplayName:    displayName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.DB.Create(album).Error; err != nil {
		if isUniqueViolation(err) {
			log.Printf("repository: album '%s' created concurrently, reusing it", normalizedName)
			existing, findErr := r.FindByNormalizedName(normalizedName)
			if findErr != nil {
				return nil, false, fmt.Errorf("failed to re-read album %s after unique violation: %w", normalizedName, findErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create album %s: %w", normalizedName, err)
	}
	return album, true, nil
}

// FindByNormalizedName looks an album up by its directory name
func (r *AlbumRepository) FindByNormalizedName(normalizedName string) (*models.Album, error) {
	var album models.Album
	err := r.DB.Where("normalized_name = ?", normalizedName).First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get album by name %s: %w", normalizedName, err)
	}
	return &album, nil
}

// FindByDisplayName looks an album up by its display name; the oldest album
// wins if several share it
func (r *AlbumRepository) FindByDisplayName(displayName string) (*models.Album, error) {
	var album models.Album
	err := r.DB.Where("display_name = ?", displayName).Order("id ASC").First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get album by display name %s: %w", displayName, err)
	}
	return &album, nil
}

// GetByID retrieves an album by its ID
func (r *AlbumRepository) GetByID(id uint) (*models.Album, error) {
	var album models.Album
	err := r.DB.First(&album, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get album by ID %d: %w", id, err)
	}
	return &album, nil
}

// ListAll retrieves all albums ordered by normalized name
func (r *AlbumRepository) ListAll() ([]models.Album, error) {
	var albums []models.Album
	if err := r.DB.Order("normalized_name ASC").Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// ListWithImages retrieves all albums with their images preloaded in manual order
func (r *AlbumRepository) ListWithImages() ([]models.Album, error) {
	var albums []models.Album
	err := r.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("date DESC")
		}).
		Order("normalized_name ASC").
		Find(&albums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list albums with images: %w", err)
	}
	return albums, nil
}

// UpdateDisplayName sets the human readable label of an album
func (r *AlbumRepository) UpdateDisplayName(albumID uint, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return fmt.Errorf("display name must not be empty")
	}
	result := r.DB.Model(&models.Album{}).Where("id = ?", albumID).Updates(map[string]interface{}{
		"display_name": displayName,
		"updated_at":   time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update display name for album ID %d: %w", albumID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an album; its images are removed by the foreign key cascade
func (r *AlbumRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Album{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete album ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
