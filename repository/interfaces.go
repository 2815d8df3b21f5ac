package repository

import (
	"github.com/tresinky/gallery/models"
)

// AlbumRepositoryInterface defines the methods for album data operations
type AlbumRepositoryInterface interface {
	CreateIfNotExists(normalizedName, displayName string) (*models.Album, bool, error)
	FindByNormalizedName(normalizedName string) (*models.Album, error)
	FindByDisplayName(displayName string) (*models.Album, error)
	GetByID(id uint) (*models.Album, error)
	ListAll() ([]models.Album, error)
	ListWithImages() ([]models.Album, error)
	UpdateDisplayName(albumID uint, displayName string) error
	Delete(id uint) error
}

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	Create(image *models.Image) error
	GetByID(id uint) (*models.Image, error)
	ListAll() ([]models.Image, error)
	ListByAlbum(albumID uint, sortOrder string) ([]models.Image, error)
	Update(image *models.Image) error
	Delete(id uint) error
	DeleteByIDs(ids []uint) (int64, error)
	CountByAlbum(albumID uint) (int64, error)
	NextDisplayOrder(albumID uint) (int, error)
}

var (
	_ AlbumRepositoryInterface = (*AlbumRepository)(nil)
	_ ImageRepositoryInterface = (*ImageRepository)(nil)
)
