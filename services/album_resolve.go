package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/repository"
	"github.com/tresinky/gallery/validator"
)

// existingAlbum maps the label of an album picked from the UI to its
// directory and display name. Labels match an album row by directory name,
// then by display name, then through the seed table. Anything else is a new
// album named after the label.
func (s *GalleryService) existingAlbum(db *gorm.DB, label string) (dirName, display string, err error) {
	repo := repository.NewAlbumRepository(db)

	album, err := repo.FindByNormalizedName(label)
	if err == nil {
		return album.NormalizedName, album.DisplayName, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", err
	}

	album, err = repo.FindByDisplayName(label)
	if err == nil {
		return album.NormalizedName, album.DisplayName, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", err
	}

	if normalized, ok := s.names.NormalizedFor(label); ok {
		return normalized, label, nil
	}
	dirName, display = s.newAlbum(label)
	return dirName, display, nil
}

// newAlbum derives the directory and display name of an album created from free text.
func (s *GalleryService) newAlbum(label string) (dirName, display string) {
	dirName = validator.AlbumDirName(label)
	return dirName, s.names.Display(dirName, label)
}
