package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/models"
	"github.com/tresinky/gallery/repository"
)

// EditRequest holds the fields to change; nil fields are left untouched.
type EditRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	DisplayOrder *int       `json:"display_order"`
	Date         *time.Time `json:"date"`
	Album        *string    `json:"album"`
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Edit updates an image. Changing the album moves the file into the new album
// directory; the old directory is removed once it is empty. Stale album rows
// are left for the synchronizer.
func (s *GalleryService) Edit(ctx context.Context, id uint, req EditRequest) (*models.Image, error) {
	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}
	defer uow.Rollback()

	imageRepo := repository.NewImageRepository(uow.DB())
	image, err := imageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		image.Title = emptyToNil(req.Title)
	}
	if req.Description != nil {
		image.Description = emptyToNil(req.Description)
	}
	if req.Date != nil {
		image.Date = *req.Date
	}
	if req.DisplayOrder != nil {
		image.DisplayOrder = *req.DisplayOrder
	}

	var movedFrom, movedTo, oldDir, createdDir string
	if req.Album != nil {
		label := strings.TrimSpace(*req.Album)
		if label == "" {
			return nil, newUploadError(KindAlbumName, CodeInvalidAlbumName, "Invalid album name", nil)
		}
		dirName, display, err := s.existingAlbum(uow.DB(), label)
		if err != nil {
			return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
		}
		if dirName == "" {
			return nil, newUploadError(KindAlbumName, CodeInvalidAlbumName, "Invalid album name", nil)
		}
		currentDir := s.store.AlbumOf(image.Filename)

		if dirName != currentDir {
			album, _, err := repository.NewAlbumRepository(uow.DB()).CreateIfNotExists(dirName, display)
			if err != nil {
				return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
			}

			src, err := s.store.FullPath(image.Filename)
			if err != nil {
				return nil, newUploadError(KindIO, CodeMoveError, "Image file is outside the gallery", err)
			}
			newDir, err := s.store.AlbumDir(dirName)
			if err != nil {
				return nil, newUploadError(KindAlbumName, CodeInvalidAlbumName, "Invalid album name", err)
			}
			if !s.store.Exists(newDir) {
				createdDir = newDir
			}
			if _, err := s.store.EnsureAlbumDir(dirName); err != nil {
				return nil, newUploadError(KindIO, CodeMoveError, "Failed to create album directory", err)
			}
			base := path.Base(image.Filename)
			dst := filepath.Join(newDir, base)
			if s.store.Exists(dst) {
				return nil, newUploadError(KindIO, CodeDestinationExists,
					fmt.Sprintf("A file named %s already exists in album %s", base, dirName), nil)
			}
			if err := s.store.Move(src, dst); err != nil {
				s.undoMove("", "", createdDir)
				return nil, newUploadError(KindIO, CodeMoveError, "Failed to move file", err)
			}
			movedFrom, movedTo = src, dst
			oldDir = filepath.Dir(src)

			if req.DisplayOrder == nil {
				order, err := repository.NewImageRepository(uow.DB()).NextDisplayOrder(album.ID)
				if err != nil {
					s.undoMove(movedTo, movedFrom, createdDir)
					return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
				}
				image.DisplayOrder = order
			}
			image.Filename = s.store.StoredName(dirName, base)
			image.AlbumID = &album.ID
		}
	}

	if err := imageRepo.Update(image); err != nil {
		s.undoMove(movedTo, movedFrom, createdDir)
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}
	if err := uow.Commit(); err != nil {
		s.undoMove(movedTo, movedFrom, createdDir)
		return nil, newUploadError(KindDatabase, CodeCommitFailed, "Failed to save changes", err)
	}

	if oldDir != "" {
		if _, err := s.store.RemoveDirIfEmpty(oldDir); err != nil {
			log.Printf("gallery: could not remove old album directory %s: %v", oldDir, err)
		}
		log.Printf("gallery: moved image %d to %s", image.ID, image.Filename)
	}
	return image, nil
}

// undoMove moves a file back after a failed edit and removes the album
// directory the edit created, if any.
func (s *GalleryService) undoMove(from, to, createdDir string) {
	if from != "" {
		if err := s.store.Move(from, to); err != nil {
			log.Printf("gallery: failed to move %s back to %s: %v", from, to, err)
		}
	}
	if createdDir != "" {
		if _, err := s.store.RemoveDirIfEmpty(createdDir); err != nil {
			log.Printf("gallery: could not remove album directory %s: %v", createdDir, err)
		}
	}
}

// Delete removes the image file and row. When it was the last image of its
// album the album row and the empty directory go as well.
func (s *GalleryService) Delete(ctx context.Context, id uint) error {
	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}
	defer uow.Rollback()

	imageRepo := repository.NewImageRepository(uow.DB())
	image, err := imageRepo.GetByID(id)
	if err != nil {
		return err
	}

	var albumDir string
	if full, err := s.store.FullPath(image.Filename); err != nil {
		log.Printf("gallery: image %d points outside the gallery (%s), deleting the row only", id, image.Filename)
	} else {
		if err := s.store.Remove(full); err != nil {
			log.Printf("gallery: failed to delete file %s: %v", full, err)
		}
		albumDir = filepath.Dir(full)
	}

	if err := imageRepo.Delete(id); err != nil {
		return newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}

	albumEmptied := false
	if image.AlbumID != nil {
		count, err := imageRepo.CountByAlbum(*image.AlbumID)
		if err != nil {
			return newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
		}
		if count == 0 {
			err := repository.NewAlbumRepository(uow.DB()).Delete(*image.AlbumID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
			}
			albumEmptied = true
		}
	}

	if err := uow.Commit(); err != nil {
		return newUploadError(KindDatabase, CodeCommitFailed, "Failed to delete image", err)
	}

	if albumEmptied && albumDir != "" && albumDir != s.store.Root() {
		if _, err := s.store.RemoveDirIfEmpty(albumDir); err != nil {
			log.Printf("gallery: could not remove album directory %s: %v", albumDir, err)
		}
	}
	log.Printf("gallery: deleted image %d (%s)", id, image.Filename)
	return nil
}
