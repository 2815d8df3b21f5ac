// Package services implements the gallery use cases: the upload pipeline,
// image edit and delete, and the album listings built on top of the
// synchronizer.
package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/config"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/synchronizer"
)

// ProgressPublisher receives upload lifecycle events.
type ProgressPublisher interface {
	PublishProgress(filename, status, errMsg string)
}

type noopPublisher struct{}

func (noopPublisher) PublishProgress(string, string, string) {}

// GalleryService owns every mutation of the gallery tree and its tables.
type GalleryService struct {
	db           *gorm.DB
	store        *media.Store
	processor    *media.Processor
	syncer       *synchronizer.Synchronizer
	progress     ProgressPublisher
	names        config.AlbumNames
	coverMaxSize int
	now          func() time.Time
}

func NewGalleryService(
	db *gorm.DB,
	store *media.Store,
	processor *media.Processor,
	syncer *synchronizer.Synchronizer,
	progress ProgressPublisher,
	names config.AlbumNames,
	coverMaxSize int,
) *GalleryService {
	if progress == nil {
		progress = noopPublisher{}
	}
	if names == nil {
		names = config.AlbumNames{}
	}
	if coverMaxSize <= 0 {
		coverMaxSize = 600
	}
	return &GalleryService{
		db:           db,
		store:        store,
		processor:    processor,
		syncer:       syncer,
		progress:     progress,
		names:        names,
		coverMaxSize: coverMaxSize,
		now:          time.Now,
	}
}
