// Package synchronizer reconciles the album and image tables with the gallery
// directory tree.
package synchronizer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/config"
	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/models"
	"github.com/tresinky/gallery/repository"
	"github.com/tresinky/gallery/validator"
)

// SyncReport summarises one Run.
type SyncReport struct {
	DeletedImages int64    `json:"deleted_images"`
	DeletedAlbums int64    `json:"deleted_albums"`
	RemovedDirs   []string `json:"removed_dirs"`
	CreatedAlbums []string `json:"created_albums"`
	SkippedDirs   []string `json:"skipped_dirs"`
}

// Changed reports whether the run modified anything.
func (r *SyncReport) Changed() bool {
	return r.DeletedImages > 0 || r.DeletedAlbums > 0 || len(r.RemovedDirs) > 0 || len(r.CreatedAlbums) > 0
}

// ImportReport summarises one Import.
type ImportReport struct {
	Imported      []string `json:"imported"`
	CreatedAlbums []string `json:"created_albums"`
}

type Synchronizer struct {
	db    *gorm.DB
	store *media.Store
	names config.AlbumNames
}

func New(db *gorm.DB, store *media.Store, names config.AlbumNames) *Synchronizer {
	if names == nil {
		names = config.AlbumNames{}
	}
	return &Synchronizer{db: db, store: store, names: names}
}

// scan is the state of the gallery tree at one point in time.
type scan struct {
	onDisk  map[string]bool // static-root relative media paths
	media   map[string][]os.FileInfo
	skipped map[string]bool
	removed []string
}

func (s *Synchronizer) scanTree() (*scan, error) {
	dirs, err := s.store.ListAlbumDirs()
	if err != nil {
		return nil, err
	}
	sc := &scan{
		onDisk:  map[string]bool{},
		media:   map[string][]os.FileInfo{},
		skipped: map[string]bool{},
	}
	for _, dir := range dirs {
		files, err := s.store.ListMedia(dir)
		if err != nil {
			log.Printf("sync: skipping album directory '%s': %v", dir, err)
			sc.skipped[dir] = true
		}
		if len(files) == 0 {
			s.tryRemoveDir(sc, dir)
			continue
		}
		sc.media[dir] = files
		for _, f := range files {
			sc.onDisk[s.store.StoredName(dir, f.Name())] = true
		}
	}
	return sc, nil
}

// directories that still hold other entries are left in place
func (s *Synchronizer) tryRemoveDir(sc *scan, dir string) {
	full, err := s.store.AlbumDir(dir)
	if err != nil {
		return
	}
	removed, err := s.store.RemoveDirIfEmpty(full)
	if err != nil {
		log.Printf("sync: could not remove album directory '%s': %v", dir, err)
		return
	}
	if removed {
		sc.removed = append(sc.removed, dir)
	}
}

// Run brings the database in line with the gallery tree. Image rows whose file
// is gone are deleted in one transaction, then albums without images or media
// are deleted and albums are created for media directories in a second one.
// Rows under directories that could not be read are never deleted.
func (s *Synchronizer) Run(ctx context.Context) (*SyncReport, error) {
	images, err := repository.NewImageRepository(s.db.WithContext(ctx)).ListAll()
	if err != nil {
		return nil, fmt.Errorf("sync: failed to load images: %w", err)
	}

	sc, err := s.scanTree()
	if err != nil {
		return nil, fmt.Errorf("sync: failed to scan gallery: %w", err)
	}

	report := &SyncReport{RemovedDirs: sc.removed}
	for dir := range sc.skipped {
		report.SkippedDirs = append(report.SkippedDirs, dir)
	}
	sort.Strings(report.SkippedDirs)

	var orphaned []uint
	for _, img := range images {
		if sc.onDisk[img.Filename] {
			continue
		}
		if album := s.store.AlbumOf(img.Filename); album != "" && sc.skipped[album] {
			continue
		}
		orphaned = append(orphaned, img.ID)
	}

	if len(orphaned) > 0 {
		deleted, err := s.deleteImages(ctx, orphaned)
		if err != nil {
			return report, err
		}
		report.DeletedImages = deleted
	}

	if err := s.reconcileAlbums(ctx, sc, report); err != nil {
		return report, err
	}

	if report.Changed() {
		log.Printf("sync: removed %d images, %d albums, %d directories; created %d albums",
			report.DeletedImages, report.DeletedAlbums, len(report.RemovedDirs), len(report.CreatedAlbums))
	}
	return report, nil
}

func (s *Synchronizer) deleteImages(ctx context.Context, ids []uint) (int64, error) {
	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return 0, err
	}
	defer uow.Rollback()

	deleted, err := repository.NewImageRepository(uow.DB()).DeleteByIDs(ids)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("sync: image cleanup: %w", err)
	}
	return deleted, nil
}

func (s *Synchronizer) reconcileAlbums(ctx context.Context, sc *scan, report *SyncReport) error {
	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	albumRepo := repository.NewAlbumRepository(uow.DB())
	imageRepo := repository.NewImageRepository(uow.DB())

	albums, err := albumRepo.ListAll()
	if err != nil {
		return err
	}
	known := map[string]bool{}
	var deleted int64
	for _, album := range albums {
		known[album.NormalizedName] = true
		if len(sc.media[album.NormalizedName]) > 0 || sc.skipped[album.NormalizedName] {
			continue
		}
		count, err := imageRepo.CountByAlbum(album.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := albumRepo.Delete(album.ID); err != nil {
			return err
		}
		deleted++
	}

	var created []string
	for dir := range sc.media {
		if known[dir] {
			continue
		}
		if _, _, err := albumRepo.CreateIfNotExists(dir, s.names.Display(dir, dir)); err != nil {
			return err
		}
		created = append(created, dir)
	}
	sort.Strings(created)

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("sync: album cleanup: %w", err)
	}
	report.DeletedAlbums = deleted
	report.CreatedAlbums = created
	return nil
}

// Import registers media files that exist on disk without an image row. Capture
// dates come from the files; titles from their names.
func (s *Synchronizer) Import(ctx context.Context) (*ImportReport, error) {
	images, err := repository.NewImageRepository(s.db.WithContext(ctx)).ListAll()
	if err != nil {
		return nil, fmt.Errorf("import: failed to load images: %w", err)
	}
	registered := make(map[string]bool, len(images))
	for _, img := range images {
		registered[img.Filename] = true
	}

	sc, err := s.scanTree()
	if err != nil {
		return nil, fmt.Errorf("import: failed to scan gallery: %w", err)
	}

	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	albumRepo := repository.NewAlbumRepository(uow.DB())
	imageRepo := repository.NewImageRepository(uow.DB())
	report := &ImportReport{}

	for dir, files := range sc.media {
		var album *models.Album
		for _, f := range files {
			stored := s.store.StoredName(dir, f.Name())
			if registered[stored] {
				continue
			}
			if album == nil {
				var created bool
				album, created, err = albumRepo.CreateIfNotExists(dir, s.names.Display(dir, dir))
				if err != nil {
					return nil, err
				}
				if created {
					report.CreatedAlbums = append(report.CreatedAlbums, dir)
				}
			}

			full, err := s.store.AlbumDir(dir)
			if err != nil {
				return nil, err
			}
			order, err := imageRepo.NextDisplayOrder(album.ID)
			if err != nil {
				return nil, err
			}
			title := validator.Normalize(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
			img := &models.Image{
				Filename:     stored,
				Title:        &title,
				Date:         media.CaptureDate(s.store.Fs(), filepath.Join(full, f.Name())),
				AlbumID:      &album.ID,
				DisplayOrder: order,
			}
			if err := imageRepo.Create(img); err != nil {
				return nil, err
			}
			report.Imported = append(report.Imported, stored)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if len(report.Imported) > 0 {
		log.Printf("import: registered %d files, created %d albums", len(report.Imported), len(report.CreatedAlbums))
	}
	return report, nil
}
