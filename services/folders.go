package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/models"
	"github.com/tresinky/gallery/repository"
	"github.com/tresinky/gallery/synchronizer"
)

// StaticURLPrefix is where the static root is served.
const StaticURLPrefix = "/static/"

// Folder is one album as shown by the gallery page.
type Folder struct {
	ID          uint     `json:"id,omitempty"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	CoverImage  string   `json:"cover_image"`
	Images      []string `json:"images"`
	ImageCount  int      `json:"image_count"`
}

// StaticURL turns a stored filename into the URL it is served under.
func StaticURL(filename string) string {
	return StaticURLPrefix + strings.TrimPrefix(filename, "/")
}

// Sync runs the synchronizer.
func (s *GalleryService) Sync(ctx context.Context) (*synchronizer.SyncReport, error) {
	return s.syncer.Run(ctx)
}

// Folders lists the albums found on disk. The synchronizer runs first; its
// failure only degrades the listing to the pre-sync state.
func (s *GalleryService) Folders(ctx context.Context) ([]Folder, error) {
	if _, err := s.syncer.Run(ctx); err != nil {
		log.Printf("gallery: sync before listing failed, continuing: %v", err)
	}

	albums, err := repository.NewAlbumRepository(s.db.WithContext(ctx)).ListAll()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Album, len(albums))
	for _, a := range albums {
		byName[a.NormalizedName] = a
	}

	dirs, err := s.store.ListAlbumDirs()
	if err != nil {
		return nil, err
	}

	folders := []Folder{}
	for _, dir := range dirs {
		files, err := s.store.ListMedia(dir)
		if err != nil {
			log.Printf("gallery: skipping unreadable album %s: %v", dir, err)
			continue
		}
		if len(files) == 0 {
			continue
		}

		folder := Folder{Name: dir, DisplayName: s.names.Display(dir, dir), Images: make([]string, 0, len(files))}
		if a, ok := byName[dir]; ok {
			folder.ID = a.ID
			folder.DisplayName = a.DisplayName
		}

		var cover os.FileInfo
		for _, f := range files {
			folder.Images = append(folder.Images, StaticURL(s.store.StoredName(dir, f.Name())))
			if isImageFile(f.Name()) && (cover == nil || f.Size() > cover.Size()) {
				cover = f
			}
		}
		if cover != nil {
			folder.CoverImage = StaticURL(s.store.StoredName(dir, cover.Name()))
		}
		folder.ImageCount = len(folder.Images)
		folders = append(folders, folder)
	}

	SortFolders(folders)
	return folders, nil
}

func isImageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), media.CanonicalImageExtension)
}

// Images lists the images of one album.
func (s *GalleryService) Images(ctx context.Context, albumName, sortOrder string) ([]models.Image, error) {
	db := s.db.WithContext(ctx)
	album, err := repository.NewAlbumRepository(db).FindByNormalizedName(albumName)
	if err != nil {
		return nil, err
	}
	return repository.NewImageRepository(db).ListByAlbum(album.ID, sortOrder)
}

// Albums returns per-album statistics.
func (s *GalleryService) Albums(ctx context.Context) ([]database.AlbumStat, error) {
	return database.ListAlbumStats(ctx, s.db)
}

// RenameAlbum changes the display name of an album. The directory is kept.
func (s *GalleryService) RenameAlbum(ctx context.Context, id uint, displayName string) (*models.Album, error) {
	repo := repository.NewAlbumRepository(s.db.WithContext(ctx))
	if err := repo.UpdateDisplayName(id, displayName); err != nil {
		return nil, err
	}
	return repo.GetByID(id)
}

// ErrAlbumNotFound is returned by Cover for unknown album directories.
var ErrAlbumNotFound = errors.New("album not found")

// Cover writes the album cover as JPEG: the largest image of the album scaled
// to the configured size, or the placeholder if none can be decoded.
func (s *GalleryService) Cover(ctx context.Context, albumName string, w io.Writer) error {
	dir, err := s.store.AlbumDir(albumName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAlbumNotFound, err)
	}
	files, err := s.store.ListMedia(albumName)
	if err != nil {
		if !s.store.Exists(dir) {
			return ErrAlbumNotFound
		}
		return err
	}

	var images []os.FileInfo
	for _, f := range files {
		if isImageFile(f.Name()) {
			images = append(images, f)
		}
	}
	sort.SliceStable(images, func(i, j int) bool { return images[i].Size() > images[j].Size() })

	for _, f := range images {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.renderFile(path.Join(albumName, f.Name()), filepath.Join(dir, f.Name()), w); err == nil {
			return nil
		}
	}
	return media.RenderPlaceholder(w)
}

func (s *GalleryService) renderFile(label, full string, w io.Writer) error {
	f, err := s.store.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()
	// render into memory so a decode failure leaves w untouched
	var buf bytes.Buffer
	if err := media.RenderCover(&buf, f, s.coverMaxSize); err != nil {
		log.Printf("gallery: cover candidate %s unusable: %v", label, err)
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
