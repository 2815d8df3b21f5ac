package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrOutsideGallery is returned for paths that resolve outside the gallery root.
var ErrOutsideGallery = errors.New("path resolves outside the gallery root")

// Store is the gallery directory tree: one subdirectory per album under the
// gallery root, which itself lives under the static root. Stored filenames are
// slash separated and relative to the static root ("images/gallery/Album/x.webp").
type Store struct {
	fs         afero.Fs
	staticRoot string // absolute path on fs
	root       string // absolute gallery root on fs
	subDir     string // gallery root relative to staticRoot, slash separated
}

// NewStore creates the gallery root on fs if missing.
func NewStore(fs afero.Fs, staticRoot, gallerySubDir string) (*Store, error) {
	absStatic, err := filepath.Abs(staticRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid static root '%s': %w", staticRoot, err)
	}
	subDir := path.Clean(filepath.ToSlash(gallerySubDir))
	if strings.HasPrefix(subDir, "..") || path.IsAbs(subDir) {
		return nil, fmt.Errorf("gallery subdirectory '%s' must stay inside the static root", gallerySubDir)
	}
	root := filepath.Join(absStatic, filepath.FromSlash(subDir))
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gallery root '%s': %w", root, err)
	}
	log.Printf("media.store: gallery root at %s", root)
	return &Store{fs: fs, staticRoot: absStatic, root: root, subDir: subDir}, nil
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs { return s.fs }

// Root is the absolute gallery root.
func (s *Store) Root() string { return s.root }

// StaticRoot is the absolute static root.
func (s *Store) StaticRoot() string { return s.staticRoot }

func (s *Store) within(base, p string) bool {
	clean := filepath.Clean(p)
	return clean == base || strings.HasPrefix(clean, base+string(filepath.Separator))
}

// AlbumDir returns the absolute directory for an album without creating it.
func (s *Store) AlbumDir(album string) (string, error) {
	if album == "" || album == "." || album == ".." || strings.ContainsAny(album, `/\`) {
		return "", fmt.Errorf("invalid album directory name %q: %w", album, ErrOutsideGallery)
	}
	dir := filepath.Join(s.root, album)
	if !s.within(s.root, dir) || dir == s.root {
		return "", fmt.Errorf("album %q: %w", album, ErrOutsideGallery)
	}
	return dir, nil
}

// EnsureAlbumDir creates the album directory if absent. Concurrent callers for
// the same album both succeed.
func (s *Store) EnsureAlbumDir(album string) (string, error) {
	dir, err := s.AlbumDir(album)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure album directory '%s': %w", dir, err)
	}
	return dir, nil
}

// Save writes data to dir/filename. A partially written file is removed on error.
func (s *Store) Save(dir, filename string, data io.Reader) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	fullPath := filepath.Join(dir, filename)
	if !s.within(s.root, fullPath) {
		return "", fmt.Errorf("save %q: %w", fullPath, ErrOutsideGallery)
	}
	// a sync pass may have pruned the directory since it was ensured
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	out, err := s.fs.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullPath, err)
	}
	if _, err := io.Copy(out, data); err != nil {
		out.Close()
		s.fs.Remove(fullPath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}
	if err := out.Close(); err != nil {
		s.fs.Remove(fullPath)
		return "", fmt.Errorf("failed to close '%s': %w", fullPath, err)
	}
	log.Printf("media.store: saved %s", fullPath)
	return fullPath, nil
}

// Remove deletes a file; a missing file is not an error.
func (s *Store) Remove(fullPath string) error {
	if !s.within(s.root, fullPath) {
		return fmt.Errorf("remove %q: %w", fullPath, ErrOutsideGallery)
	}
	err := s.fs.Remove(fullPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete '%s': %w", fullPath, err)
	}
	return nil
}

// Exists reports whether fullPath exists.
func (s *Store) Exists(fullPath string) bool {
	ok, err := afero.Exists(s.fs, fullPath)
	return err == nil && ok
}

// Move renames src to dst inside the gallery. Moving a file onto itself is a no-op.
func (s *Store) Move(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	if !s.within(s.root, src) || !s.within(s.root, dst) {
		return fmt.Errorf("move %q -> %q: %w", src, dst, ErrOutsideGallery)
	}
	if err := s.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move '%s' to '%s': %w", src, dst, err)
	}
	return nil
}

// RemoveDirIfEmpty removes an album directory only when it has no entries.
func (s *Store) RemoveDirIfEmpty(dir string) (bool, error) {
	if !s.within(s.root, dir) || filepath.Clean(dir) == s.root {
		return false, fmt.Errorf("rmdir %q: %w", dir, ErrOutsideGallery)
	}
	if ok, err := afero.DirExists(s.fs, dir); err != nil || !ok {
		return false, nil
	}
	empty, err := afero.IsEmpty(s.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect '%s': %w", dir, err)
	}
	if !empty {
		return false, nil
	}
	if err := s.fs.Remove(dir); err != nil {
		return false, fmt.Errorf("failed to remove directory '%s': %w", dir, err)
	}
	log.Printf("media.store: removed empty album directory %s", dir)
	return true, nil
}

// RelPath converts an absolute gallery path to the stored, static-root-relative form.
func (s *Store) RelPath(fullPath string) (string, error) {
	if !s.within(s.root, fullPath) {
		return "", fmt.Errorf("relpath %q: %w", fullPath, ErrOutsideGallery)
	}
	rel, err := filepath.Rel(s.staticRoot, fullPath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// FullPath resolves a stored filename back to an absolute path.
func (s *Store) FullPath(rel string) (string, error) {
	full := filepath.Join(s.staticRoot, filepath.FromSlash(path.Clean("/" + rel)))
	if !s.within(s.root, full) {
		return "", fmt.Errorf("invalid path %q: %w", rel, ErrOutsideGallery)
	}
	return full, nil
}

// AlbumOf returns the album directory name a stored filename belongs to, or ""
// if it is not directly inside an album directory.
func (s *Store) AlbumOf(rel string) string {
	clean := path.Clean(rel)
	prefix := s.subDir + "/"
	if !strings.HasPrefix(clean, prefix) {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(clean, prefix), "/")
	if len(parts) != 2 {
		return ""
	}
	return parts[0]
}

// StoredName builds the stored filename for a file inside an album.
func (s *Store) StoredName(album, filename string) string {
	return path.Join(s.subDir, album, filename)
}

// ListAlbumDirs returns the visible album directory names, sorted.
func (s *Store) ListAlbumDirs() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery root '%s': %w", s.root, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ListMedia returns the canonical media files (.webp, .mp4) directly inside an album directory.
func (s *Store) ListMedia(album string) ([]os.FileInfo, error) {
	dir, err := s.AlbumDir(album)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read album directory '%s': %w", dir, err)
	}
	var files []os.FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if IsCanonical(e.Name()) {
			files = append(files, e)
		}
	}
	return files, nil
}

// Open opens a gallery file for reading.
func (s *Store) Open(fullPath string) (afero.File, error) {
	if !s.within(s.root, fullPath) {
		return nil, fmt.Errorf("open %q: %w", fullPath, ErrOutsideGallery)
	}
	return s.fs.Open(fullPath)
}

// Stat stats a gallery file.
func (s *Store) Stat(fullPath string) (os.FileInfo, error) {
	return s.fs.Stat(fullPath)
}
