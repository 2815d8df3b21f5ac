package media

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tresinky/gallery/validator"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(afero.NewMemMapFs(), "/srv/static", "images/gallery")
	require.NoError(t, err)
	return s
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestNewStore_RejectsEscapingSubDir(t *testing.T) {
	_, err := NewStore(afero.NewMemMapFs(), "/srv/static", "../outside")
	assert.Error(t, err)
}

func TestStore_AlbumDir(t *testing.T) {
	s := newTestStore(t)

	dir, err := s.AlbumDir("Leto 2024")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/static/images/gallery", "Leto 2024"), dir)

	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := s.AlbumDir(bad)
		assert.ErrorIs(t, err, ErrOutsideGallery, bad)
	}
}

func TestStore_SaveAndRelPath(t *testing.T) {
	s := newTestStore(t)
	dir, err := s.EnsureAlbumDir("Leto 2024")
	require.NoError(t, err)

	// idempotent
	_, err = s.EnsureAlbumDir("Leto 2024")
	require.NoError(t, err)

	full, err := s.Save(dir, "a.jpg", strings.NewReader("data"))
	require.NoError(t, err)
	assert.True(t, s.Exists(full))

	rel, err := s.RelPath(full)
	require.NoError(t, err)
	assert.Equal(t, "images/gallery/Leto 2024/a.jpg", rel)
	assert.Equal(t, rel, s.StoredName("Leto 2024", "a.jpg"))
	assert.Equal(t, "Leto 2024", s.AlbumOf(rel))

	back, err := s.FullPath(rel)
	require.NoError(t, err)
	assert.Equal(t, full, back)
}

func TestStore_SaveRemovesPartialFile(t *testing.T) {
	s := newTestStore(t)
	dir, err := s.EnsureAlbumDir("A")
	require.NoError(t, err)

	_, err = s.Save(dir, "broken.jpg", failingReader{})
	require.Error(t, err)
	assert.False(t, s.Exists(filepath.Join(dir, "broken.jpg")))
}

func TestStore_SaveRecreatesPrunedAlbumDir(t *testing.T) {
	s := newTestStore(t)
	dir, err := s.EnsureAlbumDir("Nove")
	require.NoError(t, err)

	removed, err := s.RemoveDirIfEmpty(dir)
	require.NoError(t, err)
	require.True(t, removed)
	require.False(t, s.Exists(dir))

	full, err := s.Save(dir, "a.jpg", strings.NewReader("data"))
	require.NoError(t, err)
	assert.True(t, s.Exists(full))
}

func TestStore_FullPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FullPath("images/gallery/../../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideGallery)
	_, err = s.FullPath("images/other/x.webp")
	assert.ErrorIs(t, err, ErrOutsideGallery)
}

func TestStore_AlbumOf(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "", s.AlbumOf("images/gallery/loose.webp"))
	assert.Equal(t, "", s.AlbumOf("images/other/A/x.webp"))
	assert.Equal(t, "", s.AlbumOf("images/gallery/A/sub/x.webp"))
	assert.Equal(t, "A", s.AlbumOf("images/gallery/A/x.webp"))
}

func TestStore_RemoveMissingIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Remove(filepath.Join(s.Root(), "A", "gone.webp")))
	assert.ErrorIs(t, s.Remove("/etc/passwd"), ErrOutsideGallery)
}

func TestStore_MoveAndRemoveDirIfEmpty(t *testing.T) {
	s := newTestStore(t)
	dirA, _ := s.EnsureAlbumDir("A")
	dirB, _ := s.EnsureAlbumDir("B")
	src, err := s.Save(dirA, "x.webp", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	removed, err := s.RemoveDirIfEmpty(dirA)
	require.NoError(t, err)
	assert.False(t, removed)

	dst := filepath.Join(dirB, "x.webp")
	require.NoError(t, s.Move(src, dst))
	assert.True(t, s.Exists(dst))
	assert.False(t, s.Exists(src))
	assert.NoError(t, s.Move(dst, dst))

	removed, err = s.RemoveDirIfEmpty(dirA)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, s.Exists(dirA))

	// already gone
	removed, err = s.RemoveDirIfEmpty(dirA)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.RemoveDirIfEmpty(s.Root())
	assert.ErrorIs(t, err, ErrOutsideGallery)
}

func TestStore_ListAlbumDirsAndMedia(t *testing.T) {
	s := newTestStore(t)
	dirB, _ := s.EnsureAlbumDir("B")
	s.EnsureAlbumDir("A")
	s.EnsureAlbumDir(".trash")
	s.Save(dirB, "one.webp", strings.NewReader("1"))
	s.Save(dirB, "two.MP4", strings.NewReader("2"))
	s.Save(dirB, "raw.jpg", strings.NewReader("3"))
	s.Save(dirB, ".hidden.webp", strings.NewReader("4"))
	require.NoError(t, s.Fs().MkdirAll(filepath.Join(dirB, "nested"), 0755))

	dirs, err := s.ListAlbumDirs()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, dirs)

	files, err := s.ListMedia("B")
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	assert.ElementsMatch(t, []string{"one.webp", "two.MP4"}, names)
}

func TestProcessedName(t *testing.T) {
	assert.Equal(t, "Tresinky_20240101_120000.webp", ProcessedName("Tresinky_20240101_120000.jpg", validator.KindImage))
	assert.Equal(t, "clip.mp4", ProcessedName("clip.mp4", validator.KindVideo))
	assert.True(t, IsCanonical("a.WEBP"))
	assert.False(t, IsCanonical("a.jpg"))
}
