package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/database/dbtest"
	"github.com/tresinky/gallery/models"
)

func TestCreateIfNotExists_PreservesDisplayName(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAlbumRepository(db)

	first, created, err := repo.CreateIfNotExists("Leto 2024", "Léto 2024")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Léto 2024", first.DisplayName)

	second, created, err := repo.CreateIfNotExists("Leto 2024", "Something else")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Léto 2024", second.DisplayName)

	var count int64
	db.Model(&models.Album{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCreateIfNotExists_EmptyDisplayNameFallsBack(t *testing.T) {
	repo := NewAlbumRepository(dbtest.Open(t))
	album, _, err := repo.CreateIfNotExists("Jaro 2023", "  ")
	require.NoError(t, err)
	assert.Equal(t, "Jaro 2023", album.DisplayName)

	_, _, err = repo.CreateIfNotExists("", "x")
	assert.Error(t, err)
}

func TestCreateIfNotExists_ToleratesConcurrentInsert(t *testing.T) {
	db := dbtest.Open(t)

	// another writer inserts the same album between lookup and insert
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "albums" {
			return
		}
		raced = true
		now := time.Now().Unix()
		require.NoError(t, db.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO albums (normalized_name, display_name, created_at, updated_at) VALUES (?, ?, ?, ?)",
			"Podzim 2022", "Podzim 2022 (first)", now, now,
		).Error)
	})
	require.NoError(t, err)

	album, created, err := NewAlbumRepository(db).CreateIfNotExists("Podzim 2022", "Podzim 2022 (second)")
	require.NoError(t, err)
	assert.True(t, raced)
	assert.False(t, created)
	assert.Equal(t, "Podzim 2022 (first)", album.DisplayName)
}

func TestCreateIfNotExists_InsideUnitOfWorkRollsBack(t *testing.T) {
	db := dbtest.Open(t)
	uow, err := database.Begin(context.Background(), db)
	require.NoError(t, err)

	_, _, err = NewAlbumRepository(uow.DB()).CreateIfNotExists("Zima 2021", "Zima 2021")
	require.NoError(t, err)
	uow.Rollback()

	_, err = NewAlbumRepository(db).FindByNormalizedName("Zima 2021")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAlbumRepository_UpdateAndDeleteCascades(t *testing.T) {
	db := dbtest.Open(t)
	albums := NewAlbumRepository(db)
	images := NewImageRepository(db)

	album, _, err := albums.CreateIfNotExists("A", "A")
	require.NoError(t, err)
	require.NoError(t, images.Create(&models.Image{Filename: "images/gallery/A/x.webp", Date: time.Now(), AlbumID: &album.ID}))

	require.NoError(t, albums.UpdateDisplayName(album.ID, "Album A"))
	got, err := albums.GetByID(album.ID)
	require.NoError(t, err)
	assert.Equal(t, "Album A", got.DisplayName)
	assert.Error(t, albums.UpdateDisplayName(album.ID, ""))
	assert.ErrorIs(t, albums.UpdateDisplayName(9999, "x"), gorm.ErrRecordNotFound)

	withImages, err := albums.ListWithImages()
	require.NoError(t, err)
	require.Len(t, withImages, 1)
	assert.Len(t, withImages[0].Images, 1)

	require.NoError(t, albums.Delete(album.ID))
	all, err := images.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, albums.Delete(album.ID), gorm.ErrRecordNotFound)
}

func TestFindByDisplayName(t *testing.T) {
	repo := NewAlbumRepository(dbtest.Open(t))
	first, _, err := repo.CreateIfNotExists("jaro23", "Jaro 2023")
	require.NoError(t, err)
	_, _, err = repo.CreateIfNotExists("jaro23-kopie", "Jaro 2023")
	require.NoError(t, err)

	found, err := repo.FindByDisplayName("Jaro 2023")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindByDisplayName("jaro23")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
