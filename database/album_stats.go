package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// AlbumStat is a per-album summary used by the albums listing.
type AlbumStat struct {
	AlbumID        uint       `json:"album_id"`
	NormalizedName string     `json:"normalized_name"`
	DisplayName    string     `json:"display_name"`
	ImageCount     int64      `json:"image_count"`
	NewestDate     *time.Time `json:"newest_date,omitempty"`
}

// sqlite returns aggregated DATETIME values as text in one of these layouts
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseSQLiteTime(value string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", value)
}

// ListAlbumStats returns image counts and the newest capture date per album,
// ordered by normalized name.
func ListAlbumStats(ctx context.Context, db *gorm.DB) ([]AlbumStat, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	queryBuilder := psql.Select(
		"a.id",
		"a.normalized_name",
		"a.display_name",
		"COUNT(i.id)",
		"MAX(i.date)",
	).
		From("albums a").
		LeftJoin("images i ON i.album_id = a.id").
		GroupBy("a.id", "a.normalized_name", "a.display_name").
		OrderBy("a.normalized_name ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListAlbumStats: %w", err)
	}

	rows, err := sqlDB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListAlbumStats query: %w", err)
	}
	defer rows.Close()

	stats := []AlbumStat{}
	for rows.Next() {
		var s AlbumStat
		var newest sql.NullString
		if err := rows.Scan(&s.AlbumID, &s.NormalizedName, &s.DisplayName, &s.ImageCount, &newest); err != nil {
			return nil, fmt.Errorf("failed to scan album stat row: %w", err)
		}
		if newest.Valid && newest.String != "" {
			t, err := parseSQLiteTime(newest.String)
			if err == nil {
				s.NewestDate = &t
			}
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error iterating album stat rows: %w", err)
	}
	return stats, nil
}
