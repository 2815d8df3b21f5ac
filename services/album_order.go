package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/facette/natsort"

	"github.com/tresinky/gallery/validator"
)

// month numbers by normalized Czech name, nominative and genitive
var czechMonths = map[string]int{
	"leden": 1, "ledna": 1,
	"unor": 2, "unora": 2,
	"brezen": 3, "brezna": 3,
	"duben": 4, "dubna": 4,
	"kveten": 5, "kvetna": 5,
	"cerven": 6, "cervna": 6,
	"cervenec": 7, "cervence": 7,
	"srpen": 8, "srpna": 8,
	"zari": 9,
	"rijen": 10, "rijna": 10,
	"listopad": 11, "listopadu": 11,
	"prosinec": 12, "prosince": 12,
}

// seasons sort as their first month
var czechSeasons = map[string]int{
	"jaro":   3,
	"leto":   6,
	"podzim": 9,
	"zima":   12,
}

var (
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	wordPattern = regexp.MustCompile(`\p{L}+`)
)

// AlbumDate extracts a sortable year and month from an album label such as
// "Květen 2023" or "Léto 2024". The month is 0 when only a year is present.
func AlbumDate(label string) (year, month int, ok bool) {
	normalized := strings.ToLower(validator.Normalize(label))
	y := yearPattern.FindString(normalized)
	if y == "" {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(y)
	for _, word := range wordPattern.FindAllString(normalized, -1) {
		if m, found := czechMonths[word]; found {
			return year, m, true
		}
		if m, found := czechSeasons[word]; found {
			return year, m, true
		}
	}
	return year, 0, true
}

// SortFolders orders folders newest first by the date in their display name.
// Folders without a recognisable date follow in natural order.
func SortFolders(folders []Folder) {
	sort.SliceStable(folders, func(i, j int) bool {
		yi, mi, oki := AlbumDate(folders[i].DisplayName)
		yj, mj, okj := AlbumDate(folders[j].DisplayName)
		switch {
		case oki && okj:
			if yi != yj {
				return yi > yj
			}
			if mi != mj {
				return mi > mj
			}
			return natsort.Compare(folders[i].DisplayName, folders[j].DisplayName)
		case oki != okj:
			return oki
		default:
			return natsort.Compare(folders[i].DisplayName, folders[j].DisplayName)
		}
	})
}
