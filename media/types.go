package media

import (
	"path/filepath"
	"strings"

	"github.com/tresinky/gallery/validator"
)

const (
	// CanonicalImageExtension is the storage format every image is converted to.
	CanonicalImageExtension = ".webp"
	// VideoExtension is stored as uploaded.
	VideoExtension = ".mp4"
)

// IsCanonical reports whether name is in a storage format the gallery serves.
func IsCanonical(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case CanonicalImageExtension, VideoExtension:
		return true
	}
	return false
}

// ProcessedName is the on-disk name a staged upload ends up with.
func ProcessedName(secureName string, kind validator.MediaKind) string {
	if kind == validator.KindImage {
		return strings.TrimSuffix(secureName, filepath.Ext(secureName)) + CanonicalImageExtension
	}
	return secureName
}
