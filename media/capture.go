package media

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

const exifDateLayout = "2006:01:02 15:04:05"

// exif decoding is unreliable for these containers
var skipExif = map[string]bool{
	".heic":        true,
	VideoExtension: true,
}

// CaptureDate returns the best known capture time of fullPath: EXIF
// DateTimeOriginal, then the modification time, then now.
func CaptureDate(fs afero.Fs, fullPath string) time.Time {
	if !skipExif[strings.ToLower(filepath.Ext(fullPath))] {
		if t, ok := exifCaptureDate(fs, fullPath); ok {
			return t
		}
	}
	info, err := fs.Stat(fullPath)
	if err == nil && !info.ModTime().IsZero() {
		return info.ModTime()
	}
	if err != nil {
		log.Printf("media: cannot stat %s for capture date: %v", fullPath, err)
	}
	return time.Now()
}

func exifCaptureDate(fs afero.Fs, fullPath string) (time.Time, bool) {
	f, err := fs.Open(fullPath)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil || tag == nil {
		return time.Time{}, false
	}
	val, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(exifDateLayout, strings.TrimSpace(strings.TrimRight(val, "\x00")), time.Local)
	if err != nil {
		log.Printf("media: unparseable DateTimeOriginal %q in %s", val, filepath.Base(fullPath))
		return time.Time{}, false
	}
	return t, true
}
