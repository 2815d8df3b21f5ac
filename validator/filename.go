// Package validator normalizes and checks uploaded file and album names.
package validator

import (
	"log"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFilenameLength bounds raw and secured names, in characters.
const MaxFilenameLength = 255

// MediaKind is decided once at validation time and routes every later stage.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindImage
	KindVideo
)

func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

var allowedExtensions = map[string]MediaKind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
	".heic": KindImage,
	".mp4":  KindVideo,
}

// explicit map so .heic and friends do not depend on the host mime registry
var mimeFallback = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"video/mp4":  true,
}

var czechReplacer = strings.NewReplacer(
	"á", "a", "č", "c", "ď", "d", "é", "e", "ě", "e", "í", "i",
	"ň", "n", "ó", "o", "ř", "r", "š", "s", "ť", "t", "ú", "u",
	"ů", "u", "ý", "y", "ž", "z",
	"Á", "A", "Č", "C", "Ď", "D", "É", "E", "Ě", "E", "Í", "I",
	"Ň", "N", "Ó", "O", "Ř", "R", "Š", "S", "Ť", "T", "Ú", "U",
	"Ů", "U", "Ý", "Y", "Ž", "Z",
)

var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`\.\.\\`),
	regexp.MustCompile(`^/`),
	regexp.MustCompile(`^[A-Za-z]:`),
	regexp.MustCompile(`[<>|*?:]`),
}

var (
	stripUnsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// Extension returns the lower-cased extension of name, including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// KindOf reports the media kind for name's extension, KindUnknown if not allowed.
func KindOf(name string) MediaKind {
	return allowedExtensions[Extension(name)]
}

// Normalize maps Czech diacritics to ASCII, then strips any remaining combining
// marks. Characters that do not decompose are kept as they are.
func Normalize(name string) string {
	replaced := czechReplacer.Replace(name)
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, replaced)
	if err != nil {
		log.Printf("validator: unicode normalization failed for %q: %v", name, err)
		return replaced
	}
	return out
}

// SecureName returns a filesystem-safe token derived from raw. Path separators
// become spaces, whitespace collapses to '_', anything outside [A-Za-z0-9_.-]
// is dropped and leading/trailing dots and underscores are trimmed. An empty
// result falls back to a generated name carrying the original extension.
func SecureName(raw string) string {
	name := Normalize(raw)
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	name = stripUnsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name == "" {
		ext := stripUnsafeChars.ReplaceAllString(Extension(Normalize(raw)), "")
		if ext == "." {
			ext = ""
		}
		name = "file_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + ext
		log.Printf("validator: secure name for %q was empty, using %s", raw, name)
	}
	return truncate(name, MaxFilenameLength)
}

// WithSuffix inserts suffix between the base name and extension of a secured
// name, truncating the base so the result still fits MaxFilenameLength.
func WithSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if over := len(base) + len(suffix) + len(ext) - MaxFilenameLength; over > 0 && over < len(base) {
		base = base[:runeCut(base, len(base)-over)]
	}
	return truncate(base+suffix+ext, MaxFilenameLength)
}

// truncate shortens name to at most max bytes, keeping the extension and
// never splitting a multi-byte rune.
func truncate(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= max {
		return name[:runeCut(name, max)]
	}
	return name[:runeCut(name, max-len(ext))] + ext
}

func runeCut(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// AlbumDirName turns a user supplied album label into a directory name. It is
// stricter than SecureName about Windows-reserved characters but keeps spaces
// so "Léto 2024" becomes "Leto 2024".
func AlbumDirName(label string) string {
	name := Normalize(strings.TrimSpace(label))
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"|?*/\`, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")
	return truncate(name, MaxFilenameLength)
}

// ValidateSafety rejects traversal patterns, Windows-reserved characters and
// overlong names.
func ValidateSafety(filename string) error {
	if filename == "" {
		return newError(ReasonUnsafeFilename, filename, "empty filename")
	}
	for _, p := range unsafePatterns {
		if p.MatchString(filename) {
			return newError(ReasonUnsafeFilename, filename, "dangerous pattern found")
		}
	}
	if n := utf8.RuneCountInString(filename); n > MaxFilenameLength {
		return newError(ReasonNameTooLong, filename, "")
	}
	return nil
}

// ValidateExtension checks the lower-cased extension against the allow-list.
func ValidateExtension(filename string) error {
	ext := Extension(filename)
	if ext == "" || ext == "." {
		return newError(ReasonMissingExtension, filename, "")
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return newError(ReasonUnsupportedExtension, filename, "extension "+ext+" not allowed")
	}
	return nil
}

// MimeType derives the expected MIME type from the extension.
func MimeType(filename string) string {
	ext := Extension(filename)
	if m, ok := mimeFallback[ext]; ok {
		return m
	}
	m := mime.TypeByExtension(ext)
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

// ValidateMimeType checks the extension-derived MIME type against the allow-list.
func ValidateMimeType(filename string) error {
	m := MimeType(filename)
	if m == "" {
		return newError(ReasonUnsupportedMimeType, filename, "could not determine MIME type")
	}
	if !allowedMimeTypes[m] {
		return newError(ReasonUnsupportedMimeType, filename, "MIME type "+m+" not allowed")
	}
	return nil
}

// Result is the outcome of a successful ValidateFile.
type Result struct {
	SecureName string
	Kind       MediaKind
	MimeType   string
}

// ValidateFile runs safety, extension and MIME checks in that order, stopping
// at the first failure, and returns the secured name.
func ValidateFile(filename string) (Result, error) {
	if err := ValidateSafety(filename); err != nil {
		return Result{}, err
	}
	if err := ValidateExtension(filename); err != nil {
		return Result{}, err
	}
	if err := ValidateMimeType(filename); err != nil {
		return Result{}, err
	}
	return Result{
		SecureName: SecureName(filename),
		Kind:       KindOf(filename),
		MimeType:   MimeType(filename),
	}, nil
}
