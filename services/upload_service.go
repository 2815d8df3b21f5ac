package services

import (
	"context"
	"errors"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/models"
	"github.com/tresinky/gallery/realtime"
	"github.com/tresinky/gallery/repository"
	"github.com/tresinky/gallery/validator"
)

const uploadTimestampLayout = "20060102_150405"

// UploadState is the position of one upload in the pipeline.
type UploadState int

const (
	StateReceived UploadState = iota
	StateValidated
	StateAlbumResolved
	StateSaved
	StateProcessed
	StateRecorded
	StateCommitted
	StateFailed
)

var stateNames = [...]string{
	"Received", "Validated", "AlbumResolved", "Saved", "Processed", "Recorded", "Committed", "Failed",
}

func (s UploadState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// UploadRequest is one file part plus its form fields.
type UploadRequest struct {
	Filename    string
	Content     io.Reader
	Album       string // existing album, display or directory name
	NewAlbum    string // free text, wins over Album
	Title       string
	Description string
}

// UploadResult is the structured answer returned to the uploader.
type UploadResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Uploaded describes a committed upload.
type Uploaded struct {
	Image      *models.Image
	Album      *models.Album
	SecureName string
}

// NewUploadResult maps the outcome of Upload to the structured result.
func NewUploadResult(u *Uploaded, err error) UploadResult {
	if err != nil {
		if ue, ok := AsUploadError(err); ok {
			return UploadResult{Success: false, Error: ue.Message}
		}
		return UploadResult{Success: false, Error: err.Error()}
	}
	return UploadResult{Success: true, Filename: u.SecureName, Message: "File uploaded successfully"}
}

// upload carries the per-file pipeline state and what must be undone on failure.
type upload struct {
	state      UploadState
	req        UploadRequest
	file       validator.Result
	secureName string
	announced  bool
	albumName  string
	albumLabel string
	albumDir   string
	createdDir bool
	staged     string
	processed  string
}

func (u *upload) advance(next UploadState) {
	u.state = next
}

// Upload runs one file through validation, album resolution, staging,
// processing and recording. Nothing reaches the database unless the file was
// fully processed, and on any failure after staging the staged and processed
// files are removed.
func (s *GalleryService) Upload(ctx context.Context, req UploadRequest) (*Uploaded, error) {
	u := &upload{state: StateReceived, req: req}

	name := strings.TrimSpace(req.Filename)
	if req.Content == nil || name == "" {
		return nil, s.fail(u, newUploadError(KindValidation, CodeNoFileSelected, "No file selected", nil))
	}
	if strings.HasPrefix(path.Base(strings.ReplaceAll(name, `\`, "/")), ".") {
		return nil, s.fail(u, newUploadError(KindValidation, CodeHiddenFileRejected, "Hidden files are not supported", nil))
	}

	res, err := validator.ValidateFile(name)
	if err != nil {
		return nil, s.fail(u, newUploadError(KindValidation, CodeInvalidFile, err.Error(), err))
	}
	u.file = res
	ext := filepath.Ext(res.SecureName)
	u.secureName = validator.WithSuffix(
		strings.TrimSuffix(res.SecureName, ext)+strings.ToLower(ext),
		"_"+s.now().Format(uploadTimestampLayout),
	)
	u.advance(StateValidated)

	if res.Kind == validator.KindImage {
		if err := s.processor.CheckDependency(); err != nil {
			return nil, s.fail(u, newUploadError(KindDependencyMissing, CodeConverterMissing,
				"Image converter is not installed on the server", err))
		}
	}

	if uerr := s.resolveAlbum(ctx, u); uerr != nil {
		return nil, s.fail(u, uerr)
	}
	if s.store.Exists(filepath.Join(u.albumDir, u.secureName)) ||
		s.store.Exists(filepath.Join(u.albumDir, media.ProcessedName(u.secureName, res.Kind))) {
		u.secureName = validator.WithSuffix(u.secureName, "_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	}

	s.progress.PublishProgress(u.secureName, realtime.StatusProcessing, "")
	u.announced = true

	staged, err := s.store.Save(u.albumDir, u.secureName, req.Content)
	if err != nil {
		return nil, s.fail(u, newUploadError(KindIO, CodeSaveError, "Failed to save file", err))
	}
	u.staged = staged
	u.advance(StateSaved)

	// read before conversion, the canonical format drops most metadata
	captureDate := media.CaptureDate(s.store.Fs(), staged)

	processed, err := s.processor.Process(ctx, res.Kind, staged)
	if err != nil {
		code := CodeProcessingFailed
		msg := "processing failed"
		if errors.Is(err, media.ErrProcessingTimeout) {
			code = CodeProcessingTimeout
			msg = "processing failed: timed out"
		}
		if errors.Is(err, media.ErrConverterMissing) {
			return nil, s.fail(u, newUploadError(KindDependencyMissing, CodeConverterMissing,
				"Image converter is not installed on the server", err))
		}
		return nil, s.fail(u, newUploadError(KindProcessing, code, msg, err))
	}
	u.processed = processed
	u.advance(StateProcessed)

	result, uerr := s.record(ctx, u, captureDate)
	if uerr != nil {
		return nil, s.fail(u, uerr)
	}
	u.advance(StateCommitted)

	s.progress.PublishProgress(u.secureName, realtime.StatusCompleted, "")
	log.Printf("upload: stored %s in album '%s' as %s", name, u.albumName, result.Image.Filename)
	return result, nil
}

// resolveAlbum picks the target directory: new_album is always free text,
// album names an existing album by directory or display name.
func (s *GalleryService) resolveAlbum(ctx context.Context, u *upload) *UploadError {
	var dirName, display string
	if label := strings.TrimSpace(u.req.NewAlbum); label != "" {
		dirName, display = s.newAlbum(label)
	} else if label := strings.TrimSpace(u.req.Album); label != "" {
		var err error
		dirName, display, err = s.existingAlbum(s.db.WithContext(ctx), label)
		if err != nil {
			return newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
		}
	} else {
		return newUploadError(KindAlbumName, CodeNoAlbumSpecified, "No album specified", nil)
	}
	if dirName == "" {
		return newUploadError(KindAlbumName, CodeInvalidAlbumName, "Invalid album name", nil)
	}

	dir, err := s.store.AlbumDir(dirName)
	if err != nil {
		return newUploadError(KindAlbumName, CodeInvalidAlbumName, "Invalid album name", err)
	}
	existed := s.store.Exists(dir)
	if _, err := s.store.EnsureAlbumDir(dirName); err != nil {
		return newUploadError(KindIO, CodeSaveError, "Failed to create album directory", err)
	}

	u.albumName = dirName
	u.albumLabel = display
	u.albumDir = dir
	u.createdDir = !existed
	u.advance(StateAlbumResolved)
	return nil
}

// record inserts the album and image rows and commits them as one unit.
func (s *GalleryService) record(ctx context.Context, u *upload, captureDate time.Time) (*Uploaded, *UploadError) {
	rel, err := s.store.RelPath(u.processed)
	if err != nil {
		return nil, newUploadError(KindIO, CodeSaveError, "Failed to resolve stored path", err)
	}

	uow, err := database.Begin(ctx, s.db)
	if err != nil {
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}
	defer uow.Rollback()

	album, _, err := repository.NewAlbumRepository(uow.DB()).CreateIfNotExists(u.albumName, u.albumLabel)
	if err != nil {
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}

	imageRepo := repository.NewImageRepository(uow.DB())
	order, err := imageRepo.NextDisplayOrder(album.ID)
	if err != nil {
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}

	title := strings.TrimSpace(u.req.Title)
	if title == "" {
		raw := filepath.Base(strings.ReplaceAll(strings.TrimSpace(u.req.Filename), `\`, "/"))
		title = validator.Normalize(strings.TrimSuffix(raw, filepath.Ext(raw)))
	}
	image := &models.Image{
		Filename:     rel,
		Title:        &title,
		Date:         captureDate,
		AlbumID:      &album.ID,
		DisplayOrder: order,
	}
	if desc := strings.TrimSpace(u.req.Description); desc != "" {
		image.Description = &desc
	}
	if err := imageRepo.Create(image); err != nil {
		return nil, newUploadError(KindDatabase, CodeRecordFailed, "Database error", err)
	}
	u.advance(StateRecorded)

	if err := uow.Commit(); err != nil {
		return nil, newUploadError(KindDatabase, CodeCommitFailed, "Failed to save upload", err)
	}
	return &Uploaded{Image: image, Album: album, SecureName: u.secureName}, nil
}

// fail moves the upload to Failed, removes anything it left on disk and
// notifies listeners once the upload was announced.
func (s *GalleryService) fail(u *upload, err *UploadError) error {
	from := u.state
	u.advance(StateFailed)

	if from >= StateSaved {
		for _, p := range []string{u.staged, u.processed} {
			if p == "" {
				continue
			}
			if rmErr := s.store.Remove(p); rmErr != nil {
				log.Printf("upload: cleanup of %s failed: %v", p, rmErr)
			}
		}
	}
	if u.createdDir && u.albumDir != "" {
		if _, rmErr := s.store.RemoveDirIfEmpty(u.albumDir); rmErr != nil {
			log.Printf("upload: cleanup of album directory %s failed: %v", u.albumDir, rmErr)
		}
	}

	if u.announced {
		s.progress.PublishProgress(u.secureName, realtime.StatusFailed, err.Message)
	}
	log.Printf("upload: %s failed in state %s: %v", u.req.Filename, from, err)
	return err
}
