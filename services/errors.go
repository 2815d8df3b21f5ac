package services

import (
	"errors"
	"fmt"
)

// ErrorKind groups upload failures by where they happen in the pipeline.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindAlbumName         ErrorKind = "AlbumNameError"
	KindIO                ErrorKind = "IoError"
	KindProcessing        ErrorKind = "ProcessingError"
	KindDatabase          ErrorKind = "DatabaseError"
	KindDependencyMissing ErrorKind = "DependencyMissing"
)

// ErrorCode is the specific reason an upload or edit failed.
type ErrorCode string

const (
	CodeNoFileSelected     ErrorCode = "NoFileSelected"
	CodeHiddenFileRejected ErrorCode = "HiddenFileRejected"
	CodeInvalidFile        ErrorCode = "InvalidFile"
	CodeNoAlbumSpecified   ErrorCode = "NoAlbumSpecified"
	CodeInvalidAlbumName   ErrorCode = "InvalidAlbumName"
	CodeSaveError          ErrorCode = "SaveError"
	CodeMoveError          ErrorCode = "MoveError"
	CodeDestinationExists  ErrorCode = "DestinationExists"
	CodeProcessingFailed   ErrorCode = "ProcessingFailed"
	CodeProcessingTimeout  ErrorCode = "ProcessingTimeout"
	CodeRecordFailed       ErrorCode = "RecordFailed"
	CodeCommitFailed       ErrorCode = "CommitFailed"
	CodeConverterMissing   ErrorCode = "ConverterMissing"
)

// UploadError is returned by every GalleryService mutation. Message is safe to
// show to users; Err carries the underlying cause.
type UploadError struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
	Err     error
}

func newUploadError(kind ErrorKind, code ErrorCode, message string, err error) *UploadError {
	return &UploadError{Kind: kind, Code: code, Message: message, Err: err}
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// AsUploadError extracts an *UploadError from err.
func AsUploadError(err error) (*UploadError, bool) {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
