package validator

import (
	"errors"
	"fmt"
)

// Reason classifies a validation failure.
type Reason string

const (
	ReasonMissingExtension     Reason = "MissingExtension"
	ReasonUnsupportedExtension Reason = "UnsupportedExtension"
	ReasonUnsupportedMimeType  Reason = "UnsupportedMimeType"
	ReasonUnsafeFilename       Reason = "UnsafeFilename"
	ReasonNameTooLong          Reason = "NameTooLong"
)

var reasonMessages = map[Reason]string{
	ReasonMissingExtension:     "file has no extension",
	ReasonUnsupportedExtension: "unsupported file extension",
	ReasonUnsupportedMimeType:  "unsupported file type",
	ReasonUnsafeFilename:       "unsafe filename",
	ReasonNameTooLong:          "filename too long",
}

// Error is returned by every validation function.
type Error struct {
	Reason   Reason
	Filename string
	Detail   string
}

func newError(reason Reason, filename, detail string) *Error {
	return &Error{Reason: reason, Filename: filename, Detail: detail}
}

func (e *Error) Error() string {
	msg := reasonMessages[e.Reason]
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	return fmt.Sprintf("%s (%q)", msg, e.Filename)
}

// ReasonOf extracts the Reason from err if it wraps a *Error.
func ReasonOf(err error) (Reason, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Reason, true
	}
	return "", false
}
