package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrJobNotFound      = errors.New("job not found")
	ErrPromptNotFound   = errors.New("prompt version not found")
	ErrNoActivePrompt   = errors.New("no active prompt version")
	ErrForbidden        = errors.New("caller may not access this resource")
)

// InvariantViolationError reports an illegal state transition: reviewing a
// document that is not awaiting review, resolving a job the caller no
// longer holds, activating a prompt that is not activatable. These are
// rejected locally and never retried.
type InvariantViolationError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation on %s %s: %s", e.Entity, e.ID, e.Reason)
}

func NewInvariantViolation(entity, id, reason string) error {
	return &InvariantViolationError{Entity: entity, ID: id, Reason: reason}
}

// IsInvariantViolation reports whether err is an InvariantViolationError
// anywhere in its chain.
func IsInvariantViolation(err error) bool {
	var ive *InvariantViolationError
	return errors.As(err, &ive)
}

// UploadError is a per-file failure inside a batch upload. One file
// failing never aborts the batch.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func NewUploadError(filename string, err error) error {
	return &UploadError{Filename: filename, Err: err}
}
