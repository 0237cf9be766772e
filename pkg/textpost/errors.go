package textpost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrPostNotFound indicates a post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrConflict indicates the write was based on a stale read of the post
	ErrConflict = errors.New("post was modified concurrently")

	// ErrValidation indicates the request failed field validation
	ErrValidation = errors.New("validation failed")

	// ErrPersistence indicates the repository failed during a write; the
	// stored post is unchanged and the write may be retried
	ErrPersistence = errors.New("persistence failure")

	// ErrSlugTaken indicates another post already uses the slug
	ErrSlugTaken = errors.New("slug already in use")

	// ErrNoImage indicates the post has no attached image
	ErrNoImage = errors.New("post has no image")

	// ErrObjectNotFound indicates the blob store has no object under the key
	ErrObjectNotFound = errors.New("object not found")

	// ErrBlobStoreNotConfigured indicates no blob store was configured
	ErrBlobStoreNotConfigured = errors.New("blob store not configured")
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// add records a field failure.
func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns nil when no field failed.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PostError represents an error related to post operations
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to image storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// persistenceError marks a repository failure as retryable unless it is
// already one of the domain errors.
func persistenceError(err error) error {
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrSlugTaken) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
