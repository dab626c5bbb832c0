package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrEmptyContent indicates that an extractor returned no article text
	ErrEmptyContent = errors.New("empty content")

	// ErrBackendUnavailable indicates that a summarization backend rejected the call
	// without attempting generation (circuit open, not configured)
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnsupportedPortal indicates that no dedicated extractor exists for a portal
	ErrUnsupportedPortal = errors.New("unsupported portal")
)

// ValidationError represents a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// InvalidSelectionError reports an unknown length mode or backend.
type InvalidSelectionError struct {
	Field string
	Value string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection for '%s': %q", e.Field, e.Value)
}

// AcquisitionError wraps a failure to obtain article text from a URL.
// Source names the extractor that failed ("portal", "extractor-api", "readability").
type AcquisitionError struct {
	URL    string
	Portal string
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s (portal=%s, source=%s): %v", e.URL, e.Portal, e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ShortModeChunk is the chunk index reported by BackendError when the
// failing call carried the whole text rather than a chunk.
const ShortModeChunk = -1

// BackendError wraps a failed generation call. Chunk is the zero-based
// index of the failing chunk, or ShortModeChunk.
type BackendError struct {
	Backend BackendID
	Chunk   int
	Err     error
}

func (e *BackendError) Error() string {
	if e.Chunk == ShortModeChunk {
		return fmt.Sprintf("backend %s failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("backend %s failed on chunk %d: %v", e.Backend, e.Chunk, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ReferenceProviderError wraps a failed reference-summary call.
type ReferenceProviderError struct {
	Provider string
	Err      error
}

func (e *ReferenceProviderError) Error() string {
	return fmt.Sprintf("reference provider %s failed: %v", e.Provider, e.Err)
}

func (e *ReferenceProviderError) Unwrap() error { return e.Err }
