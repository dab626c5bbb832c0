package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "selectedLength", Message: "required"}
	assert.Equal(t, "validation error on field 'selectedLength': required", err.Error())
}

func TestBackendError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BackendError
		expected string
	}{
		{
			name:     "short mode",
			err:      &BackendError{Backend: ModelA, Chunk: ShortModeChunk, Err: errors.New("timeout")},
			expected: "backend ModelA failed: timeout",
		},
		{
			name:     "chunk index",
			err:      &BackendError{Backend: ModelB, Chunk: 2, Err: errors.New("status 500")},
			expected: "backend ModelB failed on chunk 2: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
	}{
		{"acquisition", &AcquisitionError{URL: "https://example.com", Portal: "example", Source: "portal", Err: cause}},
		{"backend", &BackendError{Backend: ModelA, Chunk: 0, Err: cause}},
		{"reference", &ReferenceProviderError{Provider: "gemini", Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pipeline: %w", tt.err)
			assert.ErrorIs(t, wrapped, cause)
		})
	}
}

func TestErrors_As(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", &BackendError{Backend: ModelB, Chunk: 3, Err: ErrBackendUnavailable})

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, 3, backendErr.Chunk)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
