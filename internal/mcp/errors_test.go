package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/aman-cerp/semantic-code-mcp/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error = nil

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_IndexNotFound(t *testing.T) {
	// Given: index not found error
	err := ErrIndexNotFound

	// When: mapping the error
	result := MapError(err)

	// Then: returns correct MCP error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeIndexNotFound, result.Code)
	assert.Contains(t, result.Message, "Index not found")
}

func TestMapError_EmbeddingFailed(t *testing.T) {
	// Given: embedding failed error
	err := ErrEmbeddingFailed

	// When: mapping the error
	result := MapError(err)

	// Then: returns correct MCP error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeEmbeddingFailed, result.Code)
	assert.Contains(t, result.Message, "Embedding")
}

func TestMapError_DeadlineExceeded(t *testing.T) {
	// Given: deadline exceeded error
	err := context.DeadlineExceeded

	// When: mapping the error
	result := MapError(err)

	// Then: returns timeout error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "timed out")
}

func TestMapError_Canceled(t *testing.T) {
	// Given: context canceled error
	err := context.Canceled

	// When: mapping the error
	result := MapError(err)

	// Then: returns timeout error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "canceled")
}

func TestMapError_ToolNotFound(t *testing.T) {
	// Given: tool not found error
	err := ErrToolNotFound

	// When: mapping the error
	result := MapError(err)

	// Then: returns method not found error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMapError_InvalidParams(t *testing.T) {
	// Given: invalid params error
	err := ErrInvalidParams

	// When: mapping the error
	result := MapError(err)

	// Then: returns invalid params error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_UnknownError(t *testing.T) {
	// Given: unknown error
	err := errors.New("some unknown error")

	// When: mapping the error
	result := MapError(err)

	// Then: returns internal error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Contains(t, result.Message, "Internal server error")
}

func TestMapError_WrappedError(t *testing.T) {
	// Given: wrapped index not found error
	err := fmt.Errorf("failed to search: %w", ErrIndexNotFound)

	// When: mapping the error
	result := MapError(err)

	// Then: correctly identifies the wrapped error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeIndexNotFound, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	// Given: an MCP error
	err := &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: "missing required field",
	}

	// When: calling Error()
	msg := err.Error()

	// Then: returns formatted message
	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewInvalidParamsError(t *testing.T) {
	// Given: a custom message
	msg := "query parameter is required"

	// When: creating invalid params error
	err := NewInvalidParamsError(msg)

	// Then: returns error with custom message
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
	assert.Equal(t, msg, err.Message)
}

func TestNewMethodNotFoundError(t *testing.T) {
	// Given: a tool name
	name := "unknown_tool"

	// When: creating method not found error
	err := NewMethodNotFoundError(name)

	// Then: returns error with tool name
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, name)
}

func TestNewResourceNotFoundError(t *testing.T) {
	// Given: a resource URI
	uri := "file://src/main.go"

	// When: creating resource not found error
	err := NewResourceNotFoundError(uri)

	// Then: returns error with URI
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, uri)
}

// Taxonomy errors carry a Kind rather than a Go type; MapError must switch
// on Kind (including a specialization's taxonomy parent) to pick the right
// MCP error code.
func TestMapError_TaxonomyError_PathTraversal(t *testing.T) {
	err := amerrors.PathTraversal("path 'config.yaml' escapes the indexed root")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodePathTraversal, result.Code)
	assert.Contains(t, result.Message, "config.yaml")
}

func TestMapError_TaxonomyError_InvalidFilter(t *testing.T) {
	err := amerrors.InvalidFilter("file_pattern contains characters outside the allowed set")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidFilter, result.Code)
}

func TestMapError_TaxonomyError_InvalidID(t *testing.T) {
	err := amerrors.InvalidID("chunk id 'query cannot be empty' failed validation")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_TaxonomyError_EmbedderFailure(t *testing.T) {
	err := amerrors.ModelLoadFailure("embedding model unreachable", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeEmbeddingFailed, result.Code)
}

func TestMapError_TaxonomyError_StoreFailure(t *testing.T) {
	err := amerrors.StoreFailure("vector store unavailable", nil, true)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeStoreFailure, result.Code)
}

func TestMapError_TaxonomyError_WithSuggestion(t *testing.T) {
	err := amerrors.PathTraversal("path escapes the indexed root").
		WithSuggestion("Use a path relative to the project root.")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Contains(t, result.Message, "escapes the indexed root")
	assert.Contains(t, result.Message, "Use a path relative")
}

func TestMapError_TaxonomyError_Internal(t *testing.T) {
	err := amerrors.InternalError("unexpected error", nil)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
}

func TestMapError_WrappedTaxonomyError(t *testing.T) {
	taxErr := amerrors.StoreFailure("lock contention", nil, true)
	err := fmt.Errorf("operation failed: %w", taxErr)

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeStoreFailure, result.Code)
}
