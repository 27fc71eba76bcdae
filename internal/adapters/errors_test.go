package adapters

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesSentinelKind(t *testing.T) {
	err := NewError("transcript", ErrUnavailable, "no captions", nil)

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestError_MatchesWrappedSentinel(t *testing.T) {
	inner := NewError("page", ErrTimeout, "deadline hit", nil)
	wrapped := fmt.Errorf("failed to read source: %w", inner)

	assert.True(t, errors.Is(wrapped, ErrTimeout))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError("search", ErrUnreachable, "API call failed", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestError_MessageFormat(t *testing.T) {
	withCause := NewError("images", ErrRateLimited, "quota hit", errors.New("429"))
	assert.Contains(t, withCause.Error(), "images adapter")
	assert.Contains(t, withCause.Error(), "rate limited")
	assert.Contains(t, withCause.Error(), "429")

	withoutCause := NewError("extract", ErrMalformed, "bad JSON", nil)
	assert.Contains(t, withoutCause.Error(), "extract adapter")
	assert.NotContains(t, withoutCause.Error(), "<nil>")
}

func TestError_AsTypedError(t *testing.T) {
	err := NewError("links", ErrMalformed, "empty name", nil)

	var adapterErr *Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "links", adapterErr.Adapter)
}
