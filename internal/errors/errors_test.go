package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("derives category and severity from code", func(t *testing.T) {
		err := New(ErrCodeInvalidArgument, "top_k must be positive")

		assert.Equal(t, ErrCodeInvalidArgument, err.Code)
		assert.Equal(t, CategoryValidation, err.Category)
		assert.Equal(t, SeverityError, err.Severity)
		assert.False(t, err.Retryable)
	})

	t.Run("network errors are retryable warnings", func(t *testing.T) {
		err := New(ErrCodeNetworkTimeout, "embedding request timed out")

		assert.Equal(t, CategoryNetwork, err.Category)
		assert.Equal(t, SeverityWarning, err.Severity)
		assert.True(t, err.Retryable)
	})
}

func TestWrap(t *testing.T) {
	t.Run("wraps underlying error", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := Wrap(cause, ErrCodeCorpusLoad, "failed to load corpus")

		require.NotNil(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "ERR_202_CORPUS_LOAD")
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrCodeInternal, "never happens"))
	})
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeEmptyCorpus, "all documents tokenized empty")
	outer := fmt.Errorf("building index: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeEmptyCorpus))
	assert.False(t, IsCode(outer, ErrCodeInvalidArgument))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeEmptyCorpus))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidTopK, CodeOf(New(ErrCodeInvalidTopK, "bad")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeSearchFailed, "vector search failed").
		WithContext("query", "timeout 错误").
		WithContext("top_k", 5)

	assert.Equal(t, "timeout 错误", err.Context["query"])
	assert.Equal(t, 5, err.Context["top_k"])
}
