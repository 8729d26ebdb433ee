package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "connection lookup")
		assert.Error(t, err)
		assert.Equal(t, "connection lookup: not found", err.Error())
		assert.True(t, Is(err, ErrNotFound))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain across multiple wraps", func(t *testing.T) {
		err := Wrap(Wrap(ErrExhausted, "pool acquire"), "create connection")
		assert.True(t, Is(err, ErrExhausted))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrInvalidInput)
	assert.True(t, Is(err, ErrInvalidInput))
	assert.False(t, Is(err, ErrConflict))
}

func TestNew(t *testing.T) {
	err := New("boom")
	assert.EqualError(t, err, "boom")
}
