package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("zeroes all bytes", func(t *testing.T) {
		b := []byte{1, 2, 3, 4}
		Zero(b)
		assert.Equal(t, []byte{0, 0, 0, 0}, b)
	})

	t.Run("handles nil slice", func(t *testing.T) {
		Zero(nil)
	})
}

func TestScramble(t *testing.T) {
	t.Run("leaves no original bytes behind", func(t *testing.T) {
		b := []byte{1, 2, 3, 4}
		Scramble(b)
		assert.Equal(t, []byte{0, 0, 0, 0}, b)
	})

	t.Run("handles nil slice", func(t *testing.T) {
		Scramble(nil)
	})
}
