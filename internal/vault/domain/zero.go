package domain

import (
	"crypto/rand"
)

// Zero overwrites a byte slice with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// Scramble overwrites a byte slice with random bytes before it is dropped,
// then zeroes it. Used when clearing derived keys so freed memory does not
// retain recognizable key material.
func Scramble(b []byte) {
	if b == nil {
		return
	}
	_, _ = rand.Read(b)
	Zero(b)
}
