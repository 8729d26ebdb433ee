// Package secure provides memory-safe handling of master key material.
//
// The package wraps the memguard library so that key bytes are encrypted at
// rest in memory (XSalsa20Poly1305), locked against swapping where the
// platform allows it, and wiped when no longer needed. Callers receive
// short-lived plaintext views and are responsible for destroying them.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer is protected storage for a secret byte string.
//
// The plaintext only exists in memory while a view obtained from Open is
// alive. Destroy is idempotent; an opened view after Destroy is empty.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer copies data into a protected enclave. The caller still owns the
// input slice and should scrub it afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave into a locked buffer. The caller MUST call
// Destroy on the returned buffer once the plaintext is no longer needed.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}

	return b.enclave.Open()
}

// Destroy drops the enclave and prevents further use. Safe to call more than
// once. For full cleanup of all protected memory at process exit, call
// memguard.Purge from main.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}

	b.enclave = nil
	b.destroyed = true
}
