package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrBufferDestroyed is returned when a Buffer is opened after Destroy.
var ErrBufferDestroyed = errors.New("key material buffer destroyed")

// Buffer stores key material in a memguard enclave. The enclave keeps the
// bytes encrypted in memory and mlocked against swapping; plaintext exists
// only while an opened LockedBuffer is alive.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed makes Destroy idempotent and blocks use afterwards
	destroyed bool
}

// NewBuffer copies data into a protected enclave. memguard wipes the source
// slice during the copy; callers must not reuse it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave into a locked buffer. The caller must call
// Destroy on the returned buffer to wipe the plaintext.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	return b.enclave.Open()
}

// WithBytes opens the buffer, passes the plaintext to fn, and wipes the
// working copy before returning. The slice is only valid inside fn.
func (b *Buffer) WithBytes(fn func([]byte) error) error {
	locked, err := b.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy marks the buffer unusable. The enclave's encrypted pages are left
// to the collector; call memguard.Purge at process exit for a full sweep.
// Destroy is idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
