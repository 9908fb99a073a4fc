package secure

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer holds a secret value encrypted in a memguard.Enclave until the
// moment it is dispatched.
type SecureBuffer struct {
	enclave *memguard.Enclave
	size    int
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy calls and blocks use after destroy
	destroyed bool
}

// NewSecureBuffer seals data into a new buffer. memguard wipes data in the
// process, so callers must not reuse the slice.
//
// An empty data slice yields an empty buffer.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	size := len(data)
	if size == 0 {
		return &SecureBuffer{}, nil
	}

	// memguard.NewEnclave encrypts with XSalsa20Poly1305 under a key that
	// itself lives in guarded, mlocked memory.
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
		size:    size,
	}, nil
}

// ReadSecureBuffer reads r to EOF straight into locked memory and seals the
// result. One trailing line ending is dropped so that piped values like
// `echo secret | keyproxy secrets put` store what the user typed.
func ReadSecureBuffer(r io.Reader) (*SecureBuffer, error) {
	locked, err := memguard.NewBufferFromEntireReader(r)
	if err != nil && !errors.Is(err, io.EOF) {
		if locked != nil {
			locked.Destroy()
		}
		return nil, err
	}
	if locked == nil {
		return &SecureBuffer{}, nil
	}
	defer locked.Destroy()

	if locked.Size() == 0 {
		return &SecureBuffer{}, nil
	}

	data := locked.Bytes()
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	if len(data) == 0 {
		return &SecureBuffer{}, nil
	}

	// NewEnclave wipes the slice it is given, which here aliases the locked
	// buffer that is destroyed on return anyway.
	return NewSecureBuffer(data)
}

// Size returns the length of the protected value in bytes.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return 0
	}
	return s.size
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done.
//
// Example:
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	secret := locked.Bytes()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Reveal opens the buffer, passes the plaintext to fn and wipes the plaintext
// once fn returns. fn must not retain the slice.
func (s *SecureBuffer) Reveal(fn func(plaintext []byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy makes the buffer unusable. It is idempotent; Open on a destroyed
// buffer returns an empty buffer.
//
// Call memguard.Purge() at process exit to wipe the enclave keys as well.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.size = 0
	s.destroyed = true
}
