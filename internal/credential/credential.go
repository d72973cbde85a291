// Package credential guards secret values (API keys, forge tokens) in
// locked, wiped memory between being read from the environment and
// being used, instead of carrying them as plain Go strings that linger
// in heap-visible memory for the process lifetime.
package credential

import (
	"errors"

	"github.com/awnumar/memguard"
)

// ErrEmpty is returned when Guard is called with an empty value; an
// absent credential is a valid non-error state (spec §5) and callers
// should check for it before calling Guard, not treat this as a
// pipeline failure.
var ErrEmpty = errors.New("credential: value is empty")

// Secret wraps a memguard-locked buffer holding one credential value.
// Callers obtain the plaintext only for the duration of a reveal via
// Use, which minimizes the window the secret spends in an
// ordinarily-swappable Go string.
type Secret struct {
	enclave *memguard.Enclave
}

// Guard copies value into a memguard enclave and returns a Secret
// wrapping it. The caller's original string is not wiped (Go strings
// are immutable and cannot be zeroed in place) but the long-lived copy
// consulted by the rest of the process lives in locked memory.
func Guard(value string) (*Secret, error) {
	if value == "" {
		return nil, ErrEmpty
	}
	buf := memguard.NewBufferFromBytes([]byte(value))
	return &Secret{enclave: buf.Seal()}, nil
}

// Use decrypts the secret for the duration of fn and destroys the
// decrypted copy immediately afterward, regardless of whether fn
// returns an error.
func (s *Secret) Use(fn func(plaintext string) error) error {
	if s == nil || s.enclave == nil {
		return errors.New("credential: secret is nil")
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(string(buf.Bytes()))
}
