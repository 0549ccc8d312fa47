package archive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// hkdfInfo and hkdfSalt bind the derived key to this package's purpose and
// keep the derivation independent of pkg/security's cluster-root-key
// derivation, even when both happen to be seeded from the same secret.
const (
	hkdfInfo          = "coordinator-archive-key-v1"
	hkdfSalt          = "coordinator-archive-salt-v1"
	pbkdf2Iterations  = 600000
	nonceSize         = 12
	tagSize           = 16
	minContainerBytes = nonceSize + tagSize
)

// Sealer encrypts and decrypts archive containers with AES-256-GCM.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives the container key from a high-entropy secret (a
// generated cluster secret or random key material) via HKDF-SHA256 with a
// fixed salt.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("archive secret cannot be empty")
	}
	return newSealer(deriveHKDF(secret))
}

// NewSealerFromPassword derives the container key from a password-grade
// secret via PBKDF2-HMAC-SHA256, at a higher work factor than HKDF since a
// password carries much less entropy than a generated secret.
func NewSealerFromPassword(password string) (*Sealer, error) {
	if password == "" {
		return nil, fmt.Errorf("archive password cannot be empty")
	}
	key := pbkdf2.Key([]byte(password), []byte(hkdfSalt), pbkdf2Iterations, 32, sha256.New)
	return newSealer(key)
}

func newSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	if gcm.NonceSize() != nonceSize || gcm.Overhead() != tagSize {
		return nil, fmt.Errorf("unexpected AEAD parameters: nonce=%d overhead=%d", gcm.NonceSize(), gcm.Overhead())
	}
	return &Sealer{gcm: gcm}, nil
}

func deriveHKDF(secret []byte) []byte {
	reader := hkdf.New(sha256.New, secret, []byte(hkdfSalt), []byte(hkdfInfo))
	key := make([]byte, 32)
	io.ReadFull(reader, key)
	return key
}

// Seal encrypts plaintext into the container format
// IV(12) || ciphertext || auth_tag(16). The tag is produced as part of a
// single Seal call, so it is always present before the container is
// considered complete.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a container produced by Seal. It rejects any input shorter
// than IV + tag outright, since such input cannot hold a valid ciphertext
// regardless of what its bytes contain.
func (s *Sealer) Open(container []byte) ([]byte, error) {
	if len(container) < minContainerBytes {
		return nil, fmt.Errorf("archive container too short: %d bytes, need at least %d", len(container), minContainerBytes)
	}
	nonce, ciphertext := container[:nonceSize], container[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt archive container: %w", err)
	}
	return plaintext, nil
}

// SealToWriter encrypts the full contents of r and writes the resulting
// container to w. AES-GCM authenticates the whole message as one unit, so
// the plaintext is read to completion before anything is written; a caller
// streaming a large backup should buffer accordingly upstream.
func SealToWriter(s *Sealer, w io.Writer, r io.Reader) error {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive plaintext: %w", err)
	}
	container, err := s.Seal(plaintext)
	if err != nil {
		return err
	}
	if _, err := w.Write(container); err != nil {
		return fmt.Errorf("failed to write archive container: %w", err)
	}
	return nil
}

// OpenFromReader reads a full container from r and decrypts it.
func OpenFromReader(s *Sealer, r io.Reader) ([]byte, error) {
	container, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive container: %w", err)
	}
	return s.Open(container)
}
