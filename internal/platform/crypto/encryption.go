package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyLength      = errors.New("DATA_ENCRYPTION_KEY must decode to 32 bytes")
	ErrSealedTooShort = errors.New("sealed data too short")
	ErrNotConfigured  = errors.New("encryption key not configured")
)

// Service seals files at rest with XChaCha20-Poly1305. Sealed output is the
// random nonce followed by the ciphertext. Encrypt on a Service built from an
// empty key returns the data unchanged.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return &Service{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != chacha20poly1305.KeySize {
		return nil, ErrKeyLength
	}
	aead, err := chacha20poly1305.NewX(decoded)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

// Encrypt seals plain. additional binds the output to a context such as a
// file name, so a sealed file moved to another name fails to open.
func (s *Service) Encrypt(plain, additional []byte) ([]byte, error) {
	if !s.Configured() {
		return plain, nil
	}
	size := s.aead.NonceSize()
	out := make([]byte, size, size+len(plain)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out[:size], plain, additional), nil
}

func (s *Service) Decrypt(sealed, additional []byte) ([]byte, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	size := s.aead.NonceSize()
	if len(sealed) < size+s.aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	return s.aead.Open(nil, sealed[:size], sealed[size:], additional)
}

// decodeKey takes the first of hex, padded base64 or raw base64 that yields a
// full key, and otherwise the raw bytes.
func decodeKey(raw string) []byte {
	decoders := []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
	}
	for _, decode := range decoders {
		if decoded, err := decode(raw); err == nil && len(decoded) == chacha20poly1305.KeySize {
			return decoded
		}
	}
	return []byte(raw)
}
