package session

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealedVersion prefixes every sealed blob so the layout can change later.
const sealedVersion byte = 1

var (
	// ErrInvalidSealedData is returned for blobs that are truncated, use an
	// unknown layout or fail authentication.
	ErrInvalidSealedData = errors.New("session: invalid sealed data")
	// ErrEmptySecret is returned when a sealer is built without a secret.
	ErrEmptySecret = errors.New("session: empty device secret")
)

// KeyParams tunes the Argon2id derivation of the sealing key.
type KeyParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultKeyParams favours interactive start-up latency over brute force cost
// since the secret is device bound.
var DefaultKeyParams = KeyParams{
	Memory:      32 * 1024,
	Iterations:  2,
	Parallelism: 2,
	SaltLength:  16,
}

// Sealer encrypts records with XChaCha20-Poly1305 under a key derived from a
// device secret. Layout: version | salt | nonce | ciphertext.
type Sealer struct {
	secret []byte
	params KeyParams
}

// NewSealer returns a Sealer for secret. Zero params select DefaultKeyParams.
func NewSealer(secret string, params KeyParams) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if params == (KeyParams{}) {
		params = DefaultKeyParams
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultKeyParams.SaltLength
	}
	return &Sealer{secret: []byte(secret), params: params}, nil
}

func (s *Sealer) key(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, s.params.Iterations, s.params.Memory, s.params.Parallelism, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext with a fresh salt and nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealedVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte{sealedVersion}), nil
}

// Open decrypts a blob produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	saltLen := int(s.params.SaltLength)
	header := 1 + saltLen + chacha20poly1305.NonceSizeX
	if len(sealed) < header || sealed[0] != sealedVersion {
		return nil, ErrInvalidSealedData
	}
	salt := sealed[1 : 1+saltLen]
	nonce := sealed[1+saltLen : header]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, sealed[header:], []byte{sealedVersion})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSealedData, err)
	}
	return plaintext, nil
}

// SealedStorage encrypts values before handing them to the wrapped Storage.
type SealedStorage struct {
	inner  Storage
	sealer *Sealer
}

// NewSealedStorage wraps inner so everything written is sealed.
func NewSealedStorage(inner Storage, sealer *Sealer) *SealedStorage {
	return &SealedStorage{inner: inner, sealer: sealer}
}

func (s *SealedStorage) Read(name string) ([]byte, error) {
	data, err := s.inner.Read(name)
	if err != nil {
		return nil, err
	}
	return s.sealer.Open(data)
}

func (s *SealedStorage) Write(name string, data []byte) error {
	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return err
	}
	return s.inner.Write(name, sealed)
}

func (s *SealedStorage) Remove(name string) error {
	return s.inner.Remove(name)
}
