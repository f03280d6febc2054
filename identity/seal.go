package identity

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize = 32
	// salt | memory(4) | iterations(4) | parallelism(1)
	headerSize = saltSize + 4 + 4 + 1
)

// SealParams are the Argon2id parameters used to derive the sealing key.
type SealParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

func DefaultSealParams() SealParams {
	return SealParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

const (
	maxSealMemory     = 1 << 20 // KiB
	maxSealIterations = 64
)

var ErrSealParams = errors.New("invalid seal parameters")

func (p SealParams) validate() error {
	switch {
	case p.Parallelism == 0:
		return fmt.Errorf("%w: zero parallelism", ErrSealParams)
	case p.Iterations == 0 || p.Iterations > maxSealIterations:
		return fmt.Errorf("%w: %d iterations", ErrSealParams, p.Iterations)
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory > maxSealMemory:
		return fmt.Errorf("%w: %d KiB memory", ErrSealParams, p.Memory)
	}
	return nil
}

func deriveKey(password, salt []byte, params SealParams) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// seal encrypts data with XChaCha20-Poly1305 under a password derived key.
// Output: salt | params | nonce | ciphertext.
func seal(data, password []byte, params SealParams) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, headerSize+len(nonce)+len(data)+aead.Overhead())
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

func unseal(sealed, password []byte) ([]byte, error) {
	if need := headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead; len(sealed) < need {
		return nil, fmt.Errorf("sealed data too short: %d bytes, need at least %d", len(sealed), need)
	}
	salt := sealed[:saltSize]
	params := SealParams{
		Memory:      binary.LittleEndian.Uint32(sealed[saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[saltSize+4:]),
		Parallelism: sealed[saltSize+8],
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	nonce := sealed[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[headerSize+chacha20poly1305.NonceSizeX:]

	key := deriveKey(password, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
