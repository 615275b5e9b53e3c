package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// Sealed layout: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext.
const sealHeaderSize = SaltSize + 4 + 4 + 1

// ErrWrongPassword is returned when sealed data does not open.
var ErrWrongPassword = errors.New("wrong password or corrupted keystore")

// KDFParams are the Argon2id cost parameters stored with each sealed blob.
type KDFParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams returns the parameters used for new keystores.
func DefaultKDFParams() KDFParams {
	return KDFParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

func (p KDFParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Seal encrypts data under password with Argon2id and XChaCha20-Poly1305.
func Seal(data, password []byte, params KDFParams) ([]byte, error) {
	out := make([]byte, SaltSize, sealHeaderSize+chacha20poly1305.NonceSizeX+len(data)+chacha20poly1305.Overhead)
	if _, err := rand.Read(out[:SaltSize]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)

	key := params.key(password, out[:SaltSize])
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	header := append([]byte(nil), out...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, header), nil
}

// Open reverses Seal. The header is authenticated, so tampering with the
// stored cost parameters fails like a wrong password.
func Open(sealed, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	if len(sealed) < sealHeaderSize+nonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(sealed))
	}

	header := sealed[:sealHeaderSize]
	params := KDFParams{
		Memory:      binary.LittleEndian.Uint32(header[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(header[SaltSize+4:]),
		Parallelism: header[SaltSize+8],
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("invalid kdf parameters")
	}

	key := params.key(password, header[:SaltSize])
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := sealed[sealHeaderSize : sealHeaderSize+nonceSize]
	plain, err := aead.Open(nil, nonce, sealed[sealHeaderSize+nonceSize:], header)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plain, nil
}
