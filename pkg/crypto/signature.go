package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PubKeySize is the length of a compressed secp256k1 public key.
const PubKeySize = 33

// SignatureSize is the length of a serialized Schnorr signature.
const SignatureSize = 64

// Verifier is the signature-scheme boundary used by redeemers. The message
// is the raw signing payload; the scheme decides how to digest it.
type Verifier interface {
	Verify(publicKey, message, signature []byte) bool
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a Schnorr signature over BLAKE3(message).
func (pk *PrivateKey) Sign(message []byte) ([]byte, error) {
	digest := Hash(message)
	sig, err := schnorr.Sign(pk.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature checks a Schnorr signature over BLAKE3(message) against
// a compressed public key. Returns false on any error.
func VerifySignature(publicKey, message, signature []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	digest := Hash(message)
	return sig.Verify(digest[:], pubKey)
}

// SchnorrVerifier implements Verifier with Schnorr/secp256k1.
type SchnorrVerifier struct{}

// Verify checks a Schnorr signature over BLAKE3(message).
func (SchnorrVerifier) Verify(publicKey, message, signature []byte) bool {
	return VerifySignature(publicKey, message, signature)
}
