package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	if len(key.PublicKey()) != PubKeySize {
		t.Errorf("PublicKey() length = %d, want %d", len(key.PublicKey()), PubKeySize)
	}
	if len(key.Serialize()) != 32 {
		t.Errorf("Serialize() length = %d, want 32", len(key.Serialize()))
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	original, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	restored, err := PrivateKeyFromBytes(original.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if !bytes.Equal(original.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}
}

func TestPrivateKeyFromBytes_InvalidLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"too short", make([]byte, 16)},
		{"too long", make([]byte, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PrivateKeyFromBytes(tt.data); err == nil {
				t.Error("expected error for invalid key length")
			}
		})
	}
}

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	msg := []byte("an arbitrary length transaction encoding")
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Errorf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !VerifySignature(key.PublicKey(), msg, sig) {
		t.Error("signature should verify against the correct key and message")
	}
}

func TestVerify_Rejects(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()
	msg := []byte("message")
	sig, err := key1.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	corrupted := append([]byte(nil), sig...)
	corrupted[0] ^= 0x01

	tests := []struct {
		name string
		pub  []byte
		msg  []byte
		sig  []byte
	}{
		{"wrong message", key1.PublicKey(), []byte("different"), sig},
		{"wrong key", key2.PublicKey(), msg, sig},
		{"corrupted signature", key1.PublicKey(), msg, corrupted},
		{"empty signature", key1.PublicKey(), msg, nil},
		{"short signature", key1.PublicKey(), msg, make([]byte, 10)},
		{"garbage public key", []byte("bad"), msg, sig},
		{"empty public key", nil, msg, sig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.pub, tt.msg, tt.sig) {
				t.Error("verification should fail")
			}
		})
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	key.Zero()
	for _, b := range key.Serialize() {
		if b != 0 {
			t.Fatal("Serialize() should return zeros after Zero()")
		}
	}
}

func TestSchnorrVerifier_Interface(t *testing.T) {
	var v Verifier = SchnorrVerifier{}

	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	msg := []byte("interface test")
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !v.Verify(key.PublicKey(), msg, sig) {
		t.Error("SchnorrVerifier should verify valid signature")
	}
}
