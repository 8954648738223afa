package usecase

import "testing"

func TestTokenCipherRoundTrip(t *testing.T) {
	cipher, err := NewTokenCipher("unit-test-key")
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}

	plaintext := "1//0refresh-token-value"
	sealed, err := cipher.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	opened, err := cipher.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if opened != plaintext {
		t.Errorf("round trip mismatch: %q", opened)
	}
}

func TestTokenCipherNonDeterministicNonce(t *testing.T) {
	cipher, _ := NewTokenCipher("unit-test-key")

	a, _ := cipher.Encrypt("same input")
	b, _ := cipher.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same value must differ")
	}
}

func TestTokenCipherWrongKeyFails(t *testing.T) {
	alice, _ := NewTokenCipher("key-a")
	bob, _ := NewTokenCipher("key-b")

	sealed, _ := alice.Encrypt("secret")
	if _, err := bob.Decrypt(sealed); err == nil {
		t.Error("decrypting with the wrong key must fail")
	}
}

func TestTokenCipherRejectsGarbage(t *testing.T) {
	cipher, _ := NewTokenCipher("unit-test-key")

	if _, err := cipher.Decrypt("not base64!!"); err == nil {
		t.Error("invalid encoding must fail")
	}
	if _, err := cipher.Decrypt("c2hvcnQ="); err == nil {
		t.Error("too-short ciphertext must fail")
	}
}

func TestTokenCipherRequiresKey(t *testing.T) {
	if _, err := NewTokenCipher(""); err == nil {
		t.Error("empty key must be rejected")
	}
}
