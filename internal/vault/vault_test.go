package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return bytes.Repeat([]byte("k"), KeySize)
}

func TestNew_RejectsBadKeyLength(t *testing.T) {
	tests := []struct {
		name   string
		keyLen int
	}{
		{"empty", 0},
		{"short", 31},
		{"long", 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(bytes.Repeat([]byte("x"), tt.keyLen))
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration for %d-byte key, got %v", tt.keyLen, err)
			}
		})
	}
}

func TestZeroValueVault_FailsEveryCall(t *testing.T) {
	var v Vault

	if _, err := v.Encrypt("secret"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Encrypt on zero vault: expected ErrConfiguration, got %v", err)
	}
	if _, err := v.Decrypt("00:00"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Decrypt on zero vault: expected ErrConfiguration, got %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}

	plaintexts := []string{
		"",
		"a",
		"refresh-token-value",
		strings.Repeat("long-token-", 100),
		"unicode: éè€",
	}

	for _, p := range plaintexts {
		enc, err := v.Encrypt(p)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", p, err)
		}

		dec, err := v.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt of %q: %v", p, err)
		}
		if dec != p {
			t.Errorf("round trip of %q returned %q", p, dec)
		}
	}
}

func TestEncrypt_IsProbabilistic(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}

	a, err := v.Encrypt("same plaintext")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Encrypt("same plaintext")
	if err != nil {
		t.Fatal(err)
	}

	if a == b {
		t.Error("two encryptions of identical plaintext produced identical ciphertext")
	}
}

func TestEncrypt_OutputFormat(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}

	enc, err := v.Encrypt("value")
	if err != nil {
		t.Fatal(err)
	}

	iv, data, ok := strings.Cut(enc, ":")
	if !ok {
		t.Fatalf("expected iv:ciphertext format, got %q", enc)
	}
	if len(iv) != 32 {
		t.Errorf("expected 32 hex chars of iv, got %d", len(iv))
	}
	if len(data) == 0 || len(data)%32 != 0 {
		t.Errorf("ciphertext hex length %d is not a multiple of the block size", len(data))
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "deadbeef"},
		{"bad iv hex", "zz:deadbeef"},
		{"short iv", "00ff:deadbeef"},
		{"bad data hex", strings.Repeat("00", 16) + ":zz"},
		{"empty data", strings.Repeat("00", 16) + ":"},
		{"unaligned data", strings.Repeat("00", 16) + ":00ff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Decrypt(tt.input); !errors.Is(err, ErrDecryption) {
				t.Errorf("Decrypt(%q): expected ErrDecryption, got %v", tt.input, err)
			}
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	v1, err := New(bytes.Repeat([]byte("a"), KeySize))
	if err != nil {
		t.Fatal(err)
	}
	v2, err := New(bytes.Repeat([]byte("b"), KeySize))
	if err != nil {
		t.Fatal(err)
	}

	enc, err := v1.Encrypt("secret-token")
	if err != nil {
		t.Fatal(err)
	}

	dec, err := v2.Decrypt(enc)
	if err == nil && dec == "secret-token" {
		t.Fatal("decryption with the wrong key recovered the plaintext")
	}
	// Wrong-key decryption almost always fails padding validation. In the
	// rare case the garbage plaintext has valid padding the error is nil,
	// but the recovered value must still differ.
	if err != nil && !errors.Is(err, ErrDecryption) {
		t.Errorf("expected ErrDecryption, got %v", err)
	}
}
