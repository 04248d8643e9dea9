// Package vault provides symmetric encryption for OAuth tokens at rest.
//
// Tokens are encrypted with AES-256-CBC using a fresh random IV per call,
// so encrypting the same plaintext twice never produces the same output.
// The wire format is "iv_hex:ciphertext_hex", which keeps stored values
// printable and lets the IV travel with the ciphertext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the required encryption key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrConfiguration indicates the vault has no usable key. The key is
	// validated at construction; a vault built from a bad key fails every
	// call until the configuration is corrected.
	ErrConfiguration = errors.New("encryption key is not configured")

	// ErrDecryption indicates the ciphertext could not be read with the
	// current key: malformed format, corrupted data, or a key rotation
	// without re-encryption. Typically resolved by re-authenticating.
	ErrDecryption = errors.New("unable to decrypt stored credential")
)

// Vault encrypts and decrypts short secrets with a fixed AES-256 key.
// The zero value is unconfigured and fails every call with ErrConfiguration.
type Vault struct {
	key []byte
}

// New creates a Vault from a 32-byte key.
// The key length is checked here so misconfiguration surfaces at startup,
// not on the first import request. Keys are never truncated or padded.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrConfiguration, KeySize, len(key))
	}
	v := &Vault{key: make([]byte, KeySize)}
	copy(v.key, key)
	return v, nil
}

// Encrypt encrypts plaintext and returns "iv_hex:ciphertext_hex".
// A fresh 16-byte IV is generated per call.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if len(v.key) != KeySize {
		return "", ErrConfiguration
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails with an ErrDecryption-wrapped error if
// the value is malformed or was encrypted under a different key.
func (v *Vault) Decrypt(value string) (string, error) {
	if len(v.key) != KeySize {
		return "", ErrConfiguration
	}

	ivHex, dataHex, ok := strings.Cut(value, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing iv separator", ErrDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: invalid iv", ErrDecryption)
	}

	ciphertext, err := hex.DecodeString(dataHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext", ErrDecryption)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(unpadded), nil
}

// pad applies PKCS#7 padding up to the AES block size.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad strips PKCS#7 padding. A bad padding byte almost always means the
// ciphertext was produced under a different key.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
