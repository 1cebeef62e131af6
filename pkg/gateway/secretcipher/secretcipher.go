package secretcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 64
	ivLength   = 16
	tagLength  = 16
	keyLength  = 32

	// scrypt cost parameters. These match the values the stored envelopes
	// were produced with; changing them breaks decryption of existing rows.
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

var (
	// ErrMalformedEnvelope is returned when the stored string does not have
	// the expected salt:iv:tag:ciphertext shape.
	ErrMalformedEnvelope = errors.New("malformed secret envelope")

	// ErrDecryptionFailed is returned when GCM tag verification fails. This
	// covers both a wrong master key and tampered ciphertext; callers cannot
	// and should not distinguish the two.
	ErrDecryptionFailed = errors.New("secret decryption failed")
)

// Cipher seals and opens provider secrets with a process-wide master key.
// Every Encrypt call derives a fresh key from a random salt, so identical
// plaintexts never produce identical envelopes.
type Cipher struct {
	masterKey string
}

// New creates a Cipher for the given master key. An empty key yields a
// cipher that reports itself unconfigured; callers must check Configured
// before use.
func New(masterKey string) *Cipher {
	return &Cipher{masterKey: masterKey}
}

// Configured reports whether a master key was provided.
func (c *Cipher) Configured() bool {
	return c.masterKey != ""
}

func (c *Cipher) deriveKey(salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(c.masterKey), salt, scryptN, scryptR, scryptP, keyLength)
}

// Encrypt seals plaintext into a single hex-encoded envelope string of the
// form salt:iv:tag:ciphertext, suitable for a single text column.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if !c.Configured() {
		return "", errors.New("master key is not configured")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", fmt.Errorf("failed to create gcm: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; the envelope stores them
	// as separate segments.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt opens an envelope produced by Encrypt. It never returns partial
// plaintext: any malformed segment yields ErrMalformedEnvelope, and any tag
// verification failure yields ErrDecryptionFailed.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	if !c.Configured() {
		return "", errors.New("master key is not configured")
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != 4 {
		return "", ErrMalformedEnvelope
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) != saltLength {
		return "", ErrMalformedEnvelope
	}

	iv, err := hex.DecodeString(parts[1])
	if err != nil || len(iv) != ivLength {
		return "", ErrMalformedEnvelope
	}

	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagLength {
		return "", ErrMalformedEnvelope
	}

	ciphertext, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", ErrMalformedEnvelope
	}

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", fmt.Errorf("failed to create gcm: %w", err)
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
