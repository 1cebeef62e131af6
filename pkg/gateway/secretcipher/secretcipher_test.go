package secretcipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New("test-master-key")

	plaintexts := []string{
		"sk-proj-abcdef1234567890",
		"",
		"secret:with:colons",
		"unicode-ключ-秘密",
	}

	for _, plaintext := range plaintexts {
		envelope, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := c.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEnvelopeFormat(t *testing.T) {
	c := New("test-master-key")

	envelope, err := c.Encrypt("sk-test")
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	require.Len(t, parts, 4)

	// salt, iv and tag segments have fixed hex lengths
	assert.Len(t, parts[0], saltLength*2)
	assert.Len(t, parts[1], ivLength*2)
	assert.Len(t, parts[2], tagLength*2)
}

func TestEncryptUniqueness(t *testing.T) {
	c := New("test-master-key")

	first, err := c.Encrypt("sk-test")
	require.NoError(t, err)

	second, err := c.Encrypt("sk-test")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptWrongKey(t *testing.T) {
	envelope, err := New("key-one").Encrypt("sk-test")
	require.NoError(t, err)

	_, err = New("key-two").Decrypt(envelope)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	c := New("test-master-key")

	envelope, err := c.Encrypt("sk-test")
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	for i := range parts {
		tampered := make([]string, len(parts))
		copy(tampered, parts)

		// Flip a single hex character in this segment.
		seg := []byte(tampered[i])
		if seg[0] == 'a' {
			seg[0] = 'b'
		} else {
			seg[0] = 'a'
		}
		tampered[i] = string(seg)

		_, err := c.Decrypt(strings.Join(tampered, ":"))
		assert.Error(t, err, "tampering segment %d must fail decryption", i)
	}
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	c := New("test-master-key")

	cases := []string{
		"",
		"onlyonepart",
		"aa:bb:cc",
		"aa:bb:cc:dd:ee",
		"zz:bb:cc:dd",
		"not-hex:also-not:nope:nah",
	}

	for _, envelope := range cases {
		_, err := c.Decrypt(envelope)
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "envelope %q", envelope)
	}
}

func TestUnconfiguredCipher(t *testing.T) {
	c := New("")
	assert.False(t, c.Configured())

	_, err := c.Encrypt("sk-test")
	assert.Error(t, err)

	_, err = c.Decrypt("aa:bb:cc:dd")
	assert.Error(t, err)
}
