package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

type fakeDirectory struct {
	records map[string]*ProjectRecord
	err     error
}

func (d *fakeDirectory) FindByGatewayKey(_ context.Context, key string) (*ProjectRecord, error) {
	if d.err != nil {
		return nil, d.err
	}

	record, ok := d.records[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return record, nil
}

func newTestDirectory(t *testing.T, cipher *secretcipher.Cipher, plainSecret string) (*fakeDirectory, *ProjectRecord) {
	t.Helper()

	encrypted, err := cipher.Encrypt(plainSecret)
	require.NoError(t, err)

	record := &ProjectRecord{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		EncryptedSecret: &encrypted,
		MonthlyBudget:   100,
		RateLimits:      []RateLimit{{Unit: "1min", Limit: 10}},
	}

	return &fakeDirectory{records: map[string]*ProjectRecord{"ag-valid": record}}, record
}

func TestAuthenticateSuccess(t *testing.T) {
	cipher := secretcipher.New("master-key")
	dir, record := newTestDirectory(t, cipher, "sk-real-provider-key")
	auth := NewAuthenticator(dir, cipher)

	authCtx, rej := auth.Authenticate(context.Background(), "Bearer ag-valid")
	require.Nil(t, rej)

	assert.Equal(t, record.ID, authCtx.ProjectID)
	assert.Equal(t, record.OwnerID, authCtx.OwnerID)
	assert.Equal(t, "sk-real-provider-key", authCtx.Secret)
	assert.Equal(t, float64(100), authCtx.MonthlyBudget)
	assert.Equal(t, record.RateLimits, authCtx.rateLimits)
}

func TestAuthenticateMissingOrMalformedHeader(t *testing.T) {
	cipher := secretcipher.New("master-key")
	dir, _ := newTestDirectory(t, cipher, "sk-real-provider-key")
	auth := NewAuthenticator(dir, cipher)

	for _, header := range []string{
		"",
		"ag-valid",              // no Bearer scheme
		"Bearer ",               // empty token
		"Bearer sk-raw-key",     // provider key instead of gateway key
		"Basic ag-valid",        // wrong scheme
		"bearer ag-valid",       // scheme is case-sensitive
	} {
		authCtx, rej := auth.Authenticate(context.Background(), header)
		require.NotNil(t, rej, "header %q should be rejected", header)
		assert.Nil(t, authCtx)
		assert.Equal(t, ReasonMissingOrInvalidKey, rej.Reason)
		assert.Equal(t, http.StatusUnauthorized, rej.Status)
		assert.Equal(t, "Missing or invalid gateway API key.", rej.Message)
	}
}

func TestAuthenticateUnknownKey(t *testing.T) {
	cipher := secretcipher.New("master-key")
	dir, _ := newTestDirectory(t, cipher, "sk-real-provider-key")
	auth := NewAuthenticator(dir, cipher)

	authCtx, rej := auth.Authenticate(context.Background(), "Bearer ag-unknown")
	require.NotNil(t, rej)
	assert.Nil(t, authCtx)
	assert.Equal(t, ReasonKeyNotFound, rej.Reason)
	assert.Equal(t, http.StatusUnauthorized, rej.Status)
}

func TestAuthenticateDirectoryFailure(t *testing.T) {
	cipher := secretcipher.New("master-key")
	dir := &fakeDirectory{err: errors.New("connection refused")}
	auth := NewAuthenticator(dir, cipher)

	_, rej := auth.Authenticate(context.Background(), "Bearer ag-valid")
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInternal, rej.Reason)
	assert.Equal(t, http.StatusInternalServerError, rej.Status)
}

func TestAuthenticateSecretNotConfigured(t *testing.T) {
	cipher := secretcipher.New("master-key")

	empty := ""
	dir := &fakeDirectory{records: map[string]*ProjectRecord{
		"ag-nil-secret":   {ID: uuid.New()},
		"ag-empty-secret": {ID: uuid.New(), EncryptedSecret: &empty},
	}}
	auth := NewAuthenticator(dir, cipher)

	for _, key := range []string{"ag-nil-secret", "ag-empty-secret"} {
		_, rej := auth.Authenticate(context.Background(), "Bearer "+key)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonSecretNotConfigured, rej.Reason)
		assert.Equal(t, http.StatusUnauthorized, rej.Status)
	}
}

func TestAuthenticateUnconfiguredCipher(t *testing.T) {
	// A record exists and holds a secret, but the server has no master key.
	// This is a deployment fault and must surface as a 500, not a 401.
	goodCipher := secretcipher.New("master-key")
	dir, _ := newTestDirectory(t, goodCipher, "sk-real-provider-key")

	auth := NewAuthenticator(dir, secretcipher.New(""))

	_, rej := auth.Authenticate(context.Background(), "Bearer ag-valid")
	require.NotNil(t, rej)
	assert.Equal(t, ReasonServerMisconfigured, rej.Reason)
	assert.Equal(t, http.StatusInternalServerError, rej.Status)
	assert.Equal(t, "Internal Server Configuration Error", rej.Message)
}

func TestAuthenticateDecryptionFailure(t *testing.T) {
	// Encrypted under one master key, served with another.
	oldCipher := secretcipher.New("old-master-key")
	dir, _ := newTestDirectory(t, oldCipher, "sk-real-provider-key")

	auth := NewAuthenticator(dir, secretcipher.New("new-master-key"))

	_, rej := auth.Authenticate(context.Background(), "Bearer ag-valid")
	require.NotNil(t, rej)
	assert.Equal(t, ReasonSecretDecryption, rej.Reason)
	assert.Equal(t, http.StatusInternalServerError, rej.Status)
	assert.Equal(t, "Internal Security Error", rej.Message)
	assert.ErrorIs(t, rej, secretcipher.ErrDecryptionFailed)
}
