package project

import (
	"testing"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasSecret(t *testing.T) {
	envelope := "aa:bb:cc:dd"
	empty := ""

	assert.True(t, (&Project{EncryptedSecret: &envelope}).HasSecret())
	assert.False(t, (&Project{EncryptedSecret: &empty}).HasSecret())
	assert.False(t, (&Project{}).HasSecret())
}

func TestProjectJSONNeverExposesEnvelope(t *testing.T) {
	envelope := "aa:bb:cc:dd"
	p := withSecretFlag(&Project{
		ID:              uuid.New(),
		Name:            "billing",
		EncryptedSecret: &envelope,
	})

	buf, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf, &out))

	assert.Equal(t, true, out["has_secret"])
	assert.NotContains(t, string(buf), envelope)
	assert.NotContains(t, out, "encrypted_secret")
}

func TestWithSecretFlagUnconfigured(t *testing.T) {
	p := withSecretFlag(&Project{Name: "billing"})
	assert.False(t, p.SecretConfigured)
}
