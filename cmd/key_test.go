package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
)

func TestKeyGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer.key")

	var out bytes.Buffer
	keyCmd := NewKeyCmd()
	keyCmd.SetOut(&out)
	keyCmd.SetArgs([]string{"generate", "--out", path, "--crypt", "secp256"})
	require.NoError(t, keyCmd.Execute())

	cryptType, priKey, pubKey, err := tpcrt.LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, tpcrtypes.CryptType_Secp256, cryptType)
	assert.NotEmpty(t, priKey)
	assert.NotEmpty(t, pubKey)
	assert.Contains(t, out.String(), path)
}

func TestKeyGenerateUnknownCrypt(t *testing.T) {
	keyCmd := NewKeyCmd()
	keyCmd.SetOut(&bytes.Buffer{})
	keyCmd.SetErr(&bytes.Buffer{})
	keyCmd.SetArgs([]string{"generate", "--out", filepath.Join(t.TempDir(), "k"), "--crypt", "rsa"})
	assert.Error(t, keyCmd.Execute())
}
