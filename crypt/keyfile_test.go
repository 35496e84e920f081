package crypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
)

func TestKeyFileRoundTrip(t *testing.T) {
	testLog, _ := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	cs, err := CreateCryptService(testLog, tpcrtypes.CryptType_Secp256)
	require.NoError(t, err)
	pri, pub, err := cs.GeneratePriPubKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "producer.key")
	require.NoError(t, SaveKeyFile(path, cs.CryptType(), pri, pub))

	ct, loadedPri, loadedPub, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, tpcrtypes.CryptType_Secp256, ct)
	assert.Equal(t, pri, loadedPri)
	assert.Equal(t, pub, loadedPub)
}

func TestLoadKeyFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.key")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, _, _, err := LoadKeyFile(path)
	assert.Error(t, err)

	_, _, _, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing.key"))
	assert.Error(t, err)
}
