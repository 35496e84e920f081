package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

func TestLedgerInitGenesis(t *testing.T) {
	log, _ := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	conf := &configuration.LedgerConfiguration{Backend: configuration.BackendType_LevelDB, Path: t.TempDir()}

	l, err := NewLedgerFromConfig(log, "unit", conf)
	require.NoError(t, err)

	alloc := []*tptx.Mutation{{Resource: "alice/balance", Value: []byte{0x10}}}
	genesis, err := l.InitGenesis("unit", 1, alloc)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), genesis.Head.Height)

	root, err := l.StateStore().Root()
	require.NoError(t, err)
	assert.Equal(t, root, genesis.Head.StateRoot)
	require.NoError(t, l.Close())

	reopened, err := NewLedgerFromConfig(log, "unit", conf)
	require.NoError(t, err)
	defer reopened.Close()

	again, err := reopened.InitGenesis("unit", 99, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), again.Head.TimeStamp)
	assert.Equal(t, genesis.Head.StateRoot, again.Head.StateRoot)
}
