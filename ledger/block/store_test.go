package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/blockproducer/chain/types"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/backend"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

func newTestBlockStore(t *testing.T) BlockStore {
	log, _ := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	b, err := backend.NewBackend(backend.BackendType_Memdb, log, "", "block", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return NewBlockStore(log, backend.NewBackendPrefixed([]byte("b/"), b))
}

func newTestTx(t *testing.T, nonce uint64) *tptx.Transaction {
	log, _ := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	cs, err := tpcrt.CreateCryptService(log, tpcrtypes.CryptType_Ed25519)
	require.NoError(t, err)
	pri, _, err := cs.GeneratePriPubKey()
	require.NoError(t, err)

	tx, err := tptx.NewTransaction(cs, tpcrtypes.NetworkType_Testnet, pri,
		&tptx.TransactionHead{ChainID: []byte("unit"), Category: tptx.TransactionCategory_Native, Nonce: nonce, Fee: 1},
		&tptx.TransactionData{Contract: tpcrtypes.CreateNativeContractAddress(tpcrtypes.NetworkType_Testnet, 1), Method: "Transfer"})
	require.NoError(t, err)

	return tx
}

func TestBlockStoreCommitAndQuery(t *testing.T) {
	store := newTestBlockStore(t)

	_, err := store.GetLatestBlock()
	assert.ErrorIs(t, err, ErrBlockNotFound)

	genesis, err := types.NewGenesisBlock("unit", types.BLOCK_VER, 1, []byte{0x01})
	require.NoError(t, err)
	require.NoError(t, store.CommitBlock(genesis, nil))

	genesisHash, err := genesis.HashBytes()
	require.NoError(t, err)

	tx := newTestTx(t, 1)
	txID := tx.MustTxID()
	block1 := &types.Block{
		Head: &types.BlockHead{
			ChainID:         []byte("unit"),
			Version:         types.BLOCK_VER,
			Height:          1,
			ParentBlockHash: genesisHash,
			TimeStamp:       2,
			TxCount:         1,
		},
		Transactions: []*tptx.Transaction{tx},
	}
	result := &types.BlockResult{TxResults: []*tptx.TransactionResult{{TxID: txID, Status: tptx.ResultStatus_Success, FeeCharge: 1}}}
	require.NoError(t, store.CommitBlock(block1, result))

	latest, err := store.GetLatestBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Head.Height)
	require.Len(t, latest.Transactions, 1)
	assert.Equal(t, txID, latest.Transactions[0].MustTxID())

	byHash, err := store.GetBlockByHash(genesisHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), byHash.Head.Height)

	exists, err := store.TxIDExists(txID)
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := store.GetTransactionByID(txID)
	require.NoError(t, err)
	assert.Equal(t, txID, stored.MustTxID())

	byTx, err := store.GetBlockByTxID(txID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), byTx.Head.Height)

	storedResult, err := store.GetBlockResult(1)
	require.NoError(t, err)
	require.Len(t, storedResult.TxResults, 1)
	assert.Equal(t, tptx.ResultStatus_Success, storedResult.TxResults[0].Status)
	assert.Equal(t, uint64(1), storedResult.Height)

	_, err = store.GetTransactionByID("missing")
	assert.ErrorIs(t, err, ErrTxNotFound)
	_, err = store.GetBlockByNumber(5)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockStoreRejectsGaps(t *testing.T) {
	store := newTestBlockStore(t)

	err := store.CommitBlock(&types.Block{Head: &types.BlockHead{Height: 1}}, nil)
	assert.ErrorIs(t, err, ErrBlockHeightMismatch)

	genesis, err := types.NewGenesisBlock("unit", types.BLOCK_VER, 1, nil)
	require.NoError(t, err)
	require.NoError(t, store.CommitBlock(genesis, nil))

	err = store.CommitBlock(&types.Block{Head: &types.BlockHead{Height: 3}}, nil)
	assert.ErrorIs(t, err, ErrBlockHeightMismatch)

	err = store.CommitBlock(&types.Block{Head: &types.BlockHead{Height: 1}, Transactions: []*tptx.Transaction{newTestTx(t, 1)}}, nil)
	assert.ErrorIs(t, err, ErrBlockResultMismatch)
}
