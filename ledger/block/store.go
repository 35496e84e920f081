package block

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TopiaNetwork/blockproducer/chain/types"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/ledger/backend"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "blockStore"

var (
	prefixBlock       = []byte("h/")
	prefixBlockResult = []byte("r/")
	prefixHashIndex   = []byte("x/")
	prefixTxIndex     = []byte("t/")
	keyLatest         = []byte("latest")
)

var (
	ErrBlockNotFound       = errors.New("block not found")
	ErrTxNotFound          = errors.New("transaction not found")
	ErrBlockHeightMismatch = errors.New("block height doesn't extend the latest block")
	ErrBlockResultMismatch = errors.New("block result doesn't match block transactions")
)

type BlockStore interface {
	// CommitBlock persists block and its results; the block must be the successor of the latest one.
	CommitBlock(block *types.Block, result *types.BlockResult) error

	// GetLatestBlock returns ErrBlockNotFound on an empty store.
	GetLatestBlock() (*types.Block, error)

	GetBlockByNumber(blockNum types.BlockNum) (*types.Block, error)

	GetBlockByHash(blockHash []byte) (*types.Block, error)

	GetBlockResult(blockNum types.BlockNum) (*types.BlockResult, error)

	TxIDExists(txID tptx.TxID) (bool, error)

	GetTransactionByID(txID tptx.TxID) (*tptx.Transaction, error)

	GetBlockByTxID(txID tptx.TxID) (*types.Block, error)
}

type blockStore struct {
	log     tplog.Logger
	backend backend.Backend
	lock    sync.Mutex
}

func NewBlockStore(log tplog.Logger, backendDB backend.Backend) BlockStore {
	return &blockStore{
		log:     tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		backend: backendDB,
	}
}

func heightKey(prefix []byte, height uint64) []byte {
	return append(tpcmm.BytesCopy(prefix), tpcmm.Uint64ToBytes(height)...)
}

func indexKey(prefix []byte, id []byte) []byte {
	return append(tpcmm.BytesCopy(prefix), id...)
}

func (store *blockStore) latestHeight() (uint64, bool, error) {
	val, err := store.backend.Get(keyLatest)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return tpcmm.BytesToUint64(val), true, nil
}

func (store *blockStore) CommitBlock(block *types.Block, result *types.BlockResult) error {
	if block == nil || block.Head == nil {
		return errors.New("nil block")
	}
	if result == nil {
		result = &types.BlockResult{}
	}
	if len(result.TxResults) != len(block.Transactions) {
		return fmt.Errorf("%w: %d results for %d txs", ErrBlockResultMismatch, len(result.TxResults), len(block.Transactions))
	}

	store.lock.Lock()
	defer store.lock.Unlock()

	latest, ok, err := store.latestHeight()
	if err != nil {
		return err
	}
	expected := uint64(0)
	if ok {
		expected = latest + 1
	}
	if block.Head.Height != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrBlockHeightMismatch, expected, block.Head.Height)
	}

	blockHash, err := block.HashBytes()
	if err != nil {
		return err
	}
	blockBytes, err := block.Marshal()
	if err != nil {
		return err
	}
	result.Height = block.Head.Height
	result.BlockHash = blockHash
	resultBytes, err := result.Marshal()
	if err != nil {
		return err
	}

	height := block.Head.Height
	heightBytes := tpcmm.Uint64ToBytes(height)

	batch := store.backend.NewBatch()
	defer batch.Close()

	if err = batch.Set(heightKey(prefixBlock, height), blockBytes); err != nil {
		return err
	}
	if err = batch.Set(heightKey(prefixBlockResult, height), resultBytes); err != nil {
		return err
	}
	if err = batch.Set(indexKey(prefixHashIndex, blockHash), heightBytes); err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		txID, err := tx.TxID()
		if err != nil {
			return err
		}
		if err = batch.Set(indexKey(prefixTxIndex, []byte(txID)), heightBytes); err != nil {
			return err
		}
	}
	if err = batch.Set(keyLatest, heightBytes); err != nil {
		return err
	}

	if err = batch.WriteSync(); err != nil {
		return err
	}

	store.log.Debugf("Committed block: height=%d, txs=%d", height, len(block.Transactions))

	return nil
}

func (store *blockStore) GetLatestBlock() (*types.Block, error) {
	latest, ok, err := store.latestHeight()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBlockNotFound
	}

	return store.GetBlockByNumber(types.BlockNum(latest))
}

func (store *blockStore) GetBlockByNumber(blockNum types.BlockNum) (*types.Block, error) {
	blockBytes, err := store.backend.Get(heightKey(prefixBlock, uint64(blockNum)))
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, blockNum)
	}
	if err != nil {
		return nil, err
	}

	var block types.Block
	if err = block.Unmarshal(blockBytes); err != nil {
		return nil, err
	}

	return &block, nil
}

func (store *blockStore) heightByIndex(key []byte, notFound error) (uint64, error) {
	heightBytes, err := store.backend.Get(key)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return 0, notFound
	}
	if err != nil {
		return 0, err
	}

	return tpcmm.BytesToUint64(heightBytes), nil
}

func (store *blockStore) GetBlockByHash(blockHash []byte) (*types.Block, error) {
	height, err := store.heightByIndex(indexKey(prefixHashIndex, blockHash), ErrBlockNotFound)
	if err != nil {
		return nil, err
	}

	return store.GetBlockByNumber(types.BlockNum(height))
}

func (store *blockStore) GetBlockResult(blockNum types.BlockNum) (*types.BlockResult, error) {
	resultBytes, err := store.backend.Get(heightKey(prefixBlockResult, uint64(blockNum)))
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, blockNum)
	}
	if err != nil {
		return nil, err
	}

	var result types.BlockResult
	if err = result.Unmarshal(resultBytes); err != nil {
		return nil, err
	}

	return &result, nil
}

func (store *blockStore) TxIDExists(txID tptx.TxID) (bool, error) {
	return store.backend.Has(indexKey(prefixTxIndex, []byte(txID)))
}

func (store *blockStore) GetBlockByTxID(txID tptx.TxID) (*types.Block, error) {
	height, err := store.heightByIndex(indexKey(prefixTxIndex, []byte(txID)), ErrTxNotFound)
	if err != nil {
		return nil, err
	}

	return store.GetBlockByNumber(types.BlockNum(height))
}

func (store *blockStore) GetTransactionByID(txID tptx.TxID) (*tptx.Transaction, error) {
	block, err := store.GetBlockByTxID(txID)
	if err != nil {
		return nil, err
	}

	for _, tx := range block.Transactions {
		if id, _ := tx.TxID(); id == txID {
			return tx, nil
		}
	}

	return nil, ErrTxNotFound
}
