package ledger

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/TopiaNetwork/blockproducer/chain/types"
	"github.com/TopiaNetwork/blockproducer/configuration"
	"github.com/TopiaNetwork/blockproducer/ledger/backend"
	"github.com/TopiaNetwork/blockproducer/ledger/block"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "ledger"

var (
	prefixState = []byte("s/")
	prefixBlock = []byte("b/")
)

type LedgerID string

// Ledger owns one backend shared by the state and block stores under separate prefixes.
type Ledger interface {
	ID() LedgerID

	StateStore() state.StateStore

	BlockStore() block.BlockStore

	GetLatestBlock() (*types.Block, error)

	// InitGenesis commits alloc and the genesis block when the ledger is empty; otherwise it returns the latest block.
	InitGenesis(chainID string, timeStamp uint64, alloc []*tptx.Mutation) (*types.Block, error)

	Close() error
}

type ledger struct {
	id         LedgerID
	log        tplog.Logger
	backend    backend.Backend
	stateStore state.StateStore
	blockStore block.BlockStore
}

func NewLedger(log tplog.Logger, id LedgerID, backendDB backend.Backend) Ledger {
	lgLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log)

	return &ledger{
		id:         id,
		log:        lgLog,
		backend:    backendDB,
		stateStore: state.NewStateStore(lgLog, backend.NewBackendPrefixed(prefixState, backendDB)),
		blockStore: block.NewBlockStore(lgLog, backend.NewBackendPrefixed(prefixBlock, backendDB)),
	}
}

func NewLedgerFromConfig(log tplog.Logger, id LedgerID, conf *configuration.LedgerConfiguration) (Ledger, error) {
	backendDB, err := backend.NewBackendFromConfig(log, conf, string(id))
	if err != nil {
		return nil, err
	}

	return NewLedger(log, id, backendDB), nil
}

func (l *ledger) ID() LedgerID {
	return l.id
}

func (l *ledger) StateStore() state.StateStore {
	return l.stateStore
}

func (l *ledger) BlockStore() block.BlockStore {
	return l.blockStore
}

func (l *ledger) GetLatestBlock() (*types.Block, error) {
	return l.blockStore.GetLatestBlock()
}

func (l *ledger) InitGenesis(chainID string, timeStamp uint64, alloc []*tptx.Mutation) (*types.Block, error) {
	latest, err := l.blockStore.GetLatestBlock()
	if err == nil {
		l.log.Infof("Ledger already initialized: height=%d", latest.Head.Height)
		return latest, nil
	}
	if !errors.Is(err, block.ErrBlockNotFound) {
		return nil, err
	}

	stateRoot, err := l.stateStore.Commit(alloc)
	if err != nil {
		return nil, err
	}

	genesis, err := types.NewGenesisBlock(chainID, types.BLOCK_VER, timeStamp, stateRoot)
	if err != nil {
		return nil, err
	}
	if err = l.blockStore.CommitBlock(genesis, nil); err != nil {
		return nil, err
	}

	l.log.Infof("Genesis block created: chainID=%s, allocs=%d", chainID, len(alloc))

	return genesis, nil
}

func (l *ledger) Close() error {
	var result error
	if err := l.backend.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}
