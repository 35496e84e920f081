package miner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	tpchaintypes "github.com/TopiaNetwork/blockproducer/chain/types"
	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/eventhub"
	"github.com/TopiaNetwork/blockproducer/execution"
	"github.com/TopiaNetwork/blockproducer/ledger"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "miner"

type Miner interface {
	State() MinerState

	Coinbase() tpcrtypes.Address

	// ProduceBlock runs one round. A round without block returns a *RoundFailure, after which the miner
	// is Idle and ready for the next round.
	ProduceBlock(ctx context.Context) (*tpchaintypes.Block, error)
}

type miner struct {
	log          tplog.Logger
	conf         *configuration.MinerConfiguration
	ledger       ledger.Ledger
	txSource     ReadyTransactionSource
	grouper      *execution.Grouper
	scheduler    execution.ExecutionScheduler
	cryptService tpcrt.CryptService
	priKey       tpcrtypes.PrivateKey
	coinbase     tpcrtypes.Address
	evTrigger    eventhub.EventTrigger
	roundMutex   sync.Mutex
	minerState   *atomic.Uint32
	round        *atomic.Uint64
}

// NewMiner doesn't check priKey: a bad producer key fails each round with ErrSigningFailure.
// The coinbase defaults to the producer's own address. evTrigger may be nil.
func NewMiner(level tplogcmm.LogLevel, log tplog.Logger, conf *configuration.MinerConfiguration, ledger ledger.Ledger, txSource ReadyTransactionSource,
	grouper *execution.Grouper, scheduler execution.ExecutionScheduler, cryptService tpcrt.CryptService, priKey tpcrtypes.PrivateKey, evTrigger eventhub.EventTrigger) Miner {
	minerLog := tplog.CreateModuleLogger(level, MOD_NAME, log)
	conf = conf.Check()

	coinbase := tpcrtypes.Address(conf.Coinbase)
	if coinbase == "" {
		coinbase = producerAddress(conf, cryptService, priKey)
		if coinbase == tpcrtypes.UndefAddress {
			minerLog.Warn("No coinbase configured and the producer key gives no address, fees won't be credited")
		}
	}

	return &miner{
		log:          minerLog,
		conf:         conf,
		ledger:       ledger,
		txSource:     txSource,
		grouper:      grouper,
		scheduler:    scheduler,
		cryptService: cryptService,
		priKey:       priKey,
		coinbase:     coinbase,
		evTrigger:    evTrigger,
		minerState:   atomic.NewUint32(uint32(MinerState_Idle)),
		round:        atomic.NewUint64(0),
	}
}

func producerAddress(conf *configuration.MinerConfiguration, cryptService tpcrt.CryptService, priKey tpcrtypes.PrivateKey) tpcrtypes.Address {
	network, err := tpcrtypes.ParseNetworkType(conf.Network)
	if err != nil {
		return tpcrtypes.UndefAddress
	}
	pubKey, err := cryptService.ConvertToPublic(priKey)
	if err != nil {
		return tpcrtypes.UndefAddress
	}
	addr, err := tpcrt.CreateAddress(network, cryptService.CryptType(), pubKey)
	if err != nil {
		return tpcrtypes.UndefAddress
	}

	return addr
}

func (m *miner) State() MinerState {
	return MinerState(m.minerState.Load())
}

func (m *miner) Coinbase() tpcrtypes.Address {
	return m.coinbase
}

func (m *miner) setState(state MinerState) {
	m.minerState.Store(uint32(state))
}

func (m *miner) ProduceBlock(ctx context.Context) (*tpchaintypes.Block, error) {
	m.roundMutex.Lock()
	defer m.roundMutex.Unlock()
	defer m.setState(MinerState_Idle)

	round := m.round.Inc()

	latest, err := m.ledger.GetLatestBlock()
	if err != nil {
		return nil, m.fail(ctx, round, 0, nil, fmt.Errorf("latest block: %w", err))
	}
	height := latest.Head.Height + 1

	batch := m.txSource.Pull(m.conf.BatchLimit)
	m.setState(MinerState_BatchPulled)
	m.log.Debugf("Round %d for height %d pulled %d txs", round, height, len(batch))

	groups := m.grouper.Group(batch)
	m.setState(MinerState_Grouped)

	snapshot, err := m.ledger.StateStore().Snapshot()
	if err != nil {
		return nil, m.fail(ctx, round, height, batch, fmt.Errorf("state snapshot: %w", err))
	}
	defer snapshot.Release()

	m.setState(MinerState_Executing)
	merged, err := m.scheduler.Execute(ctx, round, groups, snapshot, m.coinbase)
	if err != nil {
		return nil, m.fail(ctx, round, height, batch, err)
	}

	prepared, err := m.ledger.StateStore().PrepareCommit(merged.Mutations)
	if err != nil {
		return nil, m.fail(ctx, round, height, batch, fmt.Errorf("prepare state commit: %w", err))
	}
	m.setState(MinerState_Merged)

	block, err := m.assemble(latest, merged, prepared.Root())
	if err != nil {
		prepared.Discard()
		return nil, m.fail(ctx, round, height, batch, err)
	}
	m.setState(MinerState_Assembled)

	if err = m.sign(block.Head); err != nil {
		prepared.Discard()
		return nil, m.fail(ctx, round, height, batch, fmt.Errorf("%w: %v", ErrSigningFailure, err))
	}
	m.setState(MinerState_Signed)

	if err = prepared.Apply(); err != nil {
		prepared.Discard()
		return nil, m.fail(ctx, round, height, batch, fmt.Errorf("apply state commit: %w", err))
	}

	blockHash, err := block.HashBytes()
	if err != nil {
		m.log.Errorf("Round %d: state of height %d applied but block hash failed: %v", round, height, err)
		return nil, err
	}
	blockResult := &tpchaintypes.BlockResult{
		Height:    height,
		BlockHash: blockHash,
		TxResults: merged.Results,
	}
	// The state is already applied, so the batch can't be requeued any more.
	if err = m.ledger.BlockStore().CommitBlock(block, blockResult); err != nil {
		m.log.Errorf("Round %d: state of height %d applied but block not stored: %v", round, height, err)
		return nil, err
	}

	m.log.Infof("Block produced: round %d height %d txs %d groups %d fees %d", round, height, merged.Len(), len(groups), merged.FeeTotal)

	m.trig(ctx, eventhub.EventName_BlockProduced, &eventhub.BlockProducedEvent{Round: round, Block: block, Result: blockResult})

	return block, nil
}

func (m *miner) assemble(latest *tpchaintypes.Block, merged *execution.MergedExecutionLog, stateRoot []byte) (*tpchaintypes.Block, error) {
	parentHash, err := latest.HashBytes()
	if err != nil {
		return nil, err
	}
	txRoot, err := tptx.TxRoot(merged.Txs)
	if err != nil {
		return nil, err
	}
	txResultRoot, err := tptx.TxResultRoot(merged.Results)
	if err != nil {
		return nil, err
	}

	timeStamp := uint64(time.Now().UnixNano())
	if timeStamp <= latest.Head.TimeStamp {
		timeStamp = latest.Head.TimeStamp + 1
	}

	return &tpchaintypes.Block{
		Head: &tpchaintypes.BlockHead{
			ChainID:         []byte(m.conf.ChainID),
			Version:         m.conf.Version,
			Height:          latest.Head.Height + 1,
			ParentBlockHash: parentHash,
			TimeStamp:       timeStamp,
			TxCount:         uint32(merged.Len()),
			TxRoot:          txRoot,
			TxResultRoot:    txResultRoot,
			StateRoot:       stateRoot,
		},
		Transactions: merged.Txs,
	}, nil
}

// sign fills the proposer before signing since the signature covers it.
func (m *miner) sign(head *tpchaintypes.BlockHead) error {
	pubKey, err := m.cryptService.ConvertToPublic(m.priKey)
	if err != nil {
		return err
	}
	head.CryptType = byte(m.cryptService.CryptType())
	head.Proposer = pubKey

	return head.Sign(m.cryptService, m.priKey)
}

func (m *miner) fail(ctx context.Context, round uint64, height uint64, batch []*tptx.Transaction, cause error) error {
	if len(batch) > 0 {
		m.txSource.Requeue(batch)
	}

	m.log.Errorf("Round %d for height %d failed, %d txs requeued: %v", round, height, len(batch), cause)

	m.trig(ctx, eventhub.EventName_RoundAborted, &eventhub.RoundAbortedEvent{
		Round:    round,
		Height:   height,
		Requeued: len(batch),
		Reason:   cause.Error(),
	})

	return &RoundFailure{
		Round:    round,
		Height:   height,
		Requeued: batch,
		Cause:    cause,
	}
}

func (m *miner) trig(ctx context.Context, name string, data interface{}) {
	if m.evTrigger == nil {
		return
	}
	if err := m.evTrigger.Trig(ctx, name, data); err != nil {
		m.log.Warnf("Trig %s err: %v", name, err)
	}
}
