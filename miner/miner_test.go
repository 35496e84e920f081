package miner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tpchaintypes "github.com/TopiaNetwork/blockproducer/chain/types"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/eventhub"
	"github.com/TopiaNetwork/blockproducer/execution"
	"github.com/TopiaNetwork/blockproducer/ledger"
	"github.com/TopiaNetwork/blockproducer/ledger/backend/memdb"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	"github.com/TopiaNetwork/blockproducer/miner/mock"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	transactionpool "github.com/TopiaNetwork/blockproducer/transaction_pool"
	"github.com/TopiaNetwork/blockproducer/vm"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
	vmmock "github.com/TopiaNetwork/blockproducer/vm/mock"
	"github.com/TopiaNetwork/blockproducer/vm/native"
	"github.com/TopiaNetwork/blockproducer/vm/native/contract"
)

const testChainID = "miner-unit"

var (
	tokenAddr = tpcrtypes.CreateNativeContractAddress(tpcrtypes.NetworkType_Testnet, contract.NativeContractID_Token)
	kvAddr    = tpcrtypes.CreateNativeContractAddress(tpcrtypes.NetworkType_Testnet, contract.NativeContractID_KVStore)
)

func testLogger() tplog.Logger {
	log, _ := tplog.CreateMainLogger(tplogcmm.ErrorLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	return log
}

type account struct {
	cs   tpcrt.CryptService
	pri  tpcrtypes.PrivateKey
	addr tpcrtypes.Address
}

func newAccount(t *testing.T) *account {
	cs, err := tpcrt.CreateCryptService(testLogger(), tpcrtypes.CryptType_Ed25519)
	require.NoError(t, err)
	pri, pub, err := cs.GeneratePriPubKey()
	require.NoError(t, err)
	addr, err := tpcrt.CreateAddress(tpcrtypes.NetworkType_Testnet, cs.CryptType(), pub)
	require.NoError(t, err)

	return &account{cs: cs, pri: pri, addr: addr}
}

func (a *account) call(t *testing.T, nonce uint64, contractAddr tpcrtypes.Address, method string, args ...interface{}) *tptx.Transaction {
	params, err := tpvmcmm.EncodeArgs(args...)
	require.NoError(t, err)

	tx, err := tptx.NewTransaction(a.cs, tpcrtypes.NetworkType_Testnet, a.pri,
		&tptx.TransactionHead{ChainID: []byte(testChainID), Category: tptx.TransactionCategory_Native, Nonce: nonce, Fee: 1},
		&tptx.TransactionData{Contract: contractAddr, Method: method, Params: params})
	require.NoError(t, err)

	return tx
}

type recordTrigger struct {
	sync    sync.Mutex
	blocks  []*eventhub.BlockProducedEvent
	aborted []*eventhub.RoundAbortedEvent
}

func (rt *recordTrigger) Trig(ctx context.Context, name string, data interface{}) error {
	rt.sync.Lock()
	defer rt.sync.Unlock()

	switch ev := data.(type) {
	case *eventhub.BlockProducedEvent:
		rt.blocks = append(rt.blocks, ev)
	case *eventhub.RoundAbortedEvent:
		rt.aborted = append(rt.aborted, ev)
	}
	return nil
}

type testEnv struct {
	conf     *configuration.MinerConfiguration
	ledger   ledger.Ledger
	genesis  *tpchaintypes.Block
	factory  *vm.VMFactory
	grouper  *execution.Grouper
	pool     transactionpool.TransactionPool
	producer *account
	trigger  *recordTrigger
	funded   []*account
}

func newTestEnv(t *testing.T, funded int) *testEnv {
	log := testLogger()
	env := &testEnv{
		conf:     &configuration.MinerConfiguration{ChainID: testChainID, Network: "testnet", BatchLimit: 100},
		ledger:   ledger.NewLedger(log, "miner-unit", memdb.NewMemBackend(log, "miner-unit")),
		producer: newAccount(t),
		trigger:  &recordTrigger{},
	}
	t.Cleanup(func() { env.ledger.Close() })

	var alloc []*tptx.Mutation
	for i := 0; i < funded; i++ {
		acc := newAccount(t)
		env.funded = append(env.funded, acc)
		alloc = append(alloc, &tptx.Mutation{Resource: tptx.BalanceResource(acc.addr), Value: tpcmm.Uint64ToBytes(100)})
	}
	genesis, err := env.ledger.InitGenesis(testChainID, 1, alloc)
	require.NoError(t, err)
	env.genesis = genesis

	nvm := native.NewNativeVM(log)
	require.NoError(t, nvm.RegisterContract(tokenAddr, contract.NewContractToken(env.producer.addr)))
	require.NoError(t, nvm.RegisterContract(kvAddr, contract.NewContractKVStore()))
	env.factory = vm.NewVMFactory()
	require.NoError(t, env.factory.RegisterVM(nvm))
	env.grouper = execution.NewGrouper(execution.NewResourceDetector(log, env.factory))

	txServant := tptx.NewTransactionServant(testChainID, tpcrtypes.NetworkType_Testnet)
	env.pool, err = transactionpool.NewTransactionPool(tplogcmm.InfoLevel, log, configuration.DefTxPoolConfiguration(),
		transactionpool.NewTransactionPoolServant(txServant, env.ledger.StateStore()), nil)
	require.NoError(t, err)

	return env
}

func (env *testEnv) newScheduler(t *testing.T, factory *vm.VMFactory) execution.ExecutionScheduler {
	conf := &configuration.ExecutionConfiguration{
		WorkerCount:     2,
		GroupTimeout:    2 * time.Second,
		MaxGroupRetries: 1,
		RetryBackoff:    time.Millisecond,
	}
	scheduler, err := execution.NewExecutionScheduler(testLogger(), t.Name(), actor.NewActorSystem(), conf, factory, nil)
	require.NoError(t, err)
	t.Cleanup(scheduler.Stop)

	return scheduler
}

func (env *testEnv) newMiner(t *testing.T, source ReadyTransactionSource, scheduler execution.ExecutionScheduler, priKey tpcrtypes.PrivateKey) Miner {
	return NewMiner(tplogcmm.InfoLevel, testLogger(), env.conf, env.ledger, source, env.grouper, scheduler, env.producer.cs, priKey, env.trigger)
}

func (env *testEnv) balance(t *testing.T, addr tpcrtypes.Address) uint64 {
	snap, err := env.ledger.StateStore().Snapshot()
	require.NoError(t, err)
	defer snap.Release()

	bal, err := tpvmcmm.ReadUint64(snap, tptx.BalanceResource(addr))
	require.NoError(t, err)
	return bal
}

func (env *testEnv) stateRoot(t *testing.T) []byte {
	root, err := env.ledger.StateStore().Root()
	require.NoError(t, err)
	return root
}

// flakyLedger hands out a state store whose next applyFailures prepared commits fail to apply.
type flakyLedger struct {
	ledger.Ledger
	applyFailures int
}

func (fl *flakyLedger) StateStore() state.StateStore {
	return &flakyStateStore{StateStore: fl.Ledger.StateStore(), owner: fl}
}

type flakyStateStore struct {
	state.StateStore
	owner *flakyLedger
}

func (fs *flakyStateStore) PrepareCommit(mutations []*tptx.Mutation) (state.PreparedCommit, error) {
	pc, err := fs.StateStore.PrepareCommit(mutations)
	if err != nil {
		return nil, err
	}
	if fs.owner.applyFailures > 0 {
		fs.owner.applyFailures--
		return &failingCommit{PreparedCommit: pc}, nil
	}
	return pc, nil
}

type failingCommit struct {
	state.PreparedCommit
}

func (fc *failingCommit) Apply() error {
	return errors.New("backend write error")
}

func TestProduceBlock(t *testing.T) {
	env := newTestEnv(t, 2)
	alice, carol := env.funded[0], env.funded[1]
	bob := newAccount(t)

	a1 := alice.call(t, 1, tokenAddr, "Transfer", string(bob.addr), uint64(10))
	c1 := carol.call(t, 1, kvAddr, "Put", "color", "blue")
	a2 := alice.call(t, 2, tokenAddr, "Transfer", string(bob.addr), uint64(20))
	for _, tx := range []*tptx.Transaction{a1, c1, a2} {
		require.NoError(t, env.pool.AddTx(context.Background(), tx))
	}

	m := env.newMiner(t, env.pool, env.newScheduler(t, env.factory), env.producer.pri)
	block, err := m.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MinerState_Idle, m.State())

	assert.Equal(t, uint64(1), block.Head.Height)
	assert.Equal(t, uint32(3), block.Head.TxCount)
	// groups in order of their earliest member: {a1, a2} then {c1}
	assert.Equal(t, []tptx.TxID{a1.MustTxID(), a2.MustTxID(), c1.MustTxID()},
		[]tptx.TxID{block.Transactions[0].MustTxID(), block.Transactions[1].MustTxID(), block.Transactions[2].MustTxID()})

	parentHash, err := env.genesis.HashBytes()
	require.NoError(t, err)
	assert.Equal(t, parentHash, block.Head.ParentBlockHash)
	assert.Equal(t, env.stateRoot(t), block.Head.StateRoot)
	txRoot, err := tptx.TxRoot(block.Transactions)
	require.NoError(t, err)
	assert.Equal(t, txRoot, block.Head.TxRoot)

	ok, err := block.Head.VerifySignature(env.producer.cs)
	require.NoError(t, err)
	assert.True(t, ok)

	latest, err := env.ledger.GetLatestBlock()
	require.NoError(t, err)
	assert.Equal(t, block.Head.Height, latest.Head.Height)

	result, err := env.ledger.BlockStore().GetBlockResult(tpchaintypes.BlockNum(1))
	require.NoError(t, err)
	require.Len(t, result.TxResults, 3)
	for _, txResult := range result.TxResults {
		assert.Equal(t, tptx.ResultStatus_Success, txResult.Status)
	}

	assert.Equal(t, uint64(68), env.balance(t, alice.addr))
	assert.Equal(t, uint64(30), env.balance(t, bob.addr))
	assert.Equal(t, uint64(99), env.balance(t, carol.addr))
	assert.Equal(t, uint64(3), env.balance(t, m.Coinbase()))
	assert.Equal(t, 0, env.pool.Count())

	require.Len(t, env.trigger.blocks, 1)
	assert.Equal(t, block, env.trigger.blocks[0].Block)
}

func TestProduceEmptyBlock(t *testing.T) {
	env := newTestEnv(t, 0)
	rootBefore := env.stateRoot(t)

	m := env.newMiner(t, env.pool, env.newScheduler(t, env.factory), env.producer.pri)
	first, err := m.ProduceBlock(context.Background())
	require.NoError(t, err)
	second, err := m.ProduceBlock(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Head.Height)
	assert.Equal(t, uint32(0), first.Head.TxCount)
	assert.Empty(t, first.Transactions)
	assert.Equal(t, rootBefore, first.Head.StateRoot)

	assert.Equal(t, uint64(2), second.Head.Height)
	firstHash, err := first.HashBytes()
	require.NoError(t, err)
	assert.Equal(t, firstHash, second.Head.ParentBlockHash)
	assert.True(t, second.Head.TimeStamp > first.Head.TimeStamp)
}

func TestRoundAbortRequeuesBatch(t *testing.T) {
	env := newTestEnv(t, 1)
	alice := env.funded[0]
	ctrl := gomock.NewController(t)

	executor := vmmock.NewMockContractExecutor(ctrl)
	executor.EXPECT().Category().Return(tptx.TransactionCategory_Native).AnyTimes()
	executor.EXPECT().Enable().Return(true).AnyTimes()
	executor.EXPECT().Resources(gomock.Any()).Return(nil, nil).AnyTimes()
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("executor crashed")).Times(2)

	factory := vm.NewVMFactory()
	require.NoError(t, factory.RegisterVM(executor))
	env.grouper = execution.NewGrouper(execution.NewResourceDetector(testLogger(), factory))

	batch := []*tptx.Transaction{alice.call(t, 1, kvAddr, "Put", "k", "v")}
	source := mock.NewMockReadyTransactionSource(ctrl)
	source.EXPECT().Pull(100).Return(batch)
	source.EXPECT().Requeue(batch).Times(1)

	rootBefore := env.stateRoot(t)
	m := env.newMiner(t, source, env.newScheduler(t, factory), env.producer.pri)
	block, err := m.ProduceBlock(context.Background())
	assert.Nil(t, block)
	require.Error(t, err)

	var failure *RoundFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, uint64(1), failure.Round)
	assert.Equal(t, uint64(1), failure.Height)
	assert.Equal(t, batch, failure.Requeued)
	assert.True(t, errors.Is(err, execution.ErrRoundAborted))
	assert.True(t, errors.Is(err, execution.ErrGroupRetryExhausted))

	latest, err := env.ledger.GetLatestBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest.Head.Height)
	assert.Equal(t, rootBefore, env.stateRoot(t))
	assert.Equal(t, MinerState_Idle, m.State())

	require.Len(t, env.trigger.aborted, 1)
	assert.Equal(t, 1, env.trigger.aborted[0].Requeued)
	assert.Empty(t, env.trigger.blocks)
}

func TestSigningFailureThenRecovery(t *testing.T) {
	env := newTestEnv(t, 1)
	alice := env.funded[0]
	bob := newAccount(t)
	scheduler := env.newScheduler(t, env.factory)

	tx := alice.call(t, 1, tokenAddr, "Transfer", string(bob.addr), uint64(5))
	require.NoError(t, env.pool.AddTx(context.Background(), tx))
	rootBefore := env.stateRoot(t)

	env.conf.Coinbase = string(env.producer.addr)
	broken := env.newMiner(t, env.pool, scheduler, tpcrtypes.PrivateKey{0x01})
	block, err := broken.ProduceBlock(context.Background())
	assert.Nil(t, block)
	assert.True(t, errors.Is(err, ErrSigningFailure))
	assert.Equal(t, rootBefore, env.stateRoot(t))
	assert.Equal(t, 1, env.pool.Count())

	m := env.newMiner(t, env.pool, scheduler, env.producer.pri)
	block, err = m.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Head.Height)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, tx.MustTxID(), block.Transactions[0].MustTxID())
	assert.Equal(t, uint64(5), env.balance(t, bob.addr))
	assert.Equal(t, uint64(1), env.balance(t, env.producer.addr))
}

func TestFailedTxIsIncluded(t *testing.T) {
	env := newTestEnv(t, 1)
	alice := env.funded[0]
	bob := newAccount(t)

	tx := alice.call(t, 1, tokenAddr, "Transfer", string(bob.addr), uint64(500))
	require.NoError(t, env.pool.AddTx(context.Background(), tx))

	m := env.newMiner(t, env.pool, env.newScheduler(t, env.factory), env.producer.pri)
	block, err := m.ProduceBlock(context.Background())
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)

	result, err := env.ledger.BlockStore().GetBlockResult(tpchaintypes.BlockNum(1))
	require.NoError(t, err)
	assert.Equal(t, tptx.ResultStatus_Failed, result.TxResults[0].Status)
	assert.Equal(t, uint64(99), env.balance(t, alice.addr))
	assert.Equal(t, uint64(0), env.balance(t, bob.addr))
}

func TestApplyFailureThenRecovery(t *testing.T) {
	env := newTestEnv(t, 1)
	alice := env.funded[0]
	bob := newAccount(t)
	env.ledger = &flakyLedger{Ledger: env.ledger, applyFailures: 1}

	tx := alice.call(t, 1, tokenAddr, "Transfer", string(bob.addr), uint64(5))
	require.NoError(t, env.pool.AddTx(context.Background(), tx))
	rootBefore := env.stateRoot(t)

	m := env.newMiner(t, env.pool, env.newScheduler(t, env.factory), env.producer.pri)
	block, err := m.ProduceBlock(context.Background())
	assert.Nil(t, block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply state commit")
	var failure *RoundFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, rootBefore, env.stateRoot(t))
	assert.Equal(t, 1, env.pool.Count())
	require.Len(t, env.trigger.aborted, 1)

	block, err = m.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Head.Height)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, tx.MustTxID(), block.Transactions[0].MustTxID())
	assert.Equal(t, uint64(5), env.balance(t, bob.addr))

	block, err = m.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block.Head.Height)
}
