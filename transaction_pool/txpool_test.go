package transactionpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const testChainID = "txpool-unit-test"

type testServant struct {
	tptx.TransactionServant
	sync   sync.Mutex
	nonces map[tpcrtypes.Address]uint64
}

func newTestServant() *testServant {
	return &testServant{
		TransactionServant: tptx.NewTransactionServant(testChainID, tpcrtypes.NetworkType_Testnet),
		nonces:             make(map[tpcrtypes.Address]uint64),
	}
}

func (ts *testServant) GetNonce(addr tpcrtypes.Address) (uint64, error) {
	ts.sync.Lock()
	defer ts.sync.Unlock()
	return ts.nonces[addr], nil
}

func (ts *testServant) setNonce(addr tpcrtypes.Address, nonce uint64) {
	ts.sync.Lock()
	defer ts.sync.Unlock()
	ts.nonces[addr] = nonce
}

type recordTrigger struct {
	sync sync.Mutex
	txs  []*tptx.Transaction
}

func (rt *recordTrigger) Trig(ctx context.Context, name string, data interface{}) error {
	rt.sync.Lock()
	defer rt.sync.Unlock()
	rt.txs = append(rt.txs, data.(*tptx.Transaction))
	return nil
}

type testAccount struct {
	cs   tpcrt.CryptService
	pri  tpcrtypes.PrivateKey
	addr tpcrtypes.Address
}

func testLogger() tplog.Logger {
	log, _ := tplog.CreateMainLogger(tplogcmm.ErrorLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	return log
}

func newTestAccount(t testing.TB) *testAccount {
	cs, err := tpcrt.CreateCryptService(testLogger(), tpcrtypes.CryptType_Ed25519)
	require.NoError(t, err)
	pri, pub, err := cs.GeneratePriPubKey()
	require.NoError(t, err)
	addr, err := tpcrt.CreateAddress(tpcrtypes.NetworkType_Testnet, cs.CryptType(), pub)
	require.NoError(t, err)

	return &testAccount{cs: cs, pri: pri, addr: addr}
}

func (ta *testAccount) tx(t testing.TB, nonce uint64) *tptx.Transaction {
	tx, err := tptx.NewTransaction(ta.cs, tpcrtypes.NetworkType_Testnet, ta.pri,
		&tptx.TransactionHead{ChainID: []byte(testChainID), Category: tptx.TransactionCategory_Native, Nonce: nonce, Fee: 1},
		&tptx.TransactionData{Contract: tpcrtypes.CreateNativeContractAddress(tpcrtypes.NetworkType_Testnet, 2), Method: "Put", Params: []byte("k@v")})
	require.NoError(t, err)
	return tx
}

func newTestPool(t testing.TB, conf *configuration.TxPoolConfiguration, servant TransactionPoolServant, trigger *recordTrigger) TransactionPool {
	if conf == nil {
		conf = configuration.DefTxPoolConfiguration()
	}
	var pool TransactionPool
	var err error
	if trigger == nil {
		pool, err = NewTransactionPool(tplogcmm.InfoLevel, testLogger(), conf, servant, nil)
	} else {
		pool, err = NewTransactionPool(tplogcmm.InfoLevel, testLogger(), conf, servant, trigger)
	}
	require.NoError(t, err)
	return pool
}

func ids(txs []*tptx.Transaction) []tptx.TxID {
	var res []tptx.TxID
	for _, tx := range txs {
		res = append(res, tx.MustTxID())
	}
	return res
}

func TestPullArrivalAndNonceOrder(t *testing.T) {
	trigger := &recordTrigger{}
	pool := newTestPool(t, nil, newTestServant(), trigger)
	alice, bob := newTestAccount(t), newTestAccount(t)

	a1, a2, b1 := alice.tx(t, 1), alice.tx(t, 2), bob.tx(t, 1)
	require.NoError(t, pool.AddTx(context.Background(), a2))
	require.NoError(t, pool.AddTx(context.Background(), b1))
	require.NoError(t, pool.AddTx(context.Background(), a1))
	assert.Equal(t, 3, pool.Count())
	assert.Equal(t, 2, pool.CountOfAccount(alice.addr))
	assert.Equal(t, 3, len(trigger.txs))

	assert.Equal(t, ids([]*tptx.Transaction{b1, a1, a2}), ids(pool.Pull(10)))
	assert.Equal(t, 0, pool.Count())
	assert.Nil(t, pool.Pull(10))
}

func TestPullLimit(t *testing.T) {
	pool := newTestPool(t, nil, newTestServant(), nil)
	alice := newTestAccount(t)
	for n := uint64(1); n <= 5; n++ {
		require.NoError(t, pool.AddTx(context.Background(), alice.tx(t, n)))
	}

	assert.Equal(t, 2, len(pool.Pull(2)))
	assert.Equal(t, 3, pool.Count())
	assert.Nil(t, pool.Pull(0))
}

func TestPullStopsAtNonceGap(t *testing.T) {
	pool := newTestPool(t, nil, newTestServant(), nil)
	alice := newTestAccount(t)

	a1, a3 := alice.tx(t, 1), alice.tx(t, 3)
	require.NoError(t, pool.AddTx(context.Background(), a1))
	require.NoError(t, pool.AddTx(context.Background(), a3))

	assert.Equal(t, ids([]*tptx.Transaction{a1}), ids(pool.Pull(10)))
	assert.Equal(t, 1, pool.Count())

	a2 := alice.tx(t, 2)
	require.NoError(t, pool.AddTx(context.Background(), a2))
	// the ledger hasn't executed a1 yet, so a2 isn't ready either
	assert.Nil(t, pool.Pull(10))
}

func TestPullDropsExecutedNonce(t *testing.T) {
	servant := newTestServant()
	pool := newTestPool(t, nil, servant, nil)
	alice := newTestAccount(t)

	a1, a2 := alice.tx(t, 1), alice.tx(t, 2)
	require.NoError(t, pool.AddTx(context.Background(), a1))
	require.NoError(t, pool.AddTx(context.Background(), a2))

	servant.setNonce(alice.addr, 1)
	assert.Equal(t, ids([]*tptx.Transaction{a2}), ids(pool.Pull(10)))
	assert.Equal(t, 0, pool.Count())
}

func TestRequeueGoesToFront(t *testing.T) {
	pool := newTestPool(t, nil, newTestServant(), nil)
	alice, bob, carol := newTestAccount(t), newTestAccount(t), newTestAccount(t)

	a1, a2, b1 := alice.tx(t, 1), alice.tx(t, 2), bob.tx(t, 1)
	for _, tx := range []*tptx.Transaction{a1, a2, b1} {
		require.NoError(t, pool.AddTx(context.Background(), tx))
	}

	batch := pool.Pull(2)
	assert.Equal(t, ids([]*tptx.Transaction{a1, a2}), ids(batch))

	c1 := carol.tx(t, 1)
	require.NoError(t, pool.AddTx(context.Background(), c1))

	pool.Requeue(batch)
	assert.Equal(t, 4, pool.Count())
	assert.Equal(t, ids([]*tptx.Transaction{a1, a2, b1, c1}), ids(pool.Pull(10)))
}

func TestRequeueReplacesSameNonce(t *testing.T) {
	pool := newTestPool(t, nil, newTestServant(), nil)
	alice := newTestAccount(t)

	a1 := alice.tx(t, 1)
	require.NoError(t, pool.AddTx(context.Background(), a1))
	batch := pool.Pull(1)

	other := alice.tx(t, 1)
	other.Head.Fee = 2
	other, err := tptx.NewTransaction(alice.cs, tpcrtypes.NetworkType_Testnet, alice.pri, other.Head, other.Data)
	require.NoError(t, err)
	require.NoError(t, pool.AddTx(context.Background(), other))

	pool.Requeue(batch)
	assert.Equal(t, 1, pool.Count())
	assert.Equal(t, ids(batch), ids(pool.Pull(10)))
}

func TestAddTxRejects(t *testing.T) {
	servant := newTestServant()
	pool := newTestPool(t, &configuration.TxPoolConfiguration{MaxCount: 3, MaxCountPerAccount: 2}, servant, nil)
	alice, bob := newTestAccount(t), newTestAccount(t)

	a1 := alice.tx(t, 1)
	require.NoError(t, pool.AddTx(context.Background(), a1))
	assert.Equal(t, ErrAlreadyKnown, pool.AddTx(context.Background(), a1))

	dup := alice.tx(t, 1)
	dup.Data.Method = "Delete"
	dup, err := tptx.NewTransaction(alice.cs, tpcrtypes.NetworkType_Testnet, alice.pri, dup.Head, dup.Data)
	require.NoError(t, err)
	assert.Equal(t, ErrTxNonceExists, pool.AddTx(context.Background(), dup))

	require.NoError(t, pool.AddTx(context.Background(), alice.tx(t, 2)))
	assert.Equal(t, ErrAccountTxsFull, pool.AddTx(context.Background(), alice.tx(t, 3)))

	require.NoError(t, pool.AddTx(context.Background(), bob.tx(t, 1)))
	assert.Equal(t, ErrTxPoolFull, pool.AddTx(context.Background(), bob.tx(t, 2)))

	servant.setNonce(bob.addr, 5)
	assert.True(t, errors.Is(pool.AddTx(context.Background(), bob.tx(t, 5)), ErrNonceTooLow))

	forged := bob.tx(t, 6)
	forged.Head.Nonce = 7
	assert.True(t, errors.Is(pool.AddTx(context.Background(), forged), ErrTxVerifyFailed))

	wrongChain := bob.tx(t, 6)
	wrongChain.Head.ChainID = []byte("other")
	assert.True(t, errors.Is(pool.AddTx(context.Background(), wrongChain), ErrTxVerifyFailed))

	assert.Equal(t, ErrTxIsNil, pool.AddTx(context.Background(), nil))
}

func TestPulledTxIsNotReadmitted(t *testing.T) {
	pool := newTestPool(t, nil, newTestServant(), nil)
	alice := newTestAccount(t)

	a1 := alice.tx(t, 1)
	require.NoError(t, pool.AddTx(context.Background(), a1))
	require.Equal(t, 1, len(pool.Pull(1)))

	assert.Equal(t, ErrAlreadyKnown, pool.AddTx(context.Background(), a1))
}

func TestPullKeepsSenderOrder(t *testing.T) {
	accounts := []*testAccount{newTestAccount(t), newTestAccount(t), newTestAccount(t)}

	rapid.Check(t, func(rt *rapid.T) {
		servant := newTestServant()
		pool := newTestPool(t, nil, servant, nil)

		var txs []*tptx.Transaction
		for i, acc := range accounts {
			n := rapid.IntRange(0, 5).Draw(rt, fmt.Sprintf("count%d", i))
			for nonce := 1; nonce <= n; nonce++ {
				txs = append(txs, acc.tx(t, uint64(nonce)))
			}
		}
		perm := rapid.Permutation(txs).Draw(rt, "arrival")
		for _, tx := range perm {
			if err := pool.AddTx(context.Background(), tx); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}

		limit := rapid.IntRange(1, 16).Draw(rt, "limit")
		var pulled []*tptx.Transaction
		for {
			batch := pool.Pull(limit)
			if len(batch) == 0 {
				break
			}
			if len(batch) > limit {
				rt.Fatalf("pulled %d over limit %d", len(batch), limit)
			}
			if rapid.Bool().Draw(rt, "requeue") {
				pool.Requeue(batch)
				batch = pool.Pull(len(batch))
			}
			pulled = append(pulled, batch...)
			// the round committed
			for _, tx := range batch {
				servant.setNonce(tx.Head.FromAddr, tx.Head.Nonce)
			}
		}

		if len(pulled) != len(txs) {
			rt.Fatalf("pulled %d of %d", len(pulled), len(txs))
		}
		next := make(map[tpcrtypes.Address]uint64)
		for _, tx := range pulled {
			next[tx.Head.FromAddr]++
			if tx.Head.Nonce != next[tx.Head.FromAddr] {
				rt.Fatalf("sender %s: nonce %d pulled, expected %d", tx.Head.FromAddr, tx.Head.Nonce, next[tx.Head.FromAddr])
			}
		}
	})
}
