package transactionpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/eventhub"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "TransactionPool"

// TxCacheSize bounds the ids remembered after their transactions left the pool.
const TxCacheSize = 64 * 1024

var (
	ErrTxIsNil        = errors.New("transaction is nil")
	ErrAlreadyKnown   = errors.New("transaction is already known")
	ErrTxVerifyFailed = errors.New("transaction verification failed")
	ErrNonceTooLow    = errors.New("nonce already executed")
	ErrTxNonceExists  = errors.New("sender already has a pooled transaction with this nonce")
	ErrTxPoolFull     = errors.New("tx pool is full")
	ErrAccountTxsFull = errors.New("too many pooled transactions of the sender")
)

// TransactionPool hands the miner ready transactions: per sender in nonce order without gaps,
// across senders in arrival order.
type TransactionPool interface {
	AddTx(ctx context.Context, tx *tptx.Transaction) error

	// Pull removes and returns up to limit ready transactions.
	Pull(limit int) []*tptx.Transaction

	// Requeue puts txs back ahead of every pooled transaction, keeping their order.
	Requeue(txs []*tptx.Transaction)

	Count() int

	CountOfAccount(addr tpcrtypes.Address) int
}

type transactionPool struct {
	log       tplog.Logger
	conf      *configuration.TxPoolConfiguration
	txServant TransactionPoolServant
	evTrigger eventhub.EventTrigger

	sync       sync.Mutex
	accounts   map[tpcrtypes.Address]*accountTxs
	heads      *btree.BTree //arrivalItem of every sender's lowest nonce
	allTxs     map[tptx.TxID]*wrappedTx
	txCache    *lru.Cache
	arrivalSeq int64
	requeueSeq int64
}

// NewTransactionPool creates an empty pool. evTrigger may be nil.
func NewTransactionPool(level tplogcmm.LogLevel, log tplog.Logger, conf *configuration.TxPoolConfiguration, txServant TransactionPoolServant, evTrigger eventhub.EventTrigger) (TransactionPool, error) {
	txCache, err := lru.New(TxCacheSize)
	if err != nil {
		return nil, err
	}

	return &transactionPool{
		log:       tplog.CreateModuleLogger(level, MOD_NAME, log),
		conf:      conf.Check(),
		txServant: txServant,
		evTrigger: evTrigger,
		accounts:  make(map[tpcrtypes.Address]*accountTxs),
		heads:     btree.New(btreeDegree),
		allTxs:    make(map[tptx.TxID]*wrappedTx),
		txCache:   txCache,
	}, nil
}

func (pool *transactionPool) AddTx(ctx context.Context, tx *tptx.Transaction) error {
	if tx == nil || tx.Head == nil || tx.Data == nil {
		return ErrTxIsNil
	}
	txID, err := tx.TxID()
	if err != nil {
		return err
	}

	if vr := tx.BasicVerify(ctx, pool.log, pool.txServant); vr != tptx.VerifyResult_Accept {
		return fmt.Errorf("%w: tx %s %s", ErrTxVerifyFailed, txID, vr)
	}

	sender := tx.Head.FromAddr
	executed, err := pool.txServant.GetNonce(sender)
	if err != nil {
		return err
	}
	if tx.Head.Nonce <= executed {
		return fmt.Errorf("%w: tx %s nonce %d, executed %d", ErrNonceTooLow, txID, tx.Head.Nonce, executed)
	}

	if err = pool.addTx(txID, tx); err != nil {
		return err
	}

	pool.log.Debugf("Tx added: id %s sender %s nonce %d", txID, sender, tx.Head.Nonce)

	if pool.evTrigger != nil {
		if err = pool.evTrigger.Trig(ctx, eventhub.EventName_TxReceived, tx); err != nil {
			pool.log.Warnf("Trig %s of tx %s err: %v", eventhub.EventName_TxReceived, txID, err)
		}
	}

	return nil
}

func (pool *transactionPool) addTx(txID tptx.TxID, tx *tptx.Transaction) error {
	pool.sync.Lock()
	defer pool.sync.Unlock()

	if _, ok := pool.allTxs[txID]; ok || pool.txCache.Contains(txID) {
		return ErrAlreadyKnown
	}
	if len(pool.allTxs) >= pool.conf.MaxCount {
		return ErrTxPoolFull
	}

	sender := tx.Head.FromAddr
	at, ok := pool.accounts[sender]
	if ok {
		if at.get(tx.Head.Nonce) != nil {
			return ErrTxNonceExists
		}
		if at.len() >= pool.conf.MaxCountPerAccount {
			return ErrAccountTxsFull
		}
	}

	pool.arrivalSeq++
	pool.insertLocked(&wrappedTx{
		seq:    pool.arrivalSeq,
		txID:   txID,
		sender: sender,
		nonce:  tx.Head.Nonce,
		tx:     tx,
	})
	pool.txCache.Add(txID, struct{}{})

	return nil
}

func (pool *transactionPool) insertLocked(wTx *wrappedTx) {
	at, ok := pool.accounts[wTx.sender]
	if !ok {
		at = newAccountTxs()
		pool.accounts[wTx.sender] = at
	}

	prevHead := at.head()
	at.put(wTx)
	pool.allTxs[wTx.txID] = wTx

	if prevHead == nil || wTx.nonce < prevHead.nonce {
		if prevHead != nil {
			pool.heads.Delete(arrivalItem{prevHead})
		}
		pool.heads.ReplaceOrInsert(arrivalItem{wTx})
	}
}

// removeLocked drops wTx, which must be its sender's head and already out of heads.
func (pool *transactionPool) removeLocked(at *accountTxs, wTx *wrappedTx) {
	at.remove(wTx)
	delete(pool.allTxs, wTx.txID)

	if next := at.head(); next != nil {
		pool.heads.ReplaceOrInsert(arrivalItem{next})
	} else {
		delete(pool.accounts, wTx.sender)
	}
}

func (pool *transactionPool) Pull(limit int) []*tptx.Transaction {
	if limit <= 0 {
		return nil
	}

	pool.sync.Lock()
	defer pool.sync.Unlock()

	var pulled []*tptx.Transaction
	var blocked []*wrappedTx
	expected := make(map[tpcrtypes.Address]uint64)

	for len(pulled) < limit {
		item := pool.heads.DeleteMin()
		if item == nil {
			break
		}
		head := item.(arrivalItem).wrappedTx
		at := pool.accounts[head.sender]

		next, ok := expected[head.sender]
		if !ok {
			executed, err := pool.txServant.GetNonce(head.sender)
			if err != nil {
				pool.log.Warnf("Can't get nonce of %s, skip it this time: %v", head.sender, err)
				blocked = append(blocked, head)
				continue
			}
			next = executed + 1
		}

		switch {
		case head.nonce < next:
			pool.log.Debugf("Drop executed tx: id %s sender %s nonce %d", head.txID, head.sender, head.nonce)
			pool.removeLocked(at, head)
			expected[head.sender] = next
		case head.nonce > next:
			blocked = append(blocked, head)
		default:
			pulled = append(pulled, head.tx)
			pool.removeLocked(at, head)
			expected[head.sender] = next + 1
		}
	}

	for _, head := range blocked {
		pool.heads.ReplaceOrInsert(arrivalItem{head})
	}

	if len(pulled) > 0 {
		pool.log.Debugf("Pulled %d txs, %d left", len(pulled), len(pool.allTxs))
	}

	return pulled
}

func (pool *transactionPool) Requeue(txs []*tptx.Transaction) {
	pool.sync.Lock()
	defer pool.sync.Unlock()

	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		txID, err := tx.TxID()
		if err != nil {
			pool.log.Errorf("Requeue malformed tx: %v", err)
			continue
		}
		if _, ok := pool.allTxs[txID]; ok {
			continue
		}

		if at, ok := pool.accounts[tx.Head.FromAddr]; ok {
			if other := at.get(tx.Head.Nonce); other != nil {
				pool.log.Warnf("Requeued tx %s replaces pooled tx %s with nonce %d", txID, other.txID, other.nonce)
				pool.evictLocked(at, other)
			}
		}

		pool.requeueSeq--
		pool.insertLocked(&wrappedTx{
			seq:    pool.requeueSeq,
			txID:   txID,
			sender: tx.Head.FromAddr,
			nonce:  tx.Head.Nonce,
			tx:     tx,
		})
		pool.txCache.Add(txID, struct{}{})
	}

	pool.log.Infof("Requeued %d txs, pool size %d", len(txs), len(pool.allTxs))
}

func (pool *transactionPool) evictLocked(at *accountTxs, wTx *wrappedTx) {
	if at.head() == wTx {
		pool.heads.Delete(arrivalItem{wTx})
		pool.removeLocked(at, wTx)
		return
	}
	at.remove(wTx)
	delete(pool.allTxs, wTx.txID)
}

func (pool *transactionPool) Count() int {
	pool.sync.Lock()
	defer pool.sync.Unlock()

	return len(pool.allTxs)
}

func (pool *transactionPool) CountOfAccount(addr tpcrtypes.Address) int {
	pool.sync.Lock()
	defer pool.sync.Unlock()

	if at, ok := pool.accounts[addr]; ok {
		return at.len()
	}
	return 0
}
