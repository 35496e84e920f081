package transactionpool

import (
	"github.com/google/btree"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const btreeDegree = 32

// wrappedTx is a pooled transaction. seq is its place in the global arrival order; requeued
// transactions get seqs below every arrival so they are pulled first.
type wrappedTx struct {
	seq    int64
	txID   tptx.TxID
	sender tpcrtypes.Address
	nonce  uint64
	tx     *tptx.Transaction
}

type nonceItem struct{ *wrappedTx }

func (item nonceItem) Less(than btree.Item) bool {
	return item.nonce < than.(nonceItem).nonce
}

type arrivalItem struct{ *wrappedTx }

func (item arrivalItem) Less(than btree.Item) bool {
	return item.seq < than.(arrivalItem).seq
}

// accountTxs keeps one sender's transactions ordered by nonce.
type accountTxs struct {
	txs *btree.BTree
}

func newAccountTxs() *accountTxs {
	return &accountTxs{txs: btree.New(btreeDegree)}
}

func (at *accountTxs) get(nonce uint64) *wrappedTx {
	item := at.txs.Get(nonceItem{&wrappedTx{nonce: nonce}})
	if item == nil {
		return nil
	}
	return item.(nonceItem).wrappedTx
}

func (at *accountTxs) put(wTx *wrappedTx) {
	at.txs.ReplaceOrInsert(nonceItem{wTx})
}

func (at *accountTxs) remove(wTx *wrappedTx) {
	at.txs.Delete(nonceItem{wTx})
}

func (at *accountTxs) head() *wrappedTx {
	item := at.txs.Min()
	if item == nil {
		return nil
	}
	return item.(nonceItem).wrappedTx
}

func (at *accountTxs) len() int {
	return at.txs.Len()
}
