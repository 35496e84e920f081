package transactionpool

import (
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

// TransactionPoolServant is what the pool needs from the rest of the node.
type TransactionPoolServant interface {
	tptx.TransactionServant

	// GetNonce is the last nonce the ledger executed for addr, 0 for a fresh account.
	GetNonce(addr tpcrtypes.Address) (uint64, error)
}

type transactionPoolServant struct {
	tptx.TransactionServant
	stateStore state.StateStore
}

func NewTransactionPoolServant(txServant tptx.TransactionServant, stateStore state.StateStore) TransactionPoolServant {
	return &transactionPoolServant{
		TransactionServant: txServant,
		stateStore:         stateStore,
	}
}

func (servant *transactionPoolServant) GetNonce(addr tpcrtypes.Address) (uint64, error) {
	snap, err := servant.stateStore.Snapshot()
	if err != nil {
		return 0, err
	}
	defer snap.Release()

	return tpvmcmm.ReadUint64(snap, tptx.NonceResource(addr))
}
