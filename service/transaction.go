package service

import (
	"context"
	"errors"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplgblock "github.com/TopiaNetwork/blockproducer/ledger/block"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	transactionpool "github.com/TopiaNetwork/blockproducer/transaction_pool"
)

var ErrTxResultNotFound = errors.New("transaction result not found")

type TransactionService interface {
	// SubmitTx admits tx into the pool; it is executed by a later round.
	SubmitTx(ctx context.Context, tx *tptx.Transaction) (tptx.TxID, error)

	TxIDExists(txID tptx.TxID) (bool, error)

	GetTransactionByID(txID tptx.TxID) (*tptx.Transaction, error)

	GetTransactionResultByID(txID tptx.TxID) (*tptx.TransactionResult, error)

	PendingCount() int

	PendingCountOfAccount(addr tpcrtypes.Address) int
}

type transactionService struct {
	tplgblock.BlockStore
	log    tplog.Logger
	txPool transactionpool.TransactionPool
}

func (ts *transactionService) SubmitTx(ctx context.Context, tx *tptx.Transaction) (tptx.TxID, error) {
	txID, err := tx.TxID()
	if err != nil {
		return "", err
	}

	if err = ts.txPool.AddTx(ctx, tx); err != nil {
		ts.log.Debugf("Submit tx %s rejected: %v", txID, err)
		return "", err
	}

	return txID, nil
}

func (ts *transactionService) GetTransactionResultByID(txID tptx.TxID) (*tptx.TransactionResult, error) {
	block, err := ts.GetBlockByTxID(txID)
	if err != nil {
		return nil, err
	}

	result, err := ts.GetBlockResult(block.BlockNum())
	if err != nil {
		return nil, err
	}
	for _, txResult := range result.TxResults {
		if txResult.TxID == txID {
			return txResult, nil
		}
	}

	return nil, ErrTxResultNotFound
}

func (ts *transactionService) PendingCount() int {
	return ts.txPool.Count()
}

func (ts *transactionService) PendingCountOfAccount(addr tpcrtypes.Address) int {
	return ts.txPool.CountOfAccount(addr)
}
