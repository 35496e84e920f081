package execution

import (
	"context"
	"fmt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	"github.com/TopiaNetwork/blockproducer/vm"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

// groupExecutor runs one group's transactions in order on a private overlay of the round snapshot.
type groupExecutor struct {
	log       tplog.Logger
	vmFactory *vm.VMFactory
}

func newGroupExecutor(log tplog.Logger, vmFactory *vm.VMFactory) *groupExecutor {
	return &groupExecutor{
		log:       log,
		vmFactory: vmFactory,
	}
}

// execute returns one result per group transaction. Any error is a system fault for the whole group.
func (ge *groupExecutor) execute(ctx context.Context, group *TransactionGroup, view state.View) ([]*tptx.TransactionResult, error) {
	groupView := state.NewOverlayView(view)

	results := make([]*tptx.TransactionResult, 0, group.Len())
	for i, tx := range group.Txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txResult, err := ge.executeTx(ctx, tx, group.Resources[i], groupView)
		if err != nil {
			return nil, err
		}
		groupView.Apply(txResult.Mutations)

		results = append(results, txResult)
	}

	return results, nil
}

func failedResult(txID tptx.TxID, reason string) *tptx.TransactionResult {
	return &tptx.TransactionResult{
		TxID:   txID,
		Status: tptx.ResultStatus_Failed,
		Reason: reason,
	}
}

// executeTx charges the fee and bumps the sender nonce, then runs the contract. A failed contract call keeps
// the fee and nonce writes and drops its own. A tx which can't pay or has the wrong nonce changes nothing.
func (ge *groupExecutor) executeTx(ctx context.Context, tx *tptx.Transaction, resources ResourceSet, view state.View) (*tptx.TransactionResult, error) {
	txID, err := tx.TxID()
	if err != nil {
		return nil, err
	}
	from := tx.Head.FromAddr

	nonce, err := tpvmcmm.ReadUint64(view, tptx.NonceResource(from))
	if err != nil {
		return nil, err
	}
	if tx.Head.Nonce != nonce+1 {
		return failedResult(txID, fmt.Sprintf("invalid nonce: expected %d, got %d", nonce+1, tx.Head.Nonce)), nil
	}

	balance, err := tpvmcmm.ReadUint64(view, tptx.BalanceResource(from))
	if err != nil {
		return nil, err
	}
	if balance < tx.Head.Fee {
		return failedResult(txID, fmt.Sprintf("insufficient balance for fee: have %d, fee %d", balance, tx.Head.Fee)), nil
	}

	txView := state.NewOverlayView(view)
	txView.Set(tptx.BalanceResource(from), tpcmm.Uint64ToBytes(balance-tx.Head.Fee))
	txView.Set(tptx.NonceResource(from), tpcmm.Uint64ToBytes(nonce+1))

	txResult := &tptx.TransactionResult{
		TxID:      txID,
		Status:    tptx.ResultStatus_Success,
		FeeCharge: tx.Head.Fee,
	}

	executor := ge.vmFactory.GetVM(tx.Head.Category)
	if executor == nil {
		txResult.Status = tptx.ResultStatus_Failed
		txResult.Reason = fmt.Sprintf("no executor for category %s", tx.Head.Category)
		txResult.Mutations = txView.Mutations()
		return txResult, nil
	}

	runResult, err := executor.Run(ctx, tx, txView)
	if err != nil {
		return nil, fmt.Errorf("tx %s: %w", txID, err)
	}
	if runResult == nil {
		return nil, fmt.Errorf("tx %s: executor returned no result", txID)
	}

	switch runResult.Status {
	case tptx.ResultStatus_Success:
		for _, m := range runResult.Mutations {
			if !resources.Covers(m.Resource) {
				return nil, fmt.Errorf("%w: tx %s wrote %s", ErrIsolationViolation, txID, m.Resource)
			}
		}
		txView.Apply(runResult.Mutations)
		txResult.Logs = runResult.Logs
	case tptx.ResultStatus_Failed:
		txResult.Status = tptx.ResultStatus_Failed
		txResult.Reason = runResult.Reason
	default:
		return nil, fmt.Errorf("tx %s: executor returned status %s", txID, runResult.Status)
	}

	txResult.Mutations = txView.Mutations()

	return txResult, nil
}
