package execution

import (
	"fmt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

// MergedExecutionLog is every group's results concatenated in group order. Mutations is what the commit
// applies: the groups' mutations in the same order followed by the coinbase fee credit.
type MergedExecutionLog struct {
	Round     uint64
	Txs       []*tptx.Transaction
	Results   []*tptx.TransactionResult
	Mutations []*tptx.Mutation
	FeeTotal  uint64
}

func (l *MergedExecutionLog) Len() int {
	return len(l.Txs)
}

// Merge concatenates groupResults in group order and credits the charged fees to coinbase. base is the
// round snapshot the groups executed against.
func Merge(round uint64, groups []*TransactionGroup, groupResults [][]*tptx.TransactionResult, base state.View, coinbase tpcrtypes.Address) (*MergedExecutionLog, error) {
	if len(groups) != len(groupResults) {
		return nil, fmt.Errorf("merge: %d groups, %d result lists", len(groups), len(groupResults))
	}

	merged := &MergedExecutionLog{Round: round}
	for i, group := range groups {
		results := groupResults[i]
		if len(results) != group.Len() {
			return nil, fmt.Errorf("merge: group %d has %d txs, %d results", group.Index, group.Len(), len(results))
		}

		for t, tx := range group.Txs {
			txResult := results[t]
			if txResult == nil {
				return nil, fmt.Errorf("merge: group %d tx %d without result", group.Index, t)
			}

			fee, err := tpcmm.SafeAddUint64(merged.FeeTotal, txResult.FeeCharge)
			if err != nil {
				return nil, err
			}
			merged.FeeTotal = fee

			merged.Txs = append(merged.Txs, tx)
			merged.Results = append(merged.Results, txResult)
			merged.Mutations = append(merged.Mutations, txResult.Mutations...)
		}
	}

	if merged.FeeTotal == 0 || coinbase == "" || coinbase == tpcrtypes.UndefAddress {
		return merged, nil
	}

	after := state.NewOverlayView(base)
	after.Apply(merged.Mutations)

	coinbaseRes := tptx.BalanceResource(coinbase)
	balance, err := tpvmcmm.ReadUint64(after, coinbaseRes)
	if err != nil {
		return nil, err
	}
	balance, err = tpcmm.SafeAddUint64(balance, merged.FeeTotal)
	if err != nil {
		return nil, err
	}
	merged.Mutations = append(merged.Mutations, &tptx.Mutation{Resource: coinbaseRes, Value: tpcmm.Uint64ToBytes(balance)})

	return merged, nil
}
