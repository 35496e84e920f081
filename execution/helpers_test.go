package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	"github.com/TopiaNetwork/blockproducer/vm"
)

const testContract = tpcrtypes.Address("script-contract")

var errScriptCrash = errors.New("script executor crashed")

func testLogger() tplog.Logger {
	log, _ := tplog.CreateMainLogger(tplogcmm.ErrorLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	return log
}

// newTestTx builds an unsigned tx; execution never checks signatures.
func newTestTx(sender string, nonce uint64, method string, resources ...string) *tptx.Transaction {
	return &tptx.Transaction{
		Head: &tptx.TransactionHead{
			ChainID:  []byte("exec-unit"),
			Category: tptx.TransactionCategory_Native,
			Version:  uint32(tptx.Transaction_V1),
			FromAddr: tpcrtypes.Address(sender),
			Nonce:    nonce,
			Fee:      1,
		},
		Data: &tptx.TransactionData{
			Contract: testContract,
			Method:   method,
			Params:   []byte(strings.Join(resources, ",")),
		},
	}
}

type mapView map[tptx.ResourceID][]byte

func (mv mapView) Read(res tptx.ResourceID) ([]byte, bool, error) {
	v, ok := mv[res]
	return v, ok, nil
}

func fundedView(balance uint64, senders ...string) mapView {
	mv := make(mapView)
	for _, s := range senders {
		mv[tptx.BalanceResource(tpcrtypes.Address(s))] = tpcmm.Uint64ToBytes(balance)
	}
	return mv
}

// scriptExecutor interprets the method name:
//   write    appends "sender:nonce;" to every listed resource
//   fail     contract-level failure
//   crash    executor error
//   escape   writes a resource it didn't declare
//   panic    panics
//   hang     blocks until ctx is done
//   unknown  resource detection fails
type scriptExecutor struct {
	mu      sync.Mutex
	crashes map[tptx.TxID]int
	runs    map[tptx.TxID]int
}

func newScriptExecutor() *scriptExecutor {
	return &scriptExecutor{
		crashes: make(map[tptx.TxID]int),
		runs:    make(map[tptx.TxID]int),
	}
}

// crashTimes makes tx crash on its first n runs.
func (se *scriptExecutor) crashTimes(tx *tptx.Transaction, n int) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.crashes[tx.MustTxID()] = n
}

func (se *scriptExecutor) runCount(tx *tptx.Transaction) int {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.runs[tx.MustTxID()]
}

func (se *scriptExecutor) Version() int                                        { return 1 }
func (se *scriptExecutor) Category() tptx.TransactionCategory                  { return tptx.TransactionCategory_Native }
func (se *scriptExecutor) Enable() bool                                        { return true }
func (se *scriptExecutor) UpdateState(bool)                                    {}
func (se *scriptExecutor) SetLogger(level tplogcmm.LogLevel, log tplog.Logger) {}

func (se *scriptExecutor) Resources(tx *tptx.Transaction) ([]tptx.ResourceID, error) {
	if tx.Data.Method == "unknown" {
		return nil, errors.New("unknown method")
	}
	var ids []tptx.ResourceID
	for _, r := range strings.Split(string(tx.Data.Params), ",") {
		if r != "" {
			ids = append(ids, tptx.ResourceID(r))
		}
	}
	return ids, nil
}

func (se *scriptExecutor) Run(ctx context.Context, tx *tptx.Transaction, view state.View) (*tptx.TransactionResult, error) {
	txID := tx.MustTxID()

	se.mu.Lock()
	se.runs[txID]++
	crash := se.crashes[txID] > 0
	if crash {
		se.crashes[txID]--
	}
	se.mu.Unlock()

	if crash {
		return nil, errScriptCrash
	}

	switch tx.Data.Method {
	case "fail":
		return &tptx.TransactionResult{TxID: txID, Status: tptx.ResultStatus_Failed, Reason: "scripted failure"}, nil
	case "crash":
		return nil, errScriptCrash
	case "panic":
		panic("scripted panic")
	case "hang":
		<-ctx.Done()
		return nil, ctx.Err()
	case "escape":
		return &tptx.TransactionResult{
			TxID:      txID,
			Status:    tptx.ResultStatus_Success,
			Mutations: []*tptx.Mutation{{Resource: "undeclared", Value: []byte{1}}},
		}, nil
	}

	ids, _ := se.Resources(tx)
	mark := []byte(fmt.Sprintf("%s:%d;", tx.Head.FromAddr, tx.Head.Nonce))
	var mutations []*tptx.Mutation
	for _, id := range ids {
		old, _, err := view.Read(id)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, &tptx.Mutation{Resource: id, Value: append(tpcmm.BytesCopy(old), mark...)})
	}

	return &tptx.TransactionResult{TxID: txID, Status: tptx.ResultStatus_Success, Mutations: mutations}, nil
}

func newTestFactory(t *testing.T, executor vm.ContractExecutor) *vm.VMFactory {
	f := vm.NewVMFactory()
	require.NoError(t, f.RegisterVM(executor))
	return f
}

func newTestScheduler(t *testing.T, workers int, retries uint64, timeout time.Duration, factory *vm.VMFactory) ExecutionScheduler {
	conf := &configuration.ExecutionConfiguration{
		WorkerCount:     workers,
		GroupTimeout:    timeout,
		MaxGroupRetries: retries,
		RetryBackoff:    time.Millisecond,
	}

	scheduler, err := NewExecutionScheduler(testLogger(), t.Name(), actor.NewActorSystem(), conf, factory, nil)
	require.NoError(t, err)
	t.Cleanup(scheduler.Stop)

	return scheduler
}

func txIDs(txs []*tptx.Transaction) []tptx.TxID {
	ids := make([]tptx.TxID, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.MustTxID())
	}
	return ids
}
