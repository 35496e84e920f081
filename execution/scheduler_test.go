package execution

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	"github.com/TopiaNetwork/blockproducer/vm/mock"
)

const testCoinbase = tpcrtypes.Address("coinbase")

func readAfter(t *testing.T, base state.View, mutations []*tptx.Mutation, res tptx.ResourceID) []byte {
	ov := state.NewOverlayView(base)
	ov.Apply(mutations)
	v, _, err := ov.Read(res)
	require.NoError(t, err)
	return v
}

func TestSchedulerExecuteInGroupOrder(t *testing.T) {
	executor := newScriptExecutor()
	factory := newTestFactory(t, executor)
	scheduler := newTestScheduler(t, 2, 1, time.Second, factory)

	tx1 := newTestTx("A", 1, "write", "R1")
	tx2 := newTestTx("B", 1, "write", "R2")
	tx3 := newTestTx("A", 2, "write", "R1")
	groups := NewGrouper(NewResourceDetector(testLogger(), factory)).Group([]*tptx.Transaction{tx1, tx2, tx3})

	view := fundedView(100, "A", "B")
	merged, err := scheduler.Execute(context.Background(), 1, groups, view, testCoinbase)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), merged.Round)
	assert.Equal(t, txIDs([]*tptx.Transaction{tx1, tx3, tx2}), txIDs(merged.Txs))
	require.Equal(t, 3, len(merged.Results))
	for i, txResult := range merged.Results {
		assert.Equal(t, merged.Txs[i].MustTxID(), txResult.TxID)
		assert.Equal(t, tptx.ResultStatus_Success, txResult.Status)
		assert.Equal(t, uint64(1), txResult.FeeCharge)
	}
	assert.Equal(t, uint64(3), merged.FeeTotal)

	assert.Equal(t, []byte("A:1;A:2;"), readAfter(t, view, merged.Mutations, "R1"))
	assert.Equal(t, []byte("B:1;"), readAfter(t, view, merged.Mutations, "R2"))
	assert.Equal(t, uint64(98), tpcmm.BytesToUint64(readAfter(t, view, merged.Mutations, tptx.BalanceResource("A"))))
	assert.Equal(t, uint64(2), tpcmm.BytesToUint64(readAfter(t, view, merged.Mutations, tptx.NonceResource("A"))))

	last := merged.Mutations[len(merged.Mutations)-1]
	assert.Equal(t, tptx.BalanceResource(testCoinbase), last.Resource)
	assert.Equal(t, uint64(3), tpcmm.BytesToUint64(last.Value))

	assert.Equal(t, SchedulerState_Idle, scheduler.State())
}

func TestSchedulerResultsFollowSliceOrder(t *testing.T) {
	factory := newTestFactory(t, newScriptExecutor())
	scheduler := newTestScheduler(t, 2, 1, time.Second, factory)

	tx1 := newTestTx("A", 1, "write", "R1")
	tx2 := newTestTx("B", 1, "write", "R2")
	groups := []*TransactionGroup{
		{Index: 1, Txs: []*tptx.Transaction{tx1}, Positions: []int{0}},
		{Index: 0, Txs: []*tptx.Transaction{tx2}, Positions: []int{1}},
		{Index: 7, Txs: []*tptx.Transaction{newTestTx("C", 1, "write", "R3")}, Positions: []int{2}},
	}

	merged, err := scheduler.Execute(context.Background(), 1, groups, fundedView(100, "A", "B", "C"), testCoinbase)
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())
	for i, txResult := range merged.Results {
		assert.Equal(t, merged.Txs[i].MustTxID(), txResult.TxID)
	}
	assert.Equal(t, tx1.MustTxID(), merged.Txs[0].MustTxID())
	assert.Equal(t, tx2.MustTxID(), merged.Txs[1].MustTxID())
}

func TestSchedulerExecuteNoGroups(t *testing.T) {
	scheduler := newTestScheduler(t, 2, 1, time.Second, newTestFactory(t, newScriptExecutor()))

	merged, err := scheduler.Execute(context.Background(), 7, nil, mapView{}, testCoinbase)
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
	assert.Equal(t, 0, len(merged.Mutations))
	assert.Equal(t, uint64(0), merged.FeeTotal)
}

func TestSchedulerFailedTxKeepsFee(t *testing.T) {
	factory := newTestFactory(t, newScriptExecutor())
	scheduler := newTestScheduler(t, 2, 1, time.Second, factory)

	failing := newTestTx("A", 1, "fail", "R1")
	badNonce := newTestTx("B", 5, "write", "R2")
	broke := newTestTx("C", 1, "write", "R3")
	groups := NewGrouper(NewResourceDetector(testLogger(), factory)).Group([]*tptx.Transaction{failing, badNonce, broke})

	view := fundedView(10, "A", "B")
	merged, err := scheduler.Execute(context.Background(), 1, groups, view, "")
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())

	assert.Equal(t, tptx.ResultStatus_Failed, merged.Results[0].Status)
	assert.Equal(t, "scripted failure", merged.Results[0].Reason)
	assert.Equal(t, uint64(1), merged.Results[0].FeeCharge)
	assert.Equal(t, 2, len(merged.Results[0].Mutations))

	assert.Equal(t, tptx.ResultStatus_Failed, merged.Results[1].Status)
	assert.Equal(t, uint64(0), merged.Results[1].FeeCharge)
	assert.Equal(t, 0, len(merged.Results[1].Mutations))

	assert.Equal(t, tptx.ResultStatus_Failed, merged.Results[2].Status)
	assert.Equal(t, uint64(0), merged.Results[2].FeeCharge)

	assert.Nil(t, readAfter(t, view, merged.Mutations, "R1"))
	assert.Equal(t, uint64(9), tpcmm.BytesToUint64(readAfter(t, view, merged.Mutations, tptx.BalanceResource("A"))))
	assert.Equal(t, uint64(1), merged.FeeTotal)
	// no coinbase, no credit
	assert.Equal(t, 2, len(merged.Mutations))
}

func TestSchedulerRetryExhaustedAbortsRound(t *testing.T) {
	ctrl := gomock.NewController(t)

	executor := mock.NewMockContractExecutor(ctrl)
	executor.EXPECT().Category().Return(tptx.TransactionCategory_Native).AnyTimes()
	executor.EXPECT().Enable().Return(true).AnyTimes()
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errScriptCrash).Times(2)

	scheduler := newTestScheduler(t, 2, 1, time.Second, newTestFactory(t, executor))

	tx := newTestTx("A", 1, "write", "R1")
	groups := []*TransactionGroup{{
		Index:     0,
		Txs:       []*tptx.Transaction{tx},
		Positions: []int{0},
		Resources: []ResourceSet{NewResourceSet("R1", tptx.BalanceResource("A"), tptx.NonceResource("A"))},
	}}

	merged, err := scheduler.Execute(context.Background(), 3, groups, fundedView(10, "A"), testCoinbase)
	assert.Nil(t, merged)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRoundAborted))
	assert.True(t, errors.Is(err, ErrGroupRetryExhausted))

	var abortErr *AbortError
	require.True(t, errors.As(err, &abortErr))
	assert.Equal(t, uint64(3), abortErr.Round)
	assert.Equal(t, SchedulerState_Idle, scheduler.State())
}

func TestSchedulerRetrySucceeds(t *testing.T) {
	executor := newScriptExecutor()
	factory := newTestFactory(t, executor)
	scheduler := newTestScheduler(t, 3, 1, time.Second, factory)

	tx1 := newTestTx("A", 1, "write", "R1")
	tx2 := newTestTx("B", 1, "write", "R2")
	executor.crashTimes(tx2, 1)
	groups := NewGrouper(NewResourceDetector(testLogger(), factory)).Group([]*tptx.Transaction{tx1, tx2})

	view := fundedView(10, "A", "B")
	merged, err := scheduler.Execute(context.Background(), 1, groups, view, testCoinbase)
	require.NoError(t, err)
	assert.Equal(t, 2, executor.runCount(tx2))
	assert.Equal(t, 1, executor.runCount(tx1))
	assert.Equal(t, []byte("B:1;"), readAfter(t, view, merged.Mutations, "R2"))
}

func TestSchedulerSystemFaultsAbort(t *testing.T) {
	testCases := []struct {
		name    string
		method  string
		timeout time.Duration
	}{
		{"isolation", "escape", time.Second},
		{"panic", "panic", time.Second},
		{"crash", "crash", time.Second},
		{"timeout", "hang", 50 * time.Millisecond},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			factory := newTestFactory(t, newScriptExecutor())
			scheduler := newTestScheduler(t, 2, 1, tc.timeout, factory)

			txs := []*tptx.Transaction{
				newTestTx("A", 1, "write", "R1"),
				newTestTx("B", 1, tc.method, "R2"),
			}
			groups := NewGrouper(NewResourceDetector(testLogger(), factory)).Group(txs)

			merged, err := scheduler.Execute(context.Background(), 1, groups, fundedView(10, "A", "B"), testCoinbase)
			assert.Nil(t, merged)
			assert.True(t, errors.Is(err, ErrRoundAborted))
			assert.True(t, errors.Is(err, ErrGroupRetryExhausted))
		})
	}
}

func TestSchedulerCanceledRound(t *testing.T) {
	factory := newTestFactory(t, newScriptExecutor())
	scheduler := newTestScheduler(t, 1, 1, time.Second, factory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups := NewGrouper(NewResourceDetector(testLogger(), factory)).Group([]*tptx.Transaction{newTestTx("A", 1, "write", "R1")})
	_, err := scheduler.Execute(ctx, 1, groups, fundedView(10, "A"), testCoinbase)
	assert.True(t, errors.Is(err, ErrRoundAborted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrGroupRetryExhausted))
}

func TestSchedulerStopped(t *testing.T) {
	scheduler := newTestScheduler(t, 1, 1, time.Second, newTestFactory(t, newScriptExecutor()))
	scheduler.Stop()

	assert.Equal(t, SchedulerState_Stopped, scheduler.State())
	_, err := scheduler.Execute(context.Background(), 1, nil, mapView{}, testCoinbase)
	assert.Equal(t, ErrSchedulerStopped, err)
}

// Parallel execution must be observably identical to running the batch serially in batch order.
func TestSchedulerMatchesSerialExecution(t *testing.T) {
	executor := newScriptExecutor()
	factory := newTestFactory(t, executor)
	detector := NewResourceDetector(testLogger(), factory)
	grouper := NewGrouper(detector)
	serial := newGroupExecutor(testLogger(), factory)

	single := newTestScheduler(t, 1, 0, time.Second, factory)
	parallel := newTestScheduler(t, 4, 0, time.Second, factory)

	rapid.Check(t, func(rt *rapid.T) {
		txs := drawBatch(rt)
		view := fundedView(uint64(rapid.IntRange(0, 4).Draw(rt, "balance")), "A", "B", "C", "D", "E")

		all := &TransactionGroup{}
		for i, tx := range txs {
			all.Txs = append(all.Txs, tx)
			all.Positions = append(all.Positions, i)
			all.Resources = append(all.Resources, detector.Detect(tx))
		}
		serialResults, err := serial.execute(context.Background(), all, view)
		if err != nil {
			rt.Fatalf("serial execution: %v", err)
		}
		serialState := state.NewOverlayView(view)
		expected := make(map[tptx.TxID]*tptx.TransactionResult)
		for _, txResult := range serialResults {
			serialState.Apply(txResult.Mutations)
			expected[txResult.TxID] = txResult
		}

		groups := grouper.Group(txs)
		var logs []*MergedExecutionLog
		for _, scheduler := range []ExecutionScheduler{single, parallel} {
			merged, err := scheduler.Execute(context.Background(), 1, groups, view, "")
			if err != nil {
				rt.Fatalf("execute: %v", err)
			}
			logs = append(logs, merged)

			if merged.Len() != len(txs) {
				rt.Fatalf("merged %d txs of %d", merged.Len(), len(txs))
			}
			for _, txResult := range merged.Results {
				if !reflect.DeepEqual(expected[txResult.TxID], txResult) {
					rt.Fatalf("tx %s: parallel %v, serial %v", txResult.TxID, txResult, expected[txResult.TxID])
				}
			}

			parallelState := state.NewOverlayView(view)
			parallelState.Apply(merged.Mutations)
			for _, m := range serialState.Mutations() {
				v, _, _ := parallelState.Read(m.Resource)
				if !reflect.DeepEqual(v, m.Value) {
					rt.Fatalf("resource %s: parallel %x, serial %x", m.Resource, v, m.Value)
				}
			}
		}

		if !reflect.DeepEqual(logs[0].Mutations, logs[1].Mutations) {
			rt.Fatalf("worker count changed the merged mutations")
		}
	})
}
