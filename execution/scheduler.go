package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/sethvargo/go-retry"
	"github.com/subchen/go-trylock/v2"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/execution/metrics"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	logcomm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	"github.com/TopiaNetwork/blockproducer/vm"
)

const (
	MOD_NAME = "execution"
)

type SchedulerState uint32

const (
	SchedulerState_Unknown SchedulerState = iota
	SchedulerState_Idle
	SchedulerState_Executing
	SchedulerState_Merging
	SchedulerState_Stopped
)

// AbortError ends a round without results. errors.Is matches it against ErrRoundAborted.
type AbortError struct {
	Round uint64
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%v: round %d: %v", ErrRoundAborted, e.Round, e.Cause)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

func (e *AbortError) Is(target error) bool {
	return target == ErrRoundAborted
}

type ExecutionScheduler interface {
	State() SchedulerState

	// Execute runs groups against view and merges their results in group order. On error nothing
	// of the round survives and the caller owns requeueing the batch.
	Execute(ctx context.Context, round uint64, groups []*TransactionGroup, view state.View, coinbase tpcrtypes.Address) (*MergedExecutionLog, error)

	Stop()
}

// executionScheduler is the requestor side of the worker pool: it dispatches groups to worker actors as
// they free up and waits for their replies.
type executionScheduler struct {
	log            tplog.Logger
	conf           *configuration.ExecutionConfiguration
	sysActor       *actor.ActorSystem
	workers        []*actor.PID
	idle           chan int
	executeMutex   trylock.TryLocker
	schedulerState *atomic.Uint32
	metrics        metrics.ExecutionMetrics
}

func NewExecutionScheduler(log tplog.Logger, name string, sysActor *actor.ActorSystem, conf *configuration.ExecutionConfiguration, vmFactory *vm.VMFactory, exeMetrics metrics.ExecutionMetrics) (ExecutionScheduler, error) {
	exeLog := tplog.CreateModuleLogger(logcomm.InfoLevel, MOD_NAME, log)
	conf = conf.Check()
	if exeMetrics == nil {
		exeMetrics = metrics.NewNoopCollector()
	}

	scheduler := &executionScheduler{
		log:            exeLog,
		conf:           conf,
		sysActor:       sysActor,
		idle:           make(chan int, conf.WorkerCount),
		executeMutex:   trylock.New(),
		schedulerState: atomic.NewUint32(uint32(SchedulerState_Idle)),
		metrics:        exeMetrics,
	}

	workerLog := tplog.CreateModuleLogger(logcomm.InfoLevel, "worker", log)
	executor := newGroupExecutor(workerLog, vmFactory)
	for i := 0; i < conf.WorkerCount; i++ {
		pid, err := createWorkerActor(workerLog, sysActor, name, i, executor)
		if err != nil {
			scheduler.Stop()
			return nil, fmt.Errorf("spawn worker %d: %w", i, err)
		}
		scheduler.workers = append(scheduler.workers, pid)
		scheduler.idle <- i
	}

	exeLog.Infof("Execution scheduler started: workers=%d, groupTimeout=%v, maxGroupRetries=%d", conf.WorkerCount, conf.GroupTimeout, conf.MaxGroupRetries)

	return scheduler, nil
}

func (scheduler *executionScheduler) State() SchedulerState {
	return SchedulerState(scheduler.schedulerState.Load())
}

func (scheduler *executionScheduler) acquire(ctx context.Context) (int, error) {
	select {
	case id := <-scheduler.idle:
		return id, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (scheduler *executionScheduler) release(id int) {
	scheduler.idle <- id
}

// acquireOther swaps the failed worker for another one. The failed worker is reused when it is
// the only one or nothing else frees up within the retry backoff.
func (scheduler *executionScheduler) acquireOther(ctx context.Context, failed int) (int, error) {
	scheduler.release(failed)

	id, err := scheduler.acquire(ctx)
	if err != nil || id != failed || len(scheduler.workers) == 1 {
		return id, err
	}

	wait := scheduler.conf.RetryBackoff
	if wait <= 0 {
		wait = time.Millisecond
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case other := <-scheduler.idle:
		scheduler.release(id)
		return other, nil
	case <-ctx.Done():
		scheduler.release(id)
		return -1, ctx.Err()
	case <-timer.C:
		return id, nil
	}
}

func (scheduler *executionScheduler) request(ctx context.Context, round uint64, attempt int, group *TransactionGroup, view state.View, workerID int) ([]*tptx.TransactionResult, error) {
	groupCtx, cancel := context.WithTimeout(ctx, scheduler.conf.GroupTimeout)
	defer cancel()

	startAt := time.Now()
	req := &executeGroupRequest{
		ctx:     groupCtx,
		round:   round,
		attempt: attempt,
		group:   group,
		view:    view,
	}
	reply, err := scheduler.sysActor.Root.RequestFuture(scheduler.workers[workerID], req, scheduler.conf.GroupTimeout).Result()
	scheduler.metrics.GroupExecuted(time.Since(startAt))

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, actor.ErrTimeout) {
			err = ErrGroupTimeout
		}
		return nil, NewSystemError(round, group.Index, workerID, err)
	}

	resp, ok := reply.(*executeGroupResponse)
	if !ok {
		return nil, NewSystemError(round, group.Index, workerID, fmt.Errorf("unexpected worker reply %T", reply))
	}
	if resp.err != nil {
		if errors.Is(resp.err, context.DeadlineExceeded) {
			return nil, NewSystemError(round, group.Index, workerID, ErrGroupTimeout)
		}
		var sysErr *SystemError
		if !errors.As(resp.err, &sysErr) {
			sysErr = NewSystemError(round, group.Index, workerID, resp.err)
		}
		return nil, sysErr
	}
	if len(resp.results) != group.Len() {
		return nil, NewSystemError(round, group.Index, workerID, fmt.Errorf("%d results for %d txs", len(resp.results), group.Len()))
	}

	return resp.results, nil
}

// executeGroup owns workerID on entry and releases whatever worker it holds on return.
func (scheduler *executionScheduler) executeGroup(ctx context.Context, round uint64, group *TransactionGroup, view state.View, workerID int) ([]*tptx.TransactionResult, error) {
	held := workerID
	defer func() {
		if held >= 0 {
			scheduler.release(held)
		}
	}()

	backoff := retry.WithMaxRetries(uint64(scheduler.conf.MaxGroupRetries), retry.NewConstant(scheduler.conf.RetryBackoff))

	var results []*tptx.TransactionResult
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			scheduler.metrics.GroupRetried()
			next, err := scheduler.acquireOther(ctx, held)
			held = next
			if err != nil {
				return err
			}
		}
		attempt++

		res, err := scheduler.request(ctx, round, attempt, group, view, held)
		if err == nil {
			results = res
			return nil
		}

		var sysErr *SystemError
		if errors.As(err, &sysErr) {
			scheduler.log.Warnf("Group failed: round %d group %d worker %d attempt %d, err %v", round, group.Index, held, attempt, err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var sysErr *SystemError
		if errors.As(err, &sysErr) {
			return nil, fmt.Errorf("%w: group %d after %d attempts: %v", ErrGroupRetryExhausted, group.Index, attempt, err)
		}
		return nil, err
	}

	return results, nil
}

func (scheduler *executionScheduler) Execute(ctx context.Context, round uint64, groups []*TransactionGroup, view state.View, coinbase tpcrtypes.Address) (*MergedExecutionLog, error) {
	if scheduler.State() == SchedulerState_Stopped {
		return nil, ErrSchedulerStopped
	}
	if ok := scheduler.executeMutex.TryLockTimeout(scheduler.conf.GroupTimeout); !ok {
		scheduler.log.Errorf("Round %d rejected: %v", round, ErrSchedulerBusy)
		return nil, ErrSchedulerBusy
	}
	defer scheduler.executeMutex.Unlock()

	scheduler.schedulerState.Store(uint32(SchedulerState_Executing))
	defer scheduler.schedulerState.CAS(uint32(SchedulerState_Executing), uint32(SchedulerState_Idle))

	groupResults := make([][]*tptx.TransactionResult, len(groups))

	g, gCtx := errgroup.WithContext(ctx)
	var dispatchErr error
	for i, group := range groups {
		i, group := i, group

		workerID, err := scheduler.acquire(gCtx)
		if err != nil {
			dispatchErr = err
			break
		}

		scheduler.log.Debugf("Dispatch group: round %d group %d txs %d worker %d", round, group.Index, group.Len(), workerID)

		g.Go(func() error {
			results, err := scheduler.executeGroup(gCtx, round, group, view, workerID)
			if err != nil {
				return err
			}
			groupResults[i] = results
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = dispatchErr
	}
	if err != nil {
		scheduler.metrics.RoundAborted()
		scheduler.log.Errorf("Round %d aborted: %v", round, err)
		return nil, &AbortError{Round: round, Cause: err}
	}

	scheduler.schedulerState.Store(uint32(SchedulerState_Merging))
	defer scheduler.schedulerState.CAS(uint32(SchedulerState_Merging), uint32(SchedulerState_Idle))

	merged, err := Merge(round, groups, groupResults, view, coinbase)
	if err != nil {
		scheduler.metrics.RoundAborted()
		return nil, &AbortError{Round: round, Cause: err}
	}

	scheduler.metrics.RoundExecuted(len(groups), merged.Len())
	scheduler.log.Infof("Round %d executed: groups %d txs %d fees %d", round, len(groups), merged.Len(), merged.FeeTotal)

	return merged, nil
}

func (scheduler *executionScheduler) Stop() {
	scheduler.schedulerState.Store(uint32(SchedulerState_Stopped))
	for _, pid := range scheduler.workers {
		scheduler.sysActor.Root.Poison(pid)
	}
}

func (s SchedulerState) String() string {
	switch s {
	case SchedulerState_Idle:
		return "Idle"
	case SchedulerState_Executing:
		return "Executing"
	case SchedulerState_Merging:
		return "Merging"
	case SchedulerState_Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

func (s SchedulerState) Value(state string) SchedulerState {
	switch state {
	case "Idle":
		return SchedulerState_Idle
	case "Executing":
		return SchedulerState_Executing
	case "Merging":
		return SchedulerState_Merging
	case "Stopped":
		return SchedulerState_Stopped
	default:
		return SchedulerState_Unknown
	}
}
