package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"

	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

type executeGroupRequest struct {
	ctx     context.Context
	round   uint64
	attempt int
	group   *TransactionGroup
	view    state.View
}

type executeGroupResponse struct {
	workerID int
	results  []*tptx.TransactionResult
	err      error
}

// WorkerActor executes one group per request, strictly sequentially; the mailbox queues the rest.
type WorkerActor struct {
	id       int
	log      tplog.Logger
	executor *groupExecutor
}

func createWorkerActor(log tplog.Logger, sysActor *actor.ActorSystem, poolName string, id int, executor *groupExecutor) (*actor.PID, error) {
	wActor := &WorkerActor{
		id:       id,
		log:      log,
		executor: executor,
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return wActor
	})

	return sysActor.Root.SpawnNamed(props, fmt.Sprintf("%s-worker-%d", poolName, id))
}

func (wa *WorkerActor) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actor.Started:
		wa.log.Debugf("Worker %d started", wa.id)
	case *actor.Stopping:
		wa.log.Debugf("Worker %d stopping", wa.id)
	case *executeGroupRequest:
		actorCtx.Respond(wa.handle(msg))
	}
}

func (wa *WorkerActor) handle(req *executeGroupRequest) (resp *executeGroupResponse) {
	resp = &executeGroupResponse{workerID: wa.id}

	defer func() {
		if rtn := recover(); rtn != nil {
			wa.log.Errorf("Worker %d panic: round %d group %d, exception %v", wa.id, req.round, req.group.Index, rtn)
			resp.results = nil
			resp.err = NewSystemError(req.round, req.group.Index, wa.id, fmt.Errorf("%w: %v", ErrWorkerPanic, rtn))
		}
	}()

	if err := req.ctx.Err(); err != nil {
		resp.err = err
		return resp
	}

	startAt := time.Now()
	results, err := wa.executor.execute(req.ctx, req.group, req.view)
	if err != nil {
		wa.log.Warnf("Worker %d failed: round %d group %d attempt %d, err %v", wa.id, req.round, req.group.Index, req.attempt, err)
		resp.err = NewSystemError(req.round, req.group.Index, wa.id, err)
		return resp
	}

	wa.log.Debugf("Worker %d executed: round %d group %d txs %d, cost %v", wa.id, req.round, req.group.Index, len(results), time.Since(startAt))
	resp.results = results

	return resp
}
