package node

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/TopiaNetwork/blockproducer/eventhub"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

// abortWarnThreshold is the number of consecutive aborted rounds after which every further abort
// is logged as a warning.
const abortWarnThreshold = 3

type NodeHandler interface {
	Register(ctx context.Context, observer eventhub.EventObserver) error

	ProcessBlockProduced(ctx context.Context, data interface{}) error

	ProcessRoundAborted(ctx context.Context, data interface{}) error

	LatestHeight() uint64

	ConsecutiveAborts() uint64
}

type nodeHandler struct {
	log               tplog.Logger
	latestHeight      *atomic.Uint64
	consecutiveAborts *atomic.Uint64
}

func NewNodeHandler(log tplog.Logger) NodeHandler {
	return &nodeHandler{
		log:               log,
		latestHeight:      atomic.NewUint64(0),
		consecutiveAborts: atomic.NewUint64(0),
	}
}

func (handler *nodeHandler) Register(ctx context.Context, observer eventhub.EventObserver) error {
	if _, err := observer.Observe(ctx, eventhub.EventName_BlockProduced, handler.ProcessBlockProduced); err != nil {
		return err
	}
	if _, err := observer.Observe(ctx, eventhub.EventName_RoundAborted, handler.ProcessRoundAborted); err != nil {
		return err
	}

	return nil
}

func (handler *nodeHandler) ProcessBlockProduced(ctx context.Context, data interface{}) error {
	ev, ok := data.(*eventhub.BlockProducedEvent)
	if !ok {
		return fmt.Errorf("unexpected block produced data %T", data)
	}

	handler.latestHeight.Store(ev.Block.Head.Height)
	handler.consecutiveAborts.Store(0)
	handler.log.Infof("Block %d produced in round %d: txs=%d", ev.Block.Head.Height, ev.Round, ev.Block.Head.TxCount)

	return nil
}

func (handler *nodeHandler) ProcessRoundAborted(ctx context.Context, data interface{}) error {
	ev, ok := data.(*eventhub.RoundAbortedEvent)
	if !ok {
		return fmt.Errorf("unexpected round aborted data %T", data)
	}

	aborts := handler.consecutiveAborts.Inc()
	if aborts >= abortWarnThreshold {
		handler.log.Warnf("%d consecutive rounds aborted, last round %d height %d: %s", aborts, ev.Round, ev.Height, ev.Reason)
	} else {
		handler.log.Infof("Round %d for height %d aborted, %d txs requeued: %s", ev.Round, ev.Height, ev.Requeued, ev.Reason)
	}

	return nil
}

func (handler *nodeHandler) LatestHeight() uint64 {
	return handler.latestHeight.Load()
}

func (handler *nodeHandler) ConsecutiveAborts() uint64 {
	return handler.consecutiveAborts.Load()
}
