package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceBlockProducer = "blockproducer"
	subsystemScheduler     = "scheduler"
)

type ExecutionMetrics interface {
	RoundExecuted(groups int, txs int)

	RoundAborted()

	GroupRetried()

	GroupExecuted(duration time.Duration)
}

type ExecutionCollector struct {
	roundsTotal         prometheus.Counter
	roundsAbortedTotal  prometheus.Counter
	groupsPerRound      prometheus.Histogram
	txsPerRound         prometheus.Histogram
	groupRetriesTotal   prometheus.Counter
	groupExecuteSeconds prometheus.Histogram
}

// NewExecutionCollector registers the scheduler metrics with registerer.
func NewExecutionCollector(registerer prometheus.Registerer) (*ExecutionCollector, error) {
	ec := &ExecutionCollector{
		roundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "rounds_total",
			Help:      "number of rounds whose groups were all executed",
		}),
		roundsAbortedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "rounds_aborted_total",
			Help:      "number of rounds aborted after a group exhausted its retries",
		}),
		groupsPerRound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "groups_per_round",
			Help:      "number of independent transaction groups in a round",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		txsPerRound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "txs_per_round",
			Help:      "number of transactions executed in a round",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		groupRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "group_retries_total",
			Help:      "number of group re-executions after a system error",
		}),
		groupExecuteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBlockProducer,
			Subsystem: subsystemScheduler,
			Name:      "group_execute_seconds",
			Help:      "time a worker spent on one group",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		ec.roundsTotal,
		ec.roundsAbortedTotal,
		ec.groupsPerRound,
		ec.txsPerRound,
		ec.groupRetriesTotal,
		ec.groupExecuteSeconds,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return ec, nil
}

func (ec *ExecutionCollector) RoundExecuted(groups int, txs int) {
	ec.roundsTotal.Inc()
	ec.groupsPerRound.Observe(float64(groups))
	ec.txsPerRound.Observe(float64(txs))
}

func (ec *ExecutionCollector) RoundAborted() {
	ec.roundsAbortedTotal.Inc()
}

func (ec *ExecutionCollector) GroupRetried() {
	ec.groupRetriesTotal.Inc()
}

func (ec *ExecutionCollector) GroupExecuted(duration time.Duration) {
	ec.groupExecuteSeconds.Observe(duration.Seconds())
}

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) RoundExecuted(groups int, txs int) {}
func (nc *NoopCollector) RoundAborted()                     {}
func (nc *NoopCollector) GroupRetried()                     {}
func (nc *NoopCollector) GroupExecuted(time.Duration)       {}
