package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	tpchaintypes "github.com/TopiaNetwork/blockproducer/chain/types"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/configuration"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/eventhub"
	"github.com/TopiaNetwork/blockproducer/execution"
	"github.com/TopiaNetwork/blockproducer/execution/metrics"
	"github.com/TopiaNetwork/blockproducer/ledger"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	"github.com/TopiaNetwork/blockproducer/miner"
	"github.com/TopiaNetwork/blockproducer/service"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	transactionpool "github.com/TopiaNetwork/blockproducer/transaction_pool"
	"github.com/TopiaNetwork/blockproducer/vm"
	"github.com/TopiaNetwork/blockproducer/vm/native"
	"github.com/TopiaNetwork/blockproducer/vm/native/contract"
)

const MOD_NAME = "node"

var (
	ErrNodeAlreadyStarted = errors.New("node already started")
	ErrNodeStopped        = errors.New("node stopped")
)

type Node struct {
	log       tplog.Logger
	level     tplogcmm.LogLevel
	conf      *configuration.Configuration
	sysActor  *actor.ActorSystem
	handler   NodeHandler
	ledger    ledger.Ledger
	evHub     eventhub.EventHub
	txPool    transactionpool.TransactionPool
	scheduler execution.ExecutionScheduler
	miner     miner.Miner
	service   service.Service
	registry  *prometheus.Registry
	metricsSv *http.Server

	started  *atomic.Bool
	stopped  *atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	loopWG   sync.WaitGroup
}

// NewNode builds the main logger from conf and assembles the node.
func NewNode(conf *configuration.Configuration) (*Node, error) {
	conf = conf.Check()

	level, err := tplogcmm.ParseLogLevel(conf.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := tplog.ParseLogFormat(conf.Log.Format)
	if err != nil {
		return nil, err
	}
	output, err := tplog.ParseLogOutput(conf.Log.Output)
	if err != nil {
		return nil, err
	}
	mainLog, err := tplog.CreateMainLogger(level, format, output, conf.Log.FilePath)
	if err != nil {
		return nil, fmt.Errorf("create main logger: %w", err)
	}

	return NewNodeWithLogger(level, mainLog, conf)
}

// NewNodeWithLogger opens the ledger, initialises genesis on first start and wires the pool, the
// execution scheduler and the miner. The producer key is read from conf.Miner.KeyFile, relative
// paths being resolved below conf.Node.RootPath.
func NewNodeWithLogger(level tplogcmm.LogLevel, log tplog.Logger, conf *configuration.Configuration) (*Node, error) {
	conf = conf.Check()
	nodeLog := tplog.CreateModuleLogger(level, MOD_NAME, log)

	network, err := tpcrtypes.ParseNetworkType(conf.Miner.Network)
	if err != nil {
		return nil, err
	}

	cryptType, priKey, _, err := tpcrt.LoadKeyFile(keyFilePath(conf))
	if err != nil {
		return nil, fmt.Errorf("load producer key: %w", err)
	}
	if conf.Miner.CryptType != "" && conf.Miner.CryptType != cryptType.String() {
		return nil, fmt.Errorf("producer key is %s, configured crypt type %s", cryptType, conf.Miner.CryptType)
	}
	cryptService, err := tpcrt.CreateCryptService(log, cryptType)
	if err != nil {
		return nil, err
	}

	nodeLedger, err := ledger.NewLedgerFromConfig(log, ledger.LedgerID(conf.Miner.ChainID), conf.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	n, err := assemble(level, log, nodeLog, conf, network, nodeLedger, cryptService, priKey)
	if err != nil {
		if closeErr := nodeLedger.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return nil, err
	}

	return n, nil
}

func keyFilePath(conf *configuration.Configuration) string {
	if filepath.IsAbs(conf.Miner.KeyFile) {
		return conf.Miner.KeyFile
	}
	return filepath.Join(conf.Node.RootPath, conf.Miner.KeyFile)
}

func genesisAlloc(conf *configuration.GenesisConfiguration) []*tptx.Mutation {
	alloc := make([]*tptx.Mutation, 0, len(conf.Alloc))
	for _, acc := range conf.Alloc {
		alloc = append(alloc, &tptx.Mutation{
			Resource: tptx.BalanceResource(tpcrtypes.Address(acc.Address)),
			Value:    tpcmm.Uint64ToBytes(acc.Balance),
		})
	}

	return alloc
}

func newVMFactory(log tplog.Logger, network tpcrtypes.NetworkType, issuer tpcrtypes.Address) (*vm.VMFactory, error) {
	nvm := native.NewNativeVM(log)
	if err := nvm.RegisterContract(tpcrtypes.CreateNativeContractAddress(network, contract.NativeContractID_Token), contract.NewContractToken(issuer)); err != nil {
		return nil, err
	}
	if err := nvm.RegisterContract(tpcrtypes.CreateNativeContractAddress(network, contract.NativeContractID_KVStore), contract.NewContractKVStore()); err != nil {
		return nil, err
	}

	vmFactory := vm.NewVMFactory()
	if err := vmFactory.RegisterVM(nvm); err != nil {
		return nil, err
	}

	return vmFactory, nil
}

func assemble(level tplogcmm.LogLevel, log tplog.Logger, nodeLog tplog.Logger, conf *configuration.Configuration, network tpcrtypes.NetworkType,
	nodeLedger ledger.Ledger, cryptService tpcrt.CryptService, priKey tpcrtypes.PrivateKey) (*Node, error) {
	genesis, err := nodeLedger.InitGenesis(conf.Miner.ChainID, conf.Genesis.Timestamp, genesisAlloc(conf.Genesis))
	if err != nil {
		return nil, fmt.Errorf("init genesis: %w", err)
	}
	nodeLog.Infof("Ledger ready: chainID=%s genesis timestamp=%d", conf.Miner.ChainID, genesis.Head.TimeStamp)

	vmFactory, err := newVMFactory(log, network, tpcrtypes.Address(conf.Genesis.Issuer))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	exeMetrics, err := metrics.NewExecutionCollector(registry)
	if err != nil {
		return nil, err
	}

	sysActor := actor.NewActorSystem()
	evHub := eventhub.NewEventHub(level, log, MOD_NAME)

	txServant := transactionpool.NewTransactionPoolServant(tptx.NewTransactionServant(conf.Miner.ChainID, network), nodeLedger.StateStore())
	txPool, err := transactionpool.NewTransactionPool(level, log, conf.TxPool, txServant, evHub)
	if err != nil {
		return nil, err
	}

	scheduler, err := execution.NewExecutionScheduler(log, MOD_NAME, sysActor, conf.Execution, vmFactory, exeMetrics)
	if err != nil {
		return nil, err
	}

	grouper := execution.NewGrouper(execution.NewResourceDetector(log, vmFactory))
	blockMiner := miner.NewMiner(level, log, conf.Miner, nodeLedger, txPool, grouper, scheduler, cryptService, priKey, evHub)

	return &Node{
		log:       nodeLog,
		level:     level,
		conf:      conf,
		sysActor:  sysActor,
		handler:   NewNodeHandler(nodeLog),
		ledger:    nodeLedger,
		evHub:     evHub,
		txPool:    txPool,
		scheduler: scheduler,
		miner:     blockMiner,
		service:   service.NewService(level, log, nodeLedger, txPool),
		registry:  registry,
		started:   atomic.NewBool(false),
		stopped:   atomic.NewBool(false),
		stopCh:    make(chan struct{}),
	}, nil
}

func (n *Node) Service() service.Service {
	return n.service
}

func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

func (n *Node) Coinbase() tpcrtypes.Address {
	return n.miner.Coinbase()
}

func (n *Node) SubmitTransaction(ctx context.Context, tx *tptx.Transaction) (tptx.TxID, error) {
	if n.stopped.Load() {
		return "", ErrNodeStopped
	}

	return n.service.TransactionService().SubmitTx(ctx, tx)
}

// ProduceBlock runs one round immediately, independent of the production loop.
func (n *Node) ProduceBlock(ctx context.Context) (*tpchaintypes.Block, error) {
	if n.stopped.Load() {
		return nil, ErrNodeStopped
	}

	return n.miner.ProduceBlock(ctx)
}

// Start brings up the event hub and the metrics endpoint and launches the production loop, which
// runs one round per conf.Miner.BlockInterval until ctx is done or Stop is called.
func (n *Node) Start(ctx context.Context) error {
	if n.stopped.Load() {
		return ErrNodeStopped
	}
	if !n.started.CAS(false, true) {
		return ErrNodeAlreadyStarted
	}

	if err := n.evHub.Start(n.sysActor); err != nil {
		return err
	}
	if err := n.handler.Register(ctx, n.evHub); err != nil {
		return err
	}

	if n.conf.Node.MetricsAddr != "" {
		n.metricsSv = &http.Server{
			Addr:    n.conf.Node.MetricsAddr,
			Handler: promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := n.metricsSv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.log.Errorf("Metrics endpoint %s err: %v", n.conf.Node.MetricsAddr, err)
			}
		}()
	}

	n.loopWG.Add(1)
	go n.produceLoop(ctx)

	n.log.Infof("Node started: chainID=%s coinbase=%s interval=%s", n.conf.Miner.ChainID, n.miner.Coinbase(), n.conf.Miner.BlockInterval)

	return nil
}

func (n *Node) produceLoop(ctx context.Context) {
	defer n.loopWG.Done()

	ticker := time.NewTicker(n.conf.Miner.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case <-ticker.C:
			// A failed round already requeued its batch and raised RoundAborted.
			if _, err := n.miner.ProduceBlock(ctx); err != nil {
				n.log.Debugf("Round without block: %v", err)
			}
		}
	}
}

// Run starts the node and blocks until SIGINT or SIGTERM, then stops it.
func (n *Node) Run() error {
	gracefulStop := make(chan os.Signal, 1)
	signal.Notify(gracefulStop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(gracefulStop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		return err
	}

	sig := <-gracefulStop
	n.log.Warnf("Caught signal %s, graceful stop", sig)
	cancel()

	return n.Stop()
}

// Stop waits for the running round to finish, then releases every component. It is idempotent.
func (n *Node) Stop() error {
	var result error
	n.stopOnce.Do(func() {
		n.stopped.Store(true)
		close(n.stopCh)
		n.loopWG.Wait()

		if n.metricsSv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := n.metricsSv.Shutdown(ctx); err != nil {
				result = multierror.Append(result, fmt.Errorf("metrics endpoint: %w", err))
			}
			cancel()
		}

		n.scheduler.Stop()
		n.evHub.Stop()

		if err := n.ledger.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("ledger: %w", err))
		}

		n.log.Info("Node stopped")
	})

	return result
}
