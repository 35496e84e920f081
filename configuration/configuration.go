package configuration

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "BP"

type Configuration struct {
	Node      *NodeConfiguration      `mapstructure:"node"`
	Log       *LogConfiguration       `mapstructure:"log"`
	Ledger    *LedgerConfiguration    `mapstructure:"ledger"`
	Execution *ExecutionConfiguration `mapstructure:"execution"`
	Miner     *MinerConfiguration     `mapstructure:"miner"`
	TxPool    *TxPoolConfiguration    `mapstructure:"txpool"`
	Genesis   *GenesisConfiguration   `mapstructure:"genesis"`
}

func DefConfiguration() *Configuration {
	return &Configuration{
		Node:      DefNodeConfiguration(),
		Log:       DefLogConfiguration(),
		Ledger:    DefLedgerConfiguration(),
		Execution: DefExecutionConfiguration(),
		Miner:     DefMinerConfiguration(),
		TxPool:    DefTxPoolConfiguration(),
		Genesis:   DefGenesisConfiguration(),
	}
}

// Check returns a copy with every section normalised.
func (c *Configuration) Check() *Configuration {
	def := DefConfiguration()
	conf := *c
	if conf.Node == nil {
		conf.Node = def.Node
	}
	if conf.Log == nil {
		conf.Log = def.Log
	}
	if conf.Ledger == nil {
		conf.Ledger = def.Ledger
	}
	if conf.Execution == nil {
		conf.Execution = def.Execution
	}
	if conf.Miner == nil {
		conf.Miner = def.Miner
	}
	if conf.TxPool == nil {
		conf.TxPool = def.TxPool
	}
	if conf.Genesis == nil {
		conf.Genesis = def.Genesis
	}

	conf.Log = conf.Log.Check()
	conf.Ledger = conf.Ledger.Check(conf.Node.RootPath)
	conf.Execution = conf.Execution.Check()
	conf.Miner = conf.Miner.Check()
	conf.TxPool = conf.TxPool.Check()

	return &conf
}

func setDefaults(v *viper.Viper, def *Configuration) {
	v.SetDefault("node.rootpath", def.Node.RootPath)
	v.SetDefault("node.metricsaddr", def.Node.MetricsAddr)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.output", def.Log.Output)
	v.SetDefault("log.filepath", def.Log.FilePath)

	v.SetDefault("ledger.backend", def.Ledger.Backend)
	v.SetDefault("ledger.path", def.Ledger.Path)
	v.SetDefault("ledger.cachesize", def.Ledger.CacheSize)

	v.SetDefault("execution.workercount", def.Execution.WorkerCount)
	v.SetDefault("execution.grouptimeout", def.Execution.GroupTimeout)
	v.SetDefault("execution.maxgroupretries", def.Execution.MaxGroupRetries)
	v.SetDefault("execution.retrybackoff", def.Execution.RetryBackoff)

	v.SetDefault("miner.batchlimit", def.Miner.BatchLimit)
	v.SetDefault("miner.blockinterval", def.Miner.BlockInterval)
	v.SetDefault("miner.chainid", def.Miner.ChainID)
	v.SetDefault("miner.network", def.Miner.Network)
	v.SetDefault("miner.version", def.Miner.Version)
	v.SetDefault("miner.coinbase", def.Miner.Coinbase)
	v.SetDefault("miner.keyfile", def.Miner.KeyFile)
	v.SetDefault("miner.crypttype", def.Miner.CryptType)

	v.SetDefault("txpool.maxcount", def.TxPool.MaxCount)
	v.SetDefault("txpool.maxcountperaccount", def.TxPool.MaxCountPerAccount)

	v.SetDefault("genesis.timestamp", def.Genesis.Timestamp)
	v.SetDefault("genesis.issuer", def.Genesis.Issuer)
}

// LoadConfiguration reads path (any format viper understands) and overlays BP_* environment variables,
// e.g. BP_EXECUTION_WORKERCOUNT=8. An empty path yields the defaults plus the environment.
func LoadConfiguration(path string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v, DefConfiguration())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read configuration %s: %w", path, err)
		}
	}

	conf := &Configuration{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	return conf.Check(), nil
}
