package configuration

import "time"

type MinerConfiguration struct {
	BatchLimit    int
	BlockInterval time.Duration
	ChainID       string
	Network       string
	Version       uint32
	Coinbase      string
	KeyFile       string
	CryptType     string
}

func DefMinerConfiguration() *MinerConfiguration {
	return &MinerConfiguration{
		BatchLimit:    1000,
		BlockInterval: 2 * time.Second,
		ChainID:       "blockproducer-dev",
		Network:       "testnet",
		Version:       1,
		KeyFile:       "producer.key",
		CryptType:     "ed25519",
	}
}

func (config *MinerConfiguration) Check() *MinerConfiguration {
	conf := *config
	def := DefMinerConfiguration()
	if conf.BatchLimit <= 0 {
		conf.BatchLimit = def.BatchLimit
	}
	if conf.BlockInterval <= 0 {
		conf.BlockInterval = def.BlockInterval
	}
	if conf.ChainID == "" {
		conf.ChainID = def.ChainID
	}
	if conf.Network == "" {
		conf.Network = def.Network
	}
	if conf.Version == 0 {
		conf.Version = def.Version
	}
	if conf.KeyFile == "" {
		conf.KeyFile = def.KeyFile
	}
	if conf.CryptType == "" {
		conf.CryptType = def.CryptType
	}

	return &conf
}
