package configuration

import "path/filepath"

const (
	BackendType_Badger  = "badger"
	BackendType_LevelDB = "leveldb"
	BackendType_MemDB   = "memdb"
)

type LedgerConfiguration struct {
	Backend   string
	Path      string
	CacheSize int
}

func DefLedgerConfiguration() *LedgerConfiguration {
	return &LedgerConfiguration{
		Backend:   BackendType_Badger,
		CacheSize: 4096,
	}
}

// Check fills Path below rootPath when it is left empty.
func (config *LedgerConfiguration) Check(rootPath string) *LedgerConfiguration {
	conf := *config
	switch conf.Backend {
	case BackendType_Badger, BackendType_LevelDB, BackendType_MemDB:
	default:
		conf.Backend = DefLedgerConfiguration().Backend
	}
	if conf.Path == "" && conf.Backend != BackendType_MemDB {
		conf.Path = filepath.Join(rootPath, "ledger")
	}
	if conf.CacheSize <= 0 {
		conf.CacheSize = DefLedgerConfiguration().CacheSize
	}

	return &conf
}
