package backend

import (
	"fmt"

	"github.com/TopiaNetwork/blockproducer/configuration"
	"github.com/TopiaNetwork/blockproducer/ledger/backend/badger"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	"github.com/TopiaNetwork/blockproducer/ledger/backend/leveldb"
	"github.com/TopiaNetwork/blockproducer/ledger/backend/memdb"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
)

type BackendType int

const (
	BackendType_Unknown BackendType = iota
	BackendType_Leveldb
	BackendType_Badger
	BackendType_Memdb
)

const (
	DefaultCacheSize = 8192
)

func (t BackendType) String() string {
	switch t {
	case BackendType_Leveldb:
		return configuration.BackendType_LevelDB
	case BackendType_Badger:
		return configuration.BackendType_Badger
	case BackendType_Memdb:
		return configuration.BackendType_MemDB
	default:
		return "unknown"
	}
}

func (t BackendType) Value(s string) BackendType {
	switch s {
	case configuration.BackendType_LevelDB:
		return BackendType_Leveldb
	case configuration.BackendType_Badger:
		return BackendType_Badger
	case configuration.BackendType_MemDB:
		return BackendType_Memdb
	default:
		return BackendType_Unknown
	}
}

type Backend interface {
	// Get returns tplgcmm.ErrKeyNotFound when key has no value.
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	Set(key, value []byte) error

	Delete(key []byte) error

	// Iterator visits the live keys in [start, end) in ascending order.
	Iterator(start, end []byte) (tplgcmm.Iterator, error)

	// NewBatch groups writes which become visible atomically on Write.
	NewBatch() tplgcmm.Batch

	// Snapshot opens a consistent read view which later writes don't affect.
	Snapshot() (tplgcmm.DBReader, error)

	Close() error
}

func NewBackend(backendType BackendType, log tplog.Logger, path string, name string, cacheSize int) (Backend, error) {
	bLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, "LedgerBackend", log)
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	switch backendType {
	case BackendType_Leveldb:
		return leveldb.NewLeveldbBackend(bLog, name, path, cacheSize)
	case BackendType_Badger:
		return badger.NewBadgerBackend(bLog, name, path, cacheSize)
	case BackendType_Memdb:
		return memdb.NewMemBackend(bLog, name), nil
	default:
		return nil, fmt.Errorf("invalid backend type %d", backendType)
	}
}

// NewBackendFromConfig opens the backend described by the ledger section.
func NewBackendFromConfig(log tplog.Logger, conf *configuration.LedgerConfiguration, name string) (Backend, error) {
	backendType := BackendType_Unknown.Value(conf.Backend)
	return NewBackend(backendType, log, conf.Path, name, conf.CacheSize)
}
