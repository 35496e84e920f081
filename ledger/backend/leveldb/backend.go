package leveldb

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

type LeveldbBackend struct {
	log   tplog.Logger
	name  string
	cache *tplgcmm.ReadCache
	db    *leveldb.DB
}

// NewLeveldbBackend opens <path>/<name>.db. An empty path uses leveldb's memory storage.
func NewLeveldbBackend(log tplog.Logger, name string, path string, cacheSize int) (*LeveldbBackend, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		pathWithName := filepath.Join(path, name+".db")
		if err = os.MkdirAll(pathWithName, 0755); err != nil {
			log.Errorf("can't create leveldb path %s: %v", pathWithName, err)
			return nil, err
		}
		db, err = leveldb.OpenFile(pathWithName, nil)
	}
	if err != nil {
		log.Errorf("Create leveldb %s error %v, dbPath=%s", name, err, path)
		return nil, err
	}

	return &LeveldbBackend{
		log:   log,
		name:  name,
		cache: tplgcmm.NewReadCache(cacheSize),
		db:    db,
	}, nil
}

func translateErr(err error) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return tplgcmm.ErrKeyNotFound
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return tplgcmm.ErrBackendClosed
	}
	return err
}

func (b *LeveldbBackend) Get(key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	if val, ok := b.cache.Get(key); ok {
		return val, nil
	}

	val, err := b.db.Get(key, nil)
	if err != nil {
		return nil, translateErr(err)
	}
	if val == nil {
		val = []byte{}
	}
	b.cache.Add(key, val)

	return val, nil
}

func (b *LeveldbBackend) Has(key []byte) (bool, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return false, err
	}
	has, err := b.db.Has(key, nil)
	return has, translateErr(err)
}

func (b *LeveldbBackend) Set(key, value []byte) error {
	if err := tplgcmm.ValidateKv(key, value); err != nil {
		return err
	}
	defer b.cache.Invalidate(key)

	return translateErr(b.db.Put(key, value, nil))
}

func (b *LeveldbBackend) Delete(key []byte) error {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return err
	}
	defer b.cache.Invalidate(key)

	return translateErr(b.db.Delete(key, nil))
}

func (b *LeveldbBackend) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	return newLeveldbIterator(b.db.NewIterator(&util.Range{Start: start, Limit: end}, nil), start, end), nil
}

func (b *LeveldbBackend) NewBatch() tplgcmm.Batch {
	return tplgcmm.NewOpBatch(func(ops []tplgcmm.BatchOp, sync bool) error {
		batch := new(leveldb.Batch)
		keys := make([][]byte, 0, len(ops))
		for _, op := range ops {
			keys = append(keys, op.Key)
			if op.Delete {
				batch.Delete(op.Key)
			} else {
				batch.Put(op.Key, op.Value)
			}
		}
		defer b.cache.Invalidate(keys...)

		return translateErr(b.db.Write(batch, &opt.WriteOptions{Sync: sync}))
	})
}

func (b *LeveldbBackend) Snapshot() (tplgcmm.DBReader, error) {
	snap, err := b.db.GetSnapshot()
	if err != nil {
		return nil, translateErr(err)
	}
	return &leveldbReader{snap: snap}, nil
}

func (b *LeveldbBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}

type leveldbReader struct {
	snap *leveldb.Snapshot
}

func (r *leveldbReader) Get(key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	val, err := r.snap.Get(key, nil)
	if err != nil {
		return nil, translateErr(err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

func (r *leveldbReader) Has(key []byte) (bool, error) {
	has, err := r.snap.Has(key, nil)
	return has, translateErr(err)
}

func (r *leveldbReader) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	return newLeveldbIterator(r.snap.NewIterator(&util.Range{Start: start, Limit: end}, nil), start, end), nil
}

func (r *leveldbReader) Discard() {
	r.snap.Release()
}

type leveldbIterator struct {
	start, end []byte
	source     iterator.Iterator
	valid      bool
}

func newLeveldbIterator(source iterator.Iterator, start, end []byte) *leveldbIterator {
	return &leveldbIterator{
		start:  start,
		end:    end,
		source: source,
		valid:  source.First(),
	}
}

func (i *leveldbIterator) Domain() (start, end []byte) { return i.start, i.end }

func (i *leveldbIterator) Valid() bool {
	return i.valid
}

func (i *leveldbIterator) Next() {
	if !i.valid {
		panic("iterator is invalid")
	}
	i.valid = i.source.Next()
}

func (i *leveldbIterator) Key() []byte {
	if !i.valid {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(i.source.Key())
}

func (i *leveldbIterator) Value() []byte {
	if !i.valid {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(i.source.Value())
}

func (i *leveldbIterator) Error() error {
	return i.source.Error()
}

func (i *leveldbIterator) Close() error {
	i.source.Release()
	return i.source.Error()
}
