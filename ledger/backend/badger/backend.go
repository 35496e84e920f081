package badger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

type BadgerBackend struct {
	log   tplog.Logger
	name  string
	cache *tplgcmm.ReadCache
	db    *badger.DB
}

// NewBadgerBackend opens <path>/<name>.db. An empty path keeps the whole database in memory.
func NewBadgerBackend(log tplog.Logger, name string, path string, cacheSize int) (*BadgerBackend, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		pathWithName := filepath.Join(path, name+".db")
		if err := os.MkdirAll(pathWithName, 0755); err != nil {
			log.Errorf("can't create badger path %s: %v", pathWithName, err)
			return nil, err
		}
		opts = badger.DefaultOptions(pathWithName)
	}
	opts.SyncWrites = false
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		log.Errorf("can't open badger: path=%s, err=%v", path, err)
		return nil, err
	}

	return &BadgerBackend{
		log:   log,
		name:  name,
		cache: tplgcmm.NewReadCache(cacheSize),
		db:    db,
	}, nil
}

func getFromTxn(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, tplgcmm.ErrKeyNotFound
	} else if err != nil {
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err == nil && val == nil {
		val = []byte{}
	}

	return val, err
}

func (b *BadgerBackend) Get(key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	if val, ok := b.cache.Get(key); ok {
		return val, nil
	}

	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		var gErr error
		val, gErr = getFromTxn(txn, key)
		return gErr
	})
	if err != nil {
		return nil, err
	}
	b.cache.Add(key, val)

	return val, nil
}

func (b *BadgerBackend) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b *BadgerBackend) Set(key, value []byte) error {
	if err := tplgcmm.ValidateKv(key, value); err != nil {
		return err
	}
	defer b.cache.Invalidate(key)

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerBackend) Delete(key []byte) error {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return err
	}
	defer b.cache.Invalidate(key)

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *BadgerBackend) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	txn := b.db.NewTransaction(false)
	return newBadgerIterator(txn, true, start, end), nil
}

// NewBatch applies all writes inside one badger transaction so they become visible together.
func (b *BadgerBackend) NewBatch() tplgcmm.Batch {
	return tplgcmm.NewOpBatch(func(ops []tplgcmm.BatchOp, sync bool) error {
		keys := make([][]byte, 0, len(ops))
		err := b.db.Update(func(txn *badger.Txn) error {
			for _, op := range ops {
				keys = append(keys, op.Key)
				var opErr error
				if op.Delete {
					opErr = txn.Delete(op.Key)
				} else {
					opErr = txn.Set(op.Key, op.Value)
				}
				if opErr != nil {
					return opErr
				}
			}
			return nil
		})
		b.cache.Invalidate(keys...)
		if err != nil || !sync {
			return err
		}
		return b.db.Sync()
	})
}

func (b *BadgerBackend) Snapshot() (tplgcmm.DBReader, error) {
	if b.db.IsClosed() {
		return nil, tplgcmm.ErrBackendClosed
	}
	return &badgerReader{txn: b.db.NewTransaction(false)}, nil
}

func (b *BadgerBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}

type badgerReader struct {
	txn *badger.Txn
}

func (r *badgerReader) Get(key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	return getFromTxn(r.txn, key)
}

func (r *badgerReader) Has(key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *badgerReader) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	return newBadgerIterator(r.txn, false, start, end), nil
}

func (r *badgerReader) Discard() {
	r.txn.Discard()
}

type badgerIterator struct {
	start, end []byte

	ownTxn bool
	txn    *badger.Txn
	iter   *badger.Iterator

	lastErr error
}

func newBadgerIterator(txn *badger.Txn, ownTxn bool, start, end []byte) *badgerIterator {
	iter := txn.NewIterator(badger.DefaultIteratorOptions)
	iter.Seek(start)

	return &badgerIterator{
		start:  start,
		end:    end,
		ownTxn: ownTxn,
		txn:    txn,
		iter:   iter,
	}
}

func (i *badgerIterator) Close() error {
	i.iter.Close()
	if i.ownTxn {
		i.txn.Discard()
	}
	return nil
}

func (i *badgerIterator) Domain() (start, end []byte) { return i.start, i.end }
func (i *badgerIterator) Error() error                { return i.lastErr }

func (i *badgerIterator) Next() {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	i.iter.Next()
}

func (i *badgerIterator) Valid() bool {
	if !i.iter.Valid() {
		return false
	}
	if len(i.end) > 0 && bytes.Compare(i.iter.Item().Key(), i.end) >= 0 {
		return false
	}
	return true
}

func (i *badgerIterator) Key() []byte {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	return i.iter.Item().KeyCopy(nil)
}

func (i *badgerIterator) Value() []byte {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	val, err := i.iter.Item().ValueCopy(nil)
	if err != nil {
		i.lastErr = err
	}
	return val
}
