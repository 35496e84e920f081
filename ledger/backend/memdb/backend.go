package memdb

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

const (
	// The approximate number of items and children per B-tree node. Tuned with benchmarks.
	bTreeDegree = 32
)

type item struct {
	key   []byte
	value []byte
}

func (i *item) Less(other btree.Item) bool {
	return bytes.Compare(i.key, other.(*item).key) < 0
}

type MemBackend struct {
	log    tplog.Logger
	name   string
	mtx    sync.RWMutex
	btree  *btree.BTree
	closed bool
}

func NewMemBackend(log tplog.Logger, name string) *MemBackend {
	return &MemBackend{
		log:   log,
		name:  name,
		btree: btree.New(bTreeDegree),
	}
}

func getFromTree(tree *btree.BTree, key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	found := tree.Get(&item{key: key})
	if found == nil {
		return nil, tplgcmm.ErrKeyNotFound
	}
	return tpcmm.BytesCopy(found.(*item).value), nil
}

func (b *MemBackend) Get(key []byte) ([]byte, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	if b.closed {
		return nil, tplgcmm.ErrBackendClosed
	}
	return getFromTree(b.btree, key)
}

func (b *MemBackend) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if err == tplgcmm.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (b *MemBackend) Set(key, value []byte) error {
	if err := tplgcmm.ValidateKv(key, value); err != nil {
		return err
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return tplgcmm.ErrBackendClosed
	}
	b.btree.ReplaceOrInsert(&item{key: tpcmm.BytesCopy(key), value: tpcmm.BytesCopy(value)})
	return nil
}

func (b *MemBackend) Delete(key []byte) error {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return err
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return tplgcmm.ErrBackendClosed
	}
	b.btree.Delete(&item{key: key})
	return nil
}

// clone is O(1); btree copies nodes lazily on the next write to either tree.
func (b *MemBackend) clone() (*btree.BTree, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return nil, tplgcmm.ErrBackendClosed
	}
	return b.btree.Clone(), nil
}

func (b *MemBackend) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	tree, err := b.clone()
	if err != nil {
		return nil, err
	}
	return newMemIterator(tree, start, end), nil
}

func (b *MemBackend) NewBatch() tplgcmm.Batch {
	return tplgcmm.NewOpBatch(func(ops []tplgcmm.BatchOp, sync bool) error {
		b.mtx.Lock()
		defer b.mtx.Unlock()

		if b.closed {
			return tplgcmm.ErrBackendClosed
		}
		for _, op := range ops {
			if op.Delete {
				b.btree.Delete(&item{key: op.Key})
			} else {
				b.btree.ReplaceOrInsert(&item{key: tpcmm.BytesCopy(op.Key), value: tpcmm.BytesCopy(op.Value)})
			}
		}
		return nil
	})
}

func (b *MemBackend) Snapshot() (tplgcmm.DBReader, error) {
	tree, err := b.clone()
	if err != nil {
		return nil, err
	}
	return &memReader{tree: tree}, nil
}

func (b *MemBackend) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.closed = true
	return nil
}

type memReader struct {
	tree *btree.BTree
}

func (r *memReader) Get(key []byte) ([]byte, error) {
	return getFromTree(r.tree, key)
}

func (r *memReader) Has(key []byte) (bool, error) {
	_, err := getFromTree(r.tree, key)
	if err == tplgcmm.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *memReader) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	return newMemIterator(r.tree, start, end), nil
}

func (r *memReader) Discard() {}

type memIterator struct {
	start, end []byte
	items      []*item
	pos        int
}

func newMemIterator(tree *btree.BTree, start, end []byte) *memIterator {
	it := &memIterator{start: start, end: end}
	visit := func(i btree.Item) bool {
		it.items = append(it.items, i.(*item))
		return true
	}

	switch {
	case start == nil && end == nil:
		tree.Ascend(visit)
	case start == nil:
		tree.AscendLessThan(&item{key: end}, visit)
	case end == nil:
		tree.AscendGreaterOrEqual(&item{key: start}, visit)
	default:
		tree.AscendRange(&item{key: start}, &item{key: end}, visit)
	}

	return it
}

func (i *memIterator) Domain() (start, end []byte) { return i.start, i.end }

func (i *memIterator) Valid() bool {
	return i.pos < len(i.items)
}

func (i *memIterator) Next() {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	i.pos++
}

func (i *memIterator) Key() []byte {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(i.items[i.pos].key)
}

func (i *memIterator) Value() []byte {
	if !i.Valid() {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(i.items[i.pos].value)
}

func (i *memIterator) Error() error { return nil }

func (i *memIterator) Close() error {
	i.items = nil
	return nil
}
