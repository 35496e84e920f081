package backend

import (
	"bytes"
	"fmt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
)

func prefixed(prefix, key []byte) []byte {
	return append(tpcmm.BytesCopy(prefix), key...)
}

func endIter(bz []byte) (ret []byte) {
	if len(bz) == 0 {
		panic("endIter expects non-zero bz length")
	}
	ret = tpcmm.BytesCopy(bz)
	for i := len(bz) - 1; i >= 0; i-- {
		if ret[i] < byte(0xFF) {
			ret[i]++
			return
		}
		ret[i] = byte(0x00)
		if i == 0 {
			// Overflow
			return nil
		}
	}
	return nil
}

func prefixedRange(prefix, start, end []byte) ([]byte, []byte) {
	pStart := prefixed(prefix, start)
	var pEnd []byte
	if end == nil {
		pEnd = endIter(prefix)
	} else {
		pEnd = prefixed(prefix, end)
	}
	return pStart, pEnd
}

type prefixDBIterator struct {
	prefix []byte
	start  []byte
	end    []byte
	source tplgcmm.Iterator
	err    error
}

func newPrefixIterator(prefix, start, end []byte, source tplgcmm.Iterator) *prefixDBIterator {
	return &prefixDBIterator{
		prefix: prefix,
		start:  start,
		end:    end,
		source: source,
	}
}

func (itr *prefixDBIterator) Domain() (start []byte, end []byte) {
	return itr.start, itr.end
}

func (itr *prefixDBIterator) Valid() bool {
	if itr.err != nil || !itr.source.Valid() {
		return false
	}

	key := itr.source.Key()
	if !bytes.HasPrefix(key, itr.prefix) {
		itr.err = fmt.Errorf("received invalid key from backend: %x (expected prefix %x)", key, itr.prefix)
		return false
	}

	return true
}

func (itr *prefixDBIterator) Next() {
	itr.assertIsValid()
	itr.source.Next()
}

func (itr *prefixDBIterator) Key() []byte {
	itr.assertIsValid()
	key := itr.source.Key()
	return key[len(itr.prefix):]
}

func (itr *prefixDBIterator) Value() []byte {
	itr.assertIsValid()
	return itr.source.Value()
}

func (itr *prefixDBIterator) Error() error {
	if err := itr.source.Error(); err != nil {
		return err
	}
	return itr.err
}

func (itr *prefixDBIterator) Close() error {
	return itr.source.Close()
}

func (itr *prefixDBIterator) assertIsValid() {
	if !itr.Valid() {
		panic("iterator is invalid")
	}
}

type prefixedBatch struct {
	prefix []byte
	source tplgcmm.Batch
}

func (pb *prefixedBatch) Set(key, value []byte) error {
	return pb.source.Set(prefixed(pb.prefix, key), value)
}

func (pb *prefixedBatch) Delete(key []byte) error {
	return pb.source.Delete(prefixed(pb.prefix, key))
}

func (pb *prefixedBatch) Write() error     { return pb.source.Write() }
func (pb *prefixedBatch) WriteSync() error { return pb.source.WriteSync() }
func (pb *prefixedBatch) Close() error     { return pb.source.Close() }

type prefixedReader struct {
	prefix []byte
	source tplgcmm.DBReader
}

func (pr *prefixedReader) Get(key []byte) ([]byte, error) {
	return pr.source.Get(prefixed(pr.prefix, key))
}

func (pr *prefixedReader) Has(key []byte) (bool, error) {
	return pr.source.Has(prefixed(pr.prefix, key))
}

func (pr *prefixedReader) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	pStart, pEnd := prefixedRange(pr.prefix, start, end)
	iter, err := pr.source.Iterator(pStart, pEnd)
	if err != nil {
		return nil, err
	}
	return newPrefixIterator(pr.prefix, start, end, iter), nil
}

func (pr *prefixedReader) Discard() {
	pr.source.Discard()
}

// BackendPrefixed scopes every key of an underlying backend below prefix, so several stores can
// share one database and one atomic batch.
type BackendPrefixed struct {
	prefix  []byte
	backend Backend
}

func NewBackendPrefixed(prefix []byte, backend Backend) *BackendPrefixed {
	return &BackendPrefixed{
		prefix:  prefix,
		backend: backend,
	}
}

func (b *BackendPrefixed) Get(key []byte) ([]byte, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return nil, err
	}
	return b.backend.Get(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Has(key []byte) (bool, error) {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return false, err
	}
	return b.backend.Has(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Set(key []byte, value []byte) error {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return err
	}
	return b.backend.Set(prefixed(b.prefix, key), value)
}

func (b *BackendPrefixed) Delete(key []byte) error {
	if err := tplgcmm.ValidateKey(key); err != nil {
		return err
	}
	return b.backend.Delete(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Iterator(start, end []byte) (tplgcmm.Iterator, error) {
	pStart, pEnd := prefixedRange(b.prefix, start, end)
	iter, err := b.backend.Iterator(pStart, pEnd)
	if err != nil {
		return nil, err
	}

	return newPrefixIterator(b.prefix, start, end, iter), nil
}

func (b *BackendPrefixed) NewBatch() tplgcmm.Batch {
	return &prefixedBatch{prefix: b.prefix, source: b.backend.NewBatch()}
}

func (b *BackendPrefixed) Snapshot() (tplgcmm.DBReader, error) {
	snap, err := b.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	return &prefixedReader{prefix: b.prefix, source: snap}, nil
}

// Close leaves the shared backend open; its owner closes it.
func (b *BackendPrefixed) Close() error {
	return nil
}
