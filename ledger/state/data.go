package state

import (
	"errors"

	"github.com/lazyledger/smt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/ledger/backend"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
)

// bufferedMapStore feeds the sparse merkle tree: reads fall through to the backend, writes stay
// in memory until flushed into a batch.
type bufferedMapStore struct {
	base    backend.Backend
	prefix  []byte
	writes  map[string][]byte
	deletes map[string]struct{}
}

func newBufferedMapStore(base backend.Backend, prefix []byte) *bufferedMapStore {
	return &bufferedMapStore{
		base:    base,
		prefix:  prefix,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (s *bufferedMapStore) key(k []byte) []byte {
	return append(tpcmm.BytesCopy(s.prefix), k...)
}

func (s *bufferedMapStore) Get(key []byte) ([]byte, error) {
	if v, ok := s.writes[string(key)]; ok {
		return tpcmm.BytesCopy(v), nil
	}
	if _, ok := s.deletes[string(key)]; ok {
		return nil, &smt.InvalidKeyError{Key: key}
	}

	v, err := s.base.Get(s.key(key))
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return nil, &smt.InvalidKeyError{Key: key}
	}
	return v, err
}

func (s *bufferedMapStore) Set(key []byte, value []byte) error {
	delete(s.deletes, string(key))
	s.writes[string(key)] = tpcmm.BytesCopy(value)
	return nil
}

func (s *bufferedMapStore) Delete(key []byte) error {
	delete(s.writes, string(key))
	s.deletes[string(key)] = struct{}{}
	return nil
}

func (s *bufferedMapStore) flush(batch tplgcmm.Batch) error {
	for k := range s.deletes {
		if err := batch.Delete(s.key([]byte(k))); err != nil {
			return err
		}
	}
	for k, v := range s.writes {
		if err := batch.Set(s.key([]byte(k)), v); err != nil {
			return err
		}
	}
	return nil
}
