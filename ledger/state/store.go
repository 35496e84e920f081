package state

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/lazyledger/smt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	"github.com/TopiaNetwork/blockproducer/ledger/backend"
	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "state"

var (
	prefixValue     = []byte("v/")
	prefixNode      = []byte("n/")
	prefixLeafValue = []byte("m/")
	keyRoot         = []byte("root")
)

var (
	ErrCommitPending = errors.New("another state commit is pending")
	ErrCommitClosed  = errors.New("prepared commit already applied or discarded")
)

// View is a read-only view of ledger state.
type View interface {
	// Read returns exists=false for resources that were never written or were deleted.
	Read(res tptx.ResourceID) (value []byte, exists bool, err error)
}

// Snapshot is a View frozen at the moment it was taken. Release it when done.
type Snapshot interface {
	View
	Release()
}

// PreparedCommit holds a computed but not yet persisted state transition.
type PreparedCommit interface {
	Root() []byte
	Apply() error
	Discard()
}

type StateStore interface {
	Snapshot() (Snapshot, error)

	// Root is the state root of the last applied commit.
	Root() ([]byte, error)

	// PrepareCommit computes the root after mutations without touching canonical state.
	// Only one prepared commit may be outstanding.
	PrepareCommit(mutations []*tptx.Mutation) (PreparedCommit, error)

	// Commit is PrepareCommit followed by Apply.
	Commit(mutations []*tptx.Mutation) ([]byte, error)

	// Prove returns an encoded inclusion or exclusion proof of res against Root.
	Prove(res tptx.ResourceID) ([]byte, error)
}

type stateStore struct {
	log     tplog.Logger
	backend backend.Backend
	lock    sync.Mutex
	pending bool
}

func NewStateStore(log tplog.Logger, backendDB backend.Backend) StateStore {
	return &stateStore{
		log:     tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		backend: backendDB,
	}
}

func EmptyRoot() []byte {
	return smt.NewSparseMerkleTree(smt.NewSimpleMap(), smt.NewSimpleMap(), sha256.New()).Root()
}

func valueKey(res tptx.ResourceID) []byte {
	return append(tpcmm.BytesCopy(prefixValue), res.Bytes()...)
}

// leafValue is what the tree stores for a resource; the tree treats empty values as absent.
func leafValue(value []byte) []byte {
	return tpcmm.HashBytes(value)
}

func (ss *stateStore) Snapshot() (Snapshot, error) {
	reader, err := ss.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	return &snapshotView{reader: reader}, nil
}

func (ss *stateStore) Root() ([]byte, error) {
	root, err := ss.backend.Get(keyRoot)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return EmptyRoot(), nil
	}
	return root, err
}

func (ss *stateStore) loadTree(nodes, values smt.MapStore) (*smt.SparseMerkleTree, error) {
	root, err := ss.backend.Get(keyRoot)
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return smt.NewSparseMerkleTree(nodes, values, sha256.New()), nil
	} else if err != nil {
		return nil, err
	}

	return smt.ImportSparseMerkleTree(nodes, values, sha256.New(), root), nil
}

func (ss *stateStore) PrepareCommit(mutations []*tptx.Mutation) (PreparedCommit, error) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if ss.pending {
		return nil, ErrCommitPending
	}

	nodes := newBufferedMapStore(ss.backend, prefixNode)
	values := newBufferedMapStore(ss.backend, prefixLeafValue)
	tree, err := ss.loadTree(nodes, values)
	if err != nil {
		return nil, err
	}

	finalWrites := make(map[tptx.ResourceID]*tptx.Mutation, len(mutations))
	var order []tptx.ResourceID
	for _, m := range mutations {
		if len(m.Resource) == 0 {
			return nil, fmt.Errorf("mutation with empty resource")
		}
		if m.Deleted {
			_, err = tree.Delete(m.Resource.Bytes())
		} else {
			_, err = tree.Update(m.Resource.Bytes(), leafValue(m.Value))
		}
		if err != nil {
			return nil, fmt.Errorf("update state tree for %s: %w", m.Resource, err)
		}
		if _, seen := finalWrites[m.Resource]; !seen {
			order = append(order, m.Resource)
		}
		finalWrites[m.Resource] = m
	}

	ss.pending = true
	ss.log.Debugf("Prepared state commit: mutations=%d resources=%d root=%x", len(mutations), len(order), tree.Root())

	return &preparedCommit{
		store:       ss,
		root:        tree.Root(),
		nodes:       nodes,
		values:      values,
		order:       order,
		finalWrites: finalWrites,
	}, nil
}

func (ss *stateStore) Commit(mutations []*tptx.Mutation) ([]byte, error) {
	pc, err := ss.PrepareCommit(mutations)
	if err != nil {
		return nil, err
	}
	if err = pc.Apply(); err != nil {
		pc.Discard()
		return nil, err
	}
	return pc.Root(), nil
}

func (ss *stateStore) Prove(res tptx.ResourceID) ([]byte, error) {
	tree, err := ss.loadTree(newBufferedMapStore(ss.backend, prefixNode), newBufferedMapStore(ss.backend, prefixLeafValue))
	if err != nil {
		return nil, err
	}

	proof, err := tree.Prove(res.Bytes())
	if err != nil {
		return nil, err
	}

	return encodeProof(&proof)
}

type preparedCommit struct {
	store       *stateStore
	root        []byte
	nodes       *bufferedMapStore
	values      *bufferedMapStore
	order       []tptx.ResourceID
	finalWrites map[tptx.ResourceID]*tptx.Mutation
	closed      bool
}

func (pc *preparedCommit) Root() []byte {
	return tpcmm.BytesCopy(pc.root)
}

// Apply writes the prepared commit. The commit is closed afterwards whether or not the write succeeded,
// so a failed Apply never blocks the next PrepareCommit.
func (pc *preparedCommit) Apply() error {
	pc.store.lock.Lock()
	defer pc.store.lock.Unlock()

	if pc.closed {
		return ErrCommitClosed
	}
	defer func() {
		pc.closed = true
		pc.store.pending = false
	}()

	batch := pc.store.backend.NewBatch()
	defer batch.Close()

	for _, res := range pc.order {
		m := pc.finalWrites[res]
		var err error
		if m.Deleted {
			err = batch.Delete(valueKey(res))
		} else {
			value := tpcmm.BytesCopy(m.Value)
			if value == nil {
				value = []byte{}
			}
			err = batch.Set(valueKey(res), value)
		}
		if err != nil {
			return err
		}
	}
	if err := pc.nodes.flush(batch); err != nil {
		return err
	}
	if err := pc.values.flush(batch); err != nil {
		return err
	}
	if err := batch.Set(keyRoot, pc.root); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}

	pc.store.log.Infof("Applied state commit: resources=%d root=%x", len(pc.order), pc.root)

	return nil
}

func (pc *preparedCommit) Discard() {
	pc.store.lock.Lock()
	defer pc.store.lock.Unlock()

	if pc.closed {
		return
	}
	pc.closed = true
	pc.store.pending = false
}

type snapshotView struct {
	reader tplgcmm.DBReader
}

func (sv *snapshotView) Read(res tptx.ResourceID) ([]byte, bool, error) {
	val, err := sv.reader.Get(valueKey(res))
	if errors.Is(err, tplgcmm.ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (sv *snapshotView) Release() {
	sv.reader.Discard()
}
