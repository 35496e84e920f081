package service

import (
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

// StateQueryService reads the committed state; every call sees one consistent snapshot.
type StateQueryService interface {
	GetNonce(addr tpcrtypes.Address) (uint64, error)

	GetBalance(addr tpcrtypes.Address) (uint64, error)

	GetState(res tptx.ResourceID) ([]byte, bool, error)

	GetStateRoot() ([]byte, error)

	// GetStateProof returns a proof of res, verifiable with state.VerifyProof against the returned root.
	GetStateProof(res tptx.ResourceID) (proof []byte, root []byte, err error)
}

type stateQueryService struct {
	stateStore state.StateStore
}

func (sq *stateQueryService) readUint64(res tptx.ResourceID) (uint64, error) {
	snap, err := sq.stateStore.Snapshot()
	if err != nil {
		return 0, err
	}
	defer snap.Release()

	return tpvmcmm.ReadUint64(snap, res)
}

func (sq *stateQueryService) GetNonce(addr tpcrtypes.Address) (uint64, error) {
	return sq.readUint64(tptx.NonceResource(addr))
}

func (sq *stateQueryService) GetBalance(addr tpcrtypes.Address) (uint64, error) {
	return sq.readUint64(tptx.BalanceResource(addr))
}

func (sq *stateQueryService) GetState(res tptx.ResourceID) ([]byte, bool, error) {
	snap, err := sq.stateStore.Snapshot()
	if err != nil {
		return nil, false, err
	}
	defer snap.Release()

	return snap.Read(res)
}

func (sq *stateQueryService) GetStateRoot() ([]byte, error) {
	return sq.stateStore.Root()
}

func (sq *stateQueryService) GetStateProof(res tptx.ResourceID) ([]byte, []byte, error) {
	proof, err := sq.stateStore.Prove(res)
	if err != nil {
		return nil, nil, err
	}
	root, err := sq.stateStore.Root()
	if err != nil {
		return nil, nil, err
	}

	return proof, root, nil
}
