package common

import (
	"errors"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// VMServant is the state surface a contract call sees. Writes are private to the call until the
// executor hands them back as mutations.
type VMServant interface {
	GetState(res tptx.ResourceID) ([]byte, bool, error)

	SetState(res tptx.ResourceID, value []byte) error

	DeleteState(res tptx.ResourceID) error

	GetBalance(addr tpcrtypes.Address) (uint64, error)

	UpdateBalance(addr tpcrtypes.Address, value uint64) error

	EmitLog(msg string)
}

type StateServant struct {
	overlay *state.OverlayView
	logs    []string
}

func NewVMServant(view state.View) *StateServant {
	return &StateServant{
		overlay: state.NewOverlayView(view),
	}
}

func (vs *StateServant) GetState(res tptx.ResourceID) ([]byte, bool, error) {
	return vs.overlay.Read(res)
}

func (vs *StateServant) SetState(res tptx.ResourceID, value []byte) error {
	vs.overlay.Set(res, value)
	return nil
}

func (vs *StateServant) DeleteState(res tptx.ResourceID) error {
	vs.overlay.Delete(res)
	return nil
}

func (vs *StateServant) GetBalance(addr tpcrtypes.Address) (uint64, error) {
	return ReadUint64(vs.overlay, tptx.BalanceResource(addr))
}

func (vs *StateServant) UpdateBalance(addr tpcrtypes.Address, value uint64) error {
	return vs.SetState(tptx.BalanceResource(addr), tpcmm.Uint64ToBytes(value))
}

func (vs *StateServant) EmitLog(msg string) {
	vs.logs = append(vs.logs, msg)
}

func (vs *StateServant) Mutations() []*tptx.Mutation {
	return vs.overlay.Mutations()
}

func (vs *StateServant) Logs() []string {
	return vs.logs
}

// ReadUint64 decodes a counter resource such as a balance or nonce; absent means zero.
func ReadUint64(view state.View, res tptx.ResourceID) (uint64, error) {
	val, ok, err := view.Read(res)
	if err != nil || !ok {
		return 0, err
	}

	return tpcmm.BytesToUint64(val), nil
}

func ReadUint64Servant(servant VMServant, res tptx.ResourceID) (uint64, error) {
	val, ok, err := servant.GetState(res)
	if err != nil || !ok {
		return 0, err
	}

	return tpcmm.BytesToUint64(val), nil
}
