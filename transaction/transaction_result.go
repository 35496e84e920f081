package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/lazyledger/smt"

	"github.com/TopiaNetwork/blockproducer/codec"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
)

type ResultStatus byte

const (
	ResultStatus_Unknown ResultStatus = iota
	ResultStatus_Success
	ResultStatus_Failed
	ResultStatus_SystemError
)

func (s ResultStatus) String() string {
	switch s {
	case ResultStatus_Success:
		return "Success"
	case ResultStatus_Failed:
		return "Failed"
	case ResultStatus_SystemError:
		return "SystemError"
	default:
		return "Unknown"
	}
}

// TransactionResult is what executing one transaction produced. Reason is set for Failed and SystemError.
type TransactionResult struct {
	TxID      TxID
	Status    ResultStatus
	Reason    string
	Mutations []*Mutation
	Logs      []string
	FeeCharge uint64
}

func (m *TransactionResult) HashBytes() ([]byte, error) {
	blBytes, err := codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m)
	if err != nil {
		return nil, err
	}

	return tpcmm.NewBlake2bHasher(0).Compute(string(blBytes)), nil
}

func (m *TransactionResult) HashHex() (string, error) {
	hashBytes, err := m.HashBytes()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(hashBytes), nil
}

func (m *TransactionResult) String() string {
	if m.Reason != "" {
		return fmt.Sprintf("%s %s(%s)", m.TxID, m.Status, m.Reason)
	}
	return fmt.Sprintf("%s %s", m.TxID, m.Status)
}

func newOrderedTree() *smt.SparseMerkleTree {
	return smt.NewSparseMerkleTree(smt.NewSimpleMap(), smt.NewSimpleMap(), sha256.New())
}

// TxRoot accumulates transaction identities keyed by their position, so reordering changes the root.
func TxRoot(txs []*Transaction) ([]byte, error) {
	tree := newOrderedTree()
	for i, tx := range txs {
		txHash, err := tx.HashBytes()
		if err != nil {
			return nil, err
		}
		if _, err = tree.Update(tpcmm.Uint64ToBytes(uint64(i)), txHash); err != nil {
			return nil, err
		}
	}

	return tree.Root(), nil
}

func TxResultRoot(txResults []*TransactionResult) ([]byte, error) {
	tree := newOrderedTree()
	for i, txR := range txResults {
		rsHash, err := txR.HashBytes()
		if err != nil {
			return nil, err
		}
		if _, err = tree.Update(tpcmm.Uint64ToBytes(uint64(i)), rsHash); err != nil {
			return nil, err
		}
	}

	return tree.Root(), nil
}
