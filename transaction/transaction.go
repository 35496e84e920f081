package transaction

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/TopiaNetwork/blockproducer/codec"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
)

// TxID is the hex encoded content hash of a signed Transaction.
type TxID string

// TransactionCategory selects the ContractExecutor which runs the transaction.
type TransactionCategory string

const (
	TransactionCategory_Native TransactionCategory = "native"
)

type TransactionVersion uint32

const Transaction_V1 TransactionVersion = 1

type TransactionHead struct {
	ChainID    []byte
	Category   TransactionCategory
	Version    uint32
	FromAddr   tpcrtypes.Address
	FromPubKey []byte
	Nonce      uint64
	Fee        uint64
	Signature  []byte
}

type TransactionData struct {
	Contract tpcrtypes.Address
	Method   string
	Params   []byte
}

// Transaction is immutable once signed. Nonce is the per-sender increment id.
type Transaction struct {
	Head *TransactionHead
	Data *TransactionData
}

type unsignedTransaction struct {
	ChainID    []byte
	Category   TransactionCategory
	Version    uint32
	FromAddr   tpcrtypes.Address
	FromPubKey []byte
	Nonce      uint64
	Fee        uint64
	Contract   tpcrtypes.Address
	Method     string
	Params     []byte
}

var ErrMalformedTransaction = errors.New("malformed transaction")

// NewTransaction builds and signs a transaction for the key owner.
func NewTransaction(cryptService tpcrt.CryptService, network tpcrtypes.NetworkType, priKey tpcrtypes.PrivateKey, head *TransactionHead, data *TransactionData) (*Transaction, error) {
	if head == nil || data == nil {
		return nil, ErrMalformedTransaction
	}

	pubKey, err := cryptService.ConvertToPublic(priKey)
	if err != nil {
		return nil, err
	}
	fromAddr, err := tpcrt.CreateAddress(network, cryptService.CryptType(), pubKey)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Head: &TransactionHead{
			ChainID:    head.ChainID,
			Category:   head.Category,
			Version:    head.Version,
			FromAddr:   fromAddr,
			FromPubKey: pubKey,
			Nonce:      head.Nonce,
			Fee:        head.Fee,
		},
		Data: &TransactionData{
			Contract: data.Contract,
			Method:   data.Method,
			Params:   data.Params,
		},
	}
	if tx.Head.Version == 0 {
		tx.Head.Version = uint32(Transaction_V1)
	}

	signPayload, err := tx.SigningBytes()
	if err != nil {
		return nil, err
	}
	tx.Head.Signature, err = cryptService.Sign(priKey, signPayload)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// SigningBytes is the RLP encoding of every field except the signature.
func (m *Transaction) SigningBytes() ([]byte, error) {
	if m.Head == nil || m.Data == nil {
		return nil, ErrMalformedTransaction
	}

	return codec.CreateMarshaler(codec.CodecType_RLP).Marshal(&unsignedTransaction{
		ChainID:    m.Head.ChainID,
		Category:   m.Head.Category,
		Version:    m.Head.Version,
		FromAddr:   m.Head.FromAddr,
		FromPubKey: m.Head.FromPubKey,
		Nonce:      m.Head.Nonce,
		Fee:        m.Head.Fee,
		Contract:   m.Data.Contract,
		Method:     m.Data.Method,
		Params:     m.Data.Params,
	})
}

func (m *Transaction) HashBytes() ([]byte, error) {
	if m.Head == nil || m.Data == nil {
		return nil, ErrMalformedTransaction
	}

	txBytes, err := codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m)
	if err != nil {
		return nil, err
	}

	return tpcmm.NewBlake2bHasher(0).Compute(string(txBytes)), nil
}

func (m *Transaction) HashHex() (string, error) {
	hashBytes, err := m.HashBytes()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(hashBytes), nil
}

func (m *Transaction) TxID() (TxID, error) {
	hashHex, err := m.HashHex()
	if err != nil {
		return "", err
	}

	return TxID(hashHex), nil
}

// MustTxID is for call sites which only see transactions that already passed verification.
func (m *Transaction) MustTxID() TxID {
	txID, err := m.TxID()
	if err != nil {
		panic(fmt.Sprintf("tx id: %v", err))
	}
	return txID
}

func (m *Transaction) Sender() tpcrtypes.Address {
	return m.Head.FromAddr
}

func (m *Transaction) Marshal() ([]byte, error) {
	return codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m)
}

func (m *Transaction) Unmarshal(data []byte) error {
	return codec.CreateMarshaler(codec.CodecType_RLP).Unmarshal(data, m)
}
