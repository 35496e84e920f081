package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/TopiaNetwork/blockproducer/codec"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

type BlockHash string
type BlockNum uint64

const BLOCK_VER = uint32(1)

var ErrBlockUnsigned = errors.New("block is not signed")

type BlockHead struct {
	ChainID         []byte
	Version         uint32
	Height          uint64
	ParentBlockHash []byte
	TimeStamp       uint64
	TxCount         uint32
	TxRoot          []byte
	TxResultRoot    []byte
	StateRoot       []byte
	CryptType       byte
	Proposer        []byte
	Signature       []byte
}

// Block carries its transactions in merged execution order.
type Block struct {
	Head         *BlockHead
	Transactions []*tptx.Transaction
}

// BlockResult is stored next to the block; TxResults are in the same order as Block.Transactions.
type BlockResult struct {
	Height    uint64
	BlockHash []byte
	TxResults []*tptx.TransactionResult
}

type unsignedBlockHead struct {
	ChainID         []byte
	Version         uint32
	Height          uint64
	ParentBlockHash []byte
	TimeStamp       uint64
	TxCount         uint32
	TxRoot          []byte
	TxResultRoot    []byte
	StateRoot       []byte
	CryptType       byte
	Proposer        []byte
}

// SigningBytes is the RLP encoding of the header without its signature.
func (m *BlockHead) SigningBytes() ([]byte, error) {
	return codec.CreateMarshaler(codec.CodecType_RLP).Marshal(&unsignedBlockHead{
		ChainID:         m.ChainID,
		Version:         m.Version,
		Height:          m.Height,
		ParentBlockHash: m.ParentBlockHash,
		TimeStamp:       m.TimeStamp,
		TxCount:         m.TxCount,
		TxRoot:          m.TxRoot,
		TxResultRoot:    m.TxResultRoot,
		StateRoot:       m.StateRoot,
		CryptType:       m.CryptType,
		Proposer:        m.Proposer,
	})
}

// SigningHash is what the producer signs: blake2b over SigningBytes.
func (m *BlockHead) SigningHash() ([]byte, error) {
	payload, err := m.SigningBytes()
	if err != nil {
		return nil, err
	}
	return tpcmm.HashBytes(payload), nil
}

func (m *BlockHead) Sign(cryptService tpcrt.CryptService, priKey tpcrtypes.PrivateKey) error {
	hash, err := m.SigningHash()
	if err != nil {
		return err
	}
	sig, err := cryptService.Sign(priKey, hash)
	if err != nil {
		return err
	}

	m.Signature = sig
	return nil
}

func (m *BlockHead) VerifySignature(cryptService tpcrt.CryptService) (bool, error) {
	if len(m.Signature) == 0 {
		return false, ErrBlockUnsigned
	}
	if tpcrtypes.CryptType(m.CryptType) != cryptService.CryptType() {
		return false, fmt.Errorf("block signed with %s, verifier is %s", tpcrtypes.CryptType(m.CryptType), cryptService.CryptType())
	}
	hash, err := m.SigningHash()
	if err != nil {
		return false, err
	}
	return cryptService.Verify(m.Proposer, hash, m.Signature)
}

// HashBytes identifies the block by its full header, signature included.
func (m *Block) HashBytes() ([]byte, error) {
	if m.Head == nil {
		return nil, errors.New("block without head")
	}
	blBytes, err := codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m.Head)
	if err != nil {
		return nil, err
	}

	return tpcmm.NewBlake2bHasher(0).Compute(string(blBytes)), nil
}

func (m *Block) BlockNum() BlockNum {
	return BlockNum(m.Head.Height)
}

func (m *Block) BlockHash() (BlockHash, error) {
	hashBytes, err := m.HashBytes()
	if err != nil {
		return "", err
	}

	return BlockHash(hex.EncodeToString(hashBytes)), nil
}

func (m *Block) Marshal() ([]byte, error) {
	return codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m)
}

func (m *Block) Unmarshal(data []byte) error {
	return codec.CreateMarshaler(codec.CodecType_RLP).Unmarshal(data, m)
}

func (m *BlockResult) Marshal() ([]byte, error) {
	return codec.CreateMarshaler(codec.CodecType_RLP).Marshal(m)
}

func (m *BlockResult) Unmarshal(data []byte) error {
	return codec.CreateMarshaler(codec.CodecType_RLP).Unmarshal(data, m)
}

// NewGenesisBlock is the unsigned height 0 block every chain starts from.
func NewGenesisBlock(chainID string, version uint32, timeStamp uint64, stateRoot []byte) (*Block, error) {
	txRoot, err := tptx.TxRoot(nil)
	if err != nil {
		return nil, err
	}
	txResultRoot, err := tptx.TxResultRoot(nil)
	if err != nil {
		return nil, err
	}

	return &Block{
		Head: &BlockHead{
			ChainID:      []byte(chainID),
			Version:      version,
			Height:       0,
			TimeStamp:    timeStamp,
			TxRoot:       txRoot,
			TxResultRoot: txResultRoot,
			StateRoot:    stateRoot,
		},
	}, nil
}
