package rlp

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// MarshalRlp is the canonical encoding for everything that is hashed or signed.
type MarshalRlp struct{}

func (m *MarshalRlp) Marshal(v interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

func (m *MarshalRlp) Unmarshal(data []byte, v interface{}) error {
	return rlp.DecodeBytes(data, v)
}
