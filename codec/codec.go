package codec

import (
	"fmt"

	"github.com/TopiaNetwork/blockproducer/codec/json"
	"github.com/TopiaNetwork/blockproducer/codec/rlp"
)

type CodecType byte

const (
	CodecType_Unknown CodecType = iota
	CodecType_JSON
	CodecType_RLP
)

func (c CodecType) String() string {
	switch c {
	case CodecType_JSON:
		return "json"
	case CodecType_RLP:
		return "rlp"
	default:
		return "unknown"
	}
}

type Marshaler interface {
	Marshal(interface{}) ([]byte, error)

	Unmarshal([]byte, interface{}) error
}

func CreateMarshaler(codecType CodecType) Marshaler {
	switch codecType {
	case CodecType_JSON:
		return &json.MarshalJson{}
	case CodecType_RLP:
		return &rlp.MarshalRlp{}
	default:
		panic(fmt.Errorf("invalid codec type %d when CreateMarshaler", codecType).Error())
	}
}
