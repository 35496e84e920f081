package types

import (
	"bytes"
	"encoding/binary"
)

// CreateNativeContractAddress gives a built-in contract a fixed address: zero padding followed by the big-endian id.
func CreateNativeContractAddress(network NetworkType, id uint64) Address {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)

	addrData := append(bytes.Repeat([]byte{0x00}, AddressPayloadLen-8), idBytes...)
	addr, err := encode(network, nativeCryptDigit, addrData)
	if err != nil {
		return UndefAddress
	}

	return addr
}
