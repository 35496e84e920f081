package common

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

func BytesCopy(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)

	return dst
}

func Uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b[:]
}

func BytesToUint64(d []byte) uint64 {
	if len(d) < 8 {
		padded := make([]byte, 8)
		copy(padded[8-len(d):], d)
		d = padded
	}
	return binary.BigEndian.Uint64(d)
}

func Has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}

func IsHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func IsHex(str string) bool {
	if len(str)%2 != 0 {
		return false
	}
	for _, c := range []byte(str) {
		if !IsHexCharacter(c) {
			return false
		}
	}
	return true
}

func HexToBytes(str string) ([]byte, error) {
	if Has0xPrefix(str) {
		str = str[2:]
	}
	if !IsHex(str) {
		return nil, fmt.Errorf("invalid hex string %q", str)
	}
	return hex.DecodeString(str)
}
