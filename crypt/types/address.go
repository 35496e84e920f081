package types

import (
	"bytes"
	"encoding/base32"
	"errors"
	"fmt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
)

const AddressPayloadLen = 20

const (
	MainnetPrefix = "m"
	TestnetPrefix = "t"
)

const checksumHashLength = 4

const nativeCryptDigit = '0'

const encodeStd = "topianewrkbcdfghjlmqsuvxyz123456"

var addressEncoding = base32.NewEncoding(encodeStd).WithPadding(base32.NoPadding)

var UndefAddress = Address("<empty>")

// Address is the textual account identity: network prefix, crypt digit, then base32 of payload and checksum.
type Address string

func checksum(data []byte) []byte {
	return tpcmm.NewBlake2bHasher(checksumHashLength).Compute(string(data))
}

func networkPrefix(network NetworkType) (string, error) {
	switch network {
	case NetworkType_Mainnet:
		return MainnetPrefix, nil
	case NetworkType_Testnet:
		return TestnetPrefix, nil
	default:
		return "", fmt.Errorf("Unknown network type %d", network)
	}
}

func cryptDigitOf(cryptType CryptType) byte {
	return '0' + byte(cryptType)
}

func encode(network NetworkType, cryptDigit byte, payload []byte) (Address, error) {
	if len(payload) != AddressPayloadLen {
		return UndefAddress, fmt.Errorf("Invalid payload: len %d, expected %d", len(payload), AddressPayloadLen)
	}
	ntwPrefix, err := networkPrefix(network)
	if err != nil {
		return UndefAddress, err
	}

	cksm := checksum(append([]byte{cryptDigit}, payload...))
	strAddr := ntwPrefix + string(cryptDigit) + addressEncoding.EncodeToString(append(tpcmm.BytesCopy(payload), cksm...))

	return Address(strAddr), nil
}

func decode(a string) (NetworkType, byte, []byte, error) {
	if len(a) < 3 || a == string(UndefAddress) {
		return NetworkType_Unknown, 0, nil, errors.New("Invalid address: too short")
	}

	var netType NetworkType
	switch string(a[0]) {
	case MainnetPrefix:
		netType = NetworkType_Mainnet
	case TestnetPrefix:
		netType = NetworkType_Testnet
	default:
		return NetworkType_Unknown, 0, nil, fmt.Errorf("Unknown network prefix %q", a[0])
	}

	cryptDigit := a[1]
	if cryptDigit != nativeCryptDigit && cryptDigit != cryptDigitOf(CryptType_Secp256) && cryptDigit != cryptDigitOf(CryptType_Ed25519) {
		return NetworkType_Unknown, 0, nil, fmt.Errorf("Unknown crypt digit %q", cryptDigit)
	}

	payloadcksm, err := addressEncoding.DecodeString(a[2:])
	if err != nil {
		return NetworkType_Unknown, 0, nil, err
	}
	if len(payloadcksm) != AddressPayloadLen+checksumHashLength {
		return NetworkType_Unknown, 0, nil, fmt.Errorf("Invalid address length %d", len(payloadcksm))
	}

	payload := payloadcksm[:AddressPayloadLen]
	cksm := payloadcksm[AddressPayloadLen:]
	if !bytes.Equal(checksum(append([]byte{cryptDigit}, payload...)), cksm) {
		return NetworkType_Unknown, 0, nil, errors.New("Invalid checksum")
	}

	return netType, cryptDigit, payload, nil
}

// NewAddress derives the address of a public key. The payload is the leading 20 bytes of blake2b(pubKey).
func NewAddress(network NetworkType, cryptType CryptType, pubKey PublicKey) (Address, error) {
	if cryptType != CryptType_Secp256 && cryptType != CryptType_Ed25519 {
		return UndefAddress, fmt.Errorf("Unknown crypt type %d", cryptType)
	}
	if len(pubKey) == 0 {
		return UndefAddress, errors.New("Invalid pubKey: len 0")
	}

	digest := tpcmm.HashBytes(pubKey)

	return encode(network, cryptDigitOf(cryptType), digest[:AddressPayloadLen])
}

func (a Address) NetworkType() (NetworkType, error) {
	netType, _, _, err := decode(string(a))
	return netType, err
}

func (a Address) CryptType() (CryptType, error) {
	_, digit, _, err := decode(string(a))
	if err != nil {
		return CryptType_Unknown, err
	}
	if digit == nativeCryptDigit {
		return CryptType_Unknown, nil
	}

	return CryptType(digit - '0'), nil
}

func (a Address) IsNative() bool {
	_, digit, _, err := decode(string(a))
	return err == nil && digit == nativeCryptDigit
}

func (a Address) IsValid() bool {
	_, _, _, err := decode(string(a))
	return err == nil
}

func (a Address) Payload() ([]byte, error) {
	_, _, pLoad, err := decode(string(a))
	return pLoad, err
}

func (a Address) Bytes() []byte {
	return []byte(a)
}

func (a Address) String() string {
	return string(a)
}
