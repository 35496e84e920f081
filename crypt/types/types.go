package types

import "fmt"

type PrivateKey []byte

type PublicKey []byte

type Signature []byte

type CryptType byte

const (
	CryptType_Unknown CryptType = iota
	CryptType_Secp256
	CryptType_Ed25519
)

func (c CryptType) String() string {
	switch c {
	case CryptType_Secp256:
		return "secp256"
	case CryptType_Ed25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

func (c CryptType) Value(s string) CryptType {
	switch s {
	case "secp256":
		return CryptType_Secp256
	case "ed25519":
		return CryptType_Ed25519
	default:
		return CryptType_Unknown
	}
}

func ParseCryptType(s string) (CryptType, error) {
	ct := CryptType_Unknown.Value(s)
	if ct == CryptType_Unknown {
		return ct, fmt.Errorf("unknown crypt type %q", s)
	}
	return ct, nil
}

type NetworkType byte

const (
	NetworkType_Unknown NetworkType = iota
	NetworkType_Mainnet
	NetworkType_Testnet
)

func (n NetworkType) String() string {
	switch n {
	case NetworkType_Mainnet:
		return "mainnet"
	case NetworkType_Testnet:
		return "testnet"
	default:
		return "unknown"
	}
}

func ParseNetworkType(s string) (NetworkType, error) {
	switch s {
	case "mainnet":
		return NetworkType_Mainnet, nil
	case "testnet", "":
		return NetworkType_Testnet, nil
	default:
		return NetworkType_Unknown, fmt.Errorf("unknown network type %q", s)
	}
}
