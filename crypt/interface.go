package crypt

import (
	"fmt"

	"github.com/TopiaNetwork/blockproducer/crypt/ed25519"
	"github.com/TopiaNetwork/blockproducer/crypt/secp256"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
)

type CryptService interface {
	CryptType() tpcrtypes.CryptType

	GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error)

	GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error)

	ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error)

	Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error)

	Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error)
}

func CreateCryptService(log tplog.Logger, cryptType tpcrtypes.CryptType) (CryptService, error) {
	cryptLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, "crypt", log)
	switch cryptType {
	case tpcrtypes.CryptType_Ed25519:
		return ed25519.New(cryptLog), nil
	case tpcrtypes.CryptType_Secp256:
		return secp256.New(cryptLog), nil
	default:
		return nil, fmt.Errorf("invalid crypt type %d", cryptType)
	}
}

// CreateAddress derives the address owned by pubKey under the given crypt scheme.
func CreateAddress(network tpcrtypes.NetworkType, cryptType tpcrtypes.CryptType, pubKey tpcrtypes.PublicKey) (tpcrtypes.Address, error) {
	return tpcrtypes.NewAddress(network, cryptType, pubKey)
}
