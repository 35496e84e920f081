package secp256

import (
	"crypto/sha256"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

const (
	PublicKeyBytes            = 65 //65 bytes
	PrivateKeyBytes           = 32 //32 bytes
	SignatureRecoverableBytes = 65 //65 bytes
	SeedBytes                 = 32 // 32 bytes
	maxLoopCreateSeckey       = 3
)

type CryptServiceSecp256 struct {
	log tplog.Logger
}

func New(log tplog.Logger) *CryptServiceSecp256 {
	return &CryptServiceSecp256{log}
}

func (c *CryptServiceSecp256) CryptType() tpcrtypes.CryptType {
	return tpcrtypes.CryptType_Secp256
}

func (c *CryptServiceSecp256) GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		c.log.Error(err.Error())
		return nil, nil, err
	}

	return ethcrypto.FromECDSA(key), ethcrypto.FromECDSAPub(&key.PublicKey), nil
}

func (c *CryptServiceSecp256) GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	if len(seed) != SeedBytes {
		return nil, nil, errors.New("seed length incorrect")
	}

	candidate := seed
	for i := 0; i < maxLoopCreateSeckey; i++ {
		seckey := sha256.Sum256(candidate)
		key, err := ethcrypto.ToECDSA(seckey[:])
		if err == nil {
			return ethcrypto.FromECDSA(key), ethcrypto.FromECDSAPub(&key.PublicKey), nil
		}
		candidate = seckey[:]
	}

	return nil, nil, fmt.Errorf("no valid secp256 key derived from seed after %d attempts", maxLoopCreateSeckey)
}

func (c *CryptServiceSecp256) ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error) {
	if len(priKey) != PrivateKeyBytes {
		return nil, errors.New("secp256 ConvertToPublic input seckey incorrect")
	}
	key, err := ethcrypto.ToECDSA(priKey)
	if err != nil {
		return nil, err
	}

	return ethcrypto.FromECDSAPub(&key.PublicKey), nil
}

// Sign signs the blake2b digest of msg and returns a 65-byte recoverable signature.
func (c *CryptServiceSecp256) Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if len(priKey) != PrivateKeyBytes || len(msg) == 0 {
		return nil, errors.New("input invalid argument")
	}
	key, err := ethcrypto.ToECDSA(priKey)
	if err != nil {
		return nil, err
	}

	return ethcrypto.Sign(tpcmm.HashBytes(msg), key)
}

func (c *CryptServiceSecp256) Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error) {
	if len(pubKey) != PublicKeyBytes || len(msg) == 0 || len(signData) != SignatureRecoverableBytes {
		return false, errors.New("input invalid argument")
	}

	return ethcrypto.VerifySignature(pubKey, tpcmm.HashBytes(msg), signData[:SignatureRecoverableBytes-1]), nil
}
