package ed25519

import (
	"crypto/ed25519"
	"errors"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

const (
	PublicKeyBytes  = ed25519.PublicKeySize  // 32 bytes
	PrivateKeyBytes = ed25519.PrivateKeySize // 64 bytes
	SignatureBytes  = ed25519.SignatureSize  // 64 bytes
	KeyGenSeedBytes = ed25519.SeedSize       // 32 bytes
)

type CryptServiceEd25519 struct {
	log tplog.Logger
}

func New(log tplog.Logger) *CryptServiceEd25519 {
	return &CryptServiceEd25519{log}
}

func (c *CryptServiceEd25519) CryptType() tpcrtypes.CryptType {
	return tpcrtypes.CryptType_Ed25519
}

func (c *CryptServiceEd25519) GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	pub, sec, err := ed25519.GenerateKey(nil)
	if err != nil {
		c.log.Errorf("ed25519 generate key err: %v", err)
		return nil, nil, err
	}
	return tpcrtypes.PrivateKey(sec), tpcrtypes.PublicKey(pub), nil
}

func (c *CryptServiceEd25519) GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	if len(seed) != KeyGenSeedBytes {
		return nil, nil, errors.New("input seed length err")
	}
	sec := ed25519.NewKeyFromSeed(seed)
	pub := make([]byte, PublicKeyBytes)
	copy(pub, sec[KeyGenSeedBytes:])
	return tpcrtypes.PrivateKey(sec), pub, nil
}

func (c *CryptServiceEd25519) ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error) {
	if len(priKey) != PrivateKeyBytes {
		return nil, errors.New("input invalid PrivateKey")
	}
	pub := make([]byte, PublicKeyBytes)
	copy(pub, priKey[KeyGenSeedBytes:])
	return pub, nil
}

func (c *CryptServiceEd25519) Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if len(priKey) != PrivateKeyBytes || len(msg) == 0 {
		return nil, errors.New("input invalid argument")
	}
	return ed25519.Sign(ed25519.PrivateKey(priKey), msg), nil
}

func (c *CryptServiceEd25519) Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error) {
	if len(pubKey) != PublicKeyBytes || len(msg) == 0 || len(signData) != SignatureBytes {
		return false, errors.New("input invalid argument")
	}

	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, signData), nil
}
