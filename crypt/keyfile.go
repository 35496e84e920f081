package crypt

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/TopiaNetwork/blockproducer/codec"
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
)

type keyFileContent struct {
	CryptType  string `json:"cryptType"`
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// SaveKeyFile writes the producer key pair as JSON readable only by the owner.
func SaveKeyFile(path string, cryptType tpcrtypes.CryptType, priKey tpcrtypes.PrivateKey, pubKey tpcrtypes.PublicKey) error {
	content := &keyFileContent{
		CryptType:  cryptType.String(),
		PrivateKey: hex.EncodeToString(priKey),
		PublicKey:  hex.EncodeToString(pubKey),
	}

	data, err := codec.CreateMarshaler(codec.CodecType_JSON).Marshal(content)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func LoadKeyFile(path string) (tpcrtypes.CryptType, tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tpcrtypes.CryptType_Unknown, nil, nil, err
	}

	var content keyFileContent
	if err = codec.CreateMarshaler(codec.CodecType_JSON).Unmarshal(data, &content); err != nil {
		return tpcrtypes.CryptType_Unknown, nil, nil, fmt.Errorf("invalid key file %s: %v", path, err)
	}

	cryptType, err := tpcrtypes.ParseCryptType(content.CryptType)
	if err != nil {
		return tpcrtypes.CryptType_Unknown, nil, nil, err
	}
	priKey, err := tpcmm.HexToBytes(content.PrivateKey)
	if err != nil {
		return tpcrtypes.CryptType_Unknown, nil, nil, err
	}
	pubKey, err := tpcmm.HexToBytes(content.PublicKey)
	if err != nil {
		return tpcrtypes.CryptType_Unknown, nil, nil, err
	}

	return cryptType, priKey, pubKey, nil
}
