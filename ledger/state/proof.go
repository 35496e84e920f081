package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"

	"github.com/lazyledger/smt"

	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

// gob keeps nil proof fields nil, which smt.VerifyProof relies on to tell placeholder leaves apart.
func encodeProof(sp *smt.SparseMerkleProof) ([]byte, error) {
	var data bytes.Buffer
	enc := gob.NewEncoder(&data)
	err := enc.Encode(sp)

	return data.Bytes(), err
}

func decodeProof(proofData []byte) (*smt.SparseMerkleProof, error) {
	dec := gob.NewDecoder(bytes.NewBuffer(proofData))
	var proof smt.SparseMerkleProof
	err := dec.Decode(&proof)
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// VerifyProof checks proofData for res against root. A nil value proves absence.
func VerifyProof(proofData []byte, root []byte, res tptx.ResourceID, value []byte) bool {
	proof, err := decodeProof(proofData)
	if err != nil {
		return false
	}

	leaf := []byte{}
	if value != nil {
		leaf = leafValue(value)
	}

	return smt.VerifyProof(*proof, root, res.Bytes(), leaf, sha256.New())
}
