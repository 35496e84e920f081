package transaction

import (
	"bytes"
	"context"

	tpcrt "github.com/TopiaNetwork/blockproducer/crypt"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tplog "github.com/TopiaNetwork/blockproducer/log"
)

type VerifyResult byte

const (
	VerifyResult_Unknown VerifyResult = iota
	VerifyResult_Accept
	VerifyResult_Reject
	VerifyResult_Ignore
)

func (vr VerifyResult) String() string {
	switch vr {
	case VerifyResult_Accept:
		return "Accept"
	case VerifyResult_Reject:
		return "Reject"
	case VerifyResult_Ignore:
		return "Ignore"
	default:
		return "Unknown"
	}
}

// TransactionServant exposes the node facts a verifier needs.
type TransactionServant interface {
	ChainID() string

	NetworkType() tpcrtypes.NetworkType

	GetCryptService(log tplog.Logger, cryptType tpcrtypes.CryptType) (tpcrt.CryptService, error)
}

type TransactionVerifier func(ctx context.Context, log tplog.Logger, tx *Transaction, txServant TransactionServant) VerifyResult

func TransactionChainIDVerifier() TransactionVerifier {
	return func(ctx context.Context, log tplog.Logger, tx *Transaction, txServant TransactionServant) VerifyResult {
		chainID := txServant.ChainID()
		if !bytes.Equal(tx.Head.ChainID, []byte(chainID)) {
			log.Errorf("Invalid chain ID: expected %s, actual %s", chainID, string(tx.Head.ChainID))
			return VerifyResult_Reject
		}

		return VerifyResult_Accept
	}
}

// TransactionFromAddressVerifier checks that FromAddr is the address owned by FromPubKey.
func TransactionFromAddressVerifier() TransactionVerifier {
	return func(ctx context.Context, log tplog.Logger, tx *Transaction, txServant TransactionServant) VerifyResult {
		fromAddr := tx.Head.FromAddr
		cryptType, err := fromAddr.CryptType()
		if err != nil || cryptType == tpcrtypes.CryptType_Unknown {
			log.Errorf("Invalid from address %s: %v", fromAddr, err)
			return VerifyResult_Reject
		}

		expected, err := tpcrt.CreateAddress(txServant.NetworkType(), cryptType, tx.Head.FromPubKey)
		if err != nil || expected != fromAddr {
			log.Errorf("From address %s does not match public key: %v", fromAddr, err)
			return VerifyResult_Reject
		}

		return VerifyResult_Accept
	}
}

func TransactionSignatureVerifier() TransactionVerifier {
	return func(ctx context.Context, log tplog.Logger, tx *Transaction, txServant TransactionServant) VerifyResult {
		cryType, err := tx.Head.FromAddr.CryptType()
		if err != nil {
			log.Errorf("Can't get from address %s crypt type: %v", tx.Head.FromAddr, err)
			return VerifyResult_Reject
		}

		cryService, err := txServant.GetCryptService(log, cryType)
		if err != nil {
			log.Errorf("No crypt service for %s: %v", cryType, err)
			return VerifyResult_Reject
		}

		signPayload, err := tx.SigningBytes()
		if err != nil {
			log.Errorf("Can't encode tx signing payload: %v", err)
			return VerifyResult_Reject
		}

		if ok, err := cryService.Verify(tx.Head.FromPubKey, signPayload, tx.Head.Signature); !ok {
			log.Errorf("Can't verify tx signature: %v", err)
			return VerifyResult_Reject
		}

		return VerifyResult_Accept
	}
}

func ApplyTransactionVerifiers(ctx context.Context, log tplog.Logger, tx *Transaction, txServant TransactionServant, verifiers ...TransactionVerifier) VerifyResult {
	if tx == nil || tx.Head == nil || tx.Data == nil {
		log.Error("Reject malformed tx")
		return VerifyResult_Reject
	}

	vrResult := VerifyResult_Accept
	for _, verifier := range verifiers {
		vR := verifier(ctx, log, tx, txServant)
		switch vR {
		case VerifyResult_Reject:
			return VerifyResult_Reject
		case VerifyResult_Ignore:
			vrResult = vR
		}
	}

	return vrResult
}

// BasicVerify runs the stateless checks every transaction must pass before it enters the pool.
func (m *Transaction) BasicVerify(ctx context.Context, log tplog.Logger, txServant TransactionServant) VerifyResult {
	return ApplyTransactionVerifiers(ctx, log, m, txServant,
		TransactionChainIDVerifier(),
		TransactionFromAddressVerifier(),
		TransactionSignatureVerifier(),
	)
}

type transactionServant struct {
	chainID string
	network tpcrtypes.NetworkType
}

func NewTransactionServant(chainID string, network tpcrtypes.NetworkType) TransactionServant {
	return &transactionServant{chainID: chainID, network: network}
}

func (ts *transactionServant) ChainID() string {
	return ts.chainID
}

func (ts *transactionServant) NetworkType() tpcrtypes.NetworkType {
	return ts.network
}

func (ts *transactionServant) GetCryptService(log tplog.Logger, cryptType tpcrtypes.CryptType) (tpcrt.CryptService, error) {
	return tpcrt.CreateCryptService(log, cryptType)
}
