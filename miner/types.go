package miner

import (
	"errors"
	"fmt"

	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

//go:generate mockgen -destination=mock/mock_source.go -package=mock github.com/TopiaNetwork/blockproducer/miner ReadyTransactionSource

// ReadyTransactionSource supplies admissible transactions in the order execution must respect.
type ReadyTransactionSource interface {
	Pull(limit int) []*tptx.Transaction

	// Requeue gets back a pulled batch whose round failed.
	Requeue(txs []*tptx.Transaction)
}

type MinerState uint32

const (
	MinerState_Unknown MinerState = iota
	MinerState_Idle
	MinerState_BatchPulled
	MinerState_Grouped
	MinerState_Executing
	MinerState_Merged
	MinerState_Assembled
	MinerState_Signed
)

var ErrSigningFailure = errors.New("block signing failed")

// RoundFailure is a round which produced no block. Requeued is the batch handed back to the source.
type RoundFailure struct {
	Round    uint64
	Height   uint64
	Requeued []*tptx.Transaction
	Cause    error
}

func (e *RoundFailure) Error() string {
	return fmt.Sprintf("round %d for height %d failed, %d txs requeued: %v", e.Round, e.Height, len(e.Requeued), e.Cause)
}

func (e *RoundFailure) Unwrap() error {
	return e.Cause
}

func (s MinerState) String() string {
	switch s {
	case MinerState_Idle:
		return "Idle"
	case MinerState_BatchPulled:
		return "BatchPulled"
	case MinerState_Grouped:
		return "Grouped"
	case MinerState_Executing:
		return "Executing"
	case MinerState_Merged:
		return "Merged"
	case MinerState_Assembled:
		return "Assembled"
	case MinerState_Signed:
		return "Signed"
	default:
		return "Unknown"
	}
}

func (s MinerState) Value(state string) MinerState {
	switch state {
	case "Idle":
		return MinerState_Idle
	case "BatchPulled":
		return MinerState_BatchPulled
	case "Grouped":
		return MinerState_Grouped
	case "Executing":
		return MinerState_Executing
	case "Merged":
		return MinerState_Merged
	case "Assembled":
		return MinerState_Assembled
	case "Signed":
		return MinerState_Signed
	default:
		return MinerState_Unknown
	}
}
