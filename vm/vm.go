package vm

import (
	"context"

	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

//go:generate mockgen -destination=mock/mock_executor.go -package=mock github.com/TopiaNetwork/blockproducer/vm ContractExecutor

// ContractExecutor runs transactions of one category. Implementations must be deterministic and
// safe for concurrent use by several workers.
type ContractExecutor interface {
	Version() int

	Category() tptx.TransactionCategory

	Enable() bool

	UpdateState(state bool)

	SetLogger(level tplogcmm.LogLevel, log tplog.Logger)

	// Resources declares the state tx touches besides the sender's balance and nonce. It is pure and
	// errors when the target contract or method is unknown.
	Resources(tx *tptx.Transaction) ([]tptx.ResourceID, error)

	// Run executes tx against view without modifying it. Contract failures are reported as a Failed
	// result; a non-nil error means the executor itself faulted.
	Run(ctx context.Context, tx *tptx.Transaction, view state.View) (*tptx.TransactionResult, error)
}
