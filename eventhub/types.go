package eventhub

import (
	tpchaintypes "github.com/TopiaNetwork/blockproducer/chain/types"
)

// RoundAbortedEvent reports a production round which ended without a block.
type RoundAbortedEvent struct {
	Round    uint64
	Height   uint64
	Requeued int
	Reason   string
}

// BlockProducedEvent carries a signed and stored block for the broadcaster.
type BlockProducedEvent struct {
	Round  uint64
	Block  *tpchaintypes.Block
	Result *tpchaintypes.BlockResult
}
