package service

import (
	"errors"

	tpchaintypes "github.com/TopiaNetwork/blockproducer/chain/types"
	tplgblock "github.com/TopiaNetwork/blockproducer/ledger/block"
)

type BlockService interface {
	GetLatestBlock() (*tpchaintypes.Block, error)

	GetBlockByHash(blockHash []byte) (*tpchaintypes.Block, error)

	GetBlockByNumber(blockNum tpchaintypes.BlockNum) (*tpchaintypes.Block, error)

	GetBlockResult(blockNum tpchaintypes.BlockNum) (*tpchaintypes.BlockResult, error)

	// GetBatchBlocks returns at most count blocks from startBlockNum on, fewer when the chain ends first.
	GetBatchBlocks(startBlockNum tpchaintypes.BlockNum, count uint64) ([]*tpchaintypes.Block, error)
}

type blockService struct {
	tplgblock.BlockStore
}

func (bs *blockService) GetBatchBlocks(startBlockNum tpchaintypes.BlockNum, count uint64) ([]*tpchaintypes.Block, error) {
	var blocks []*tpchaintypes.Block
	for blockNum := startBlockNum; uint64(len(blocks)) < count; blockNum++ {
		block, err := bs.GetBlockByNumber(blockNum)
		if errors.Is(err, tplgblock.ErrBlockNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}
