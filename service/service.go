package service

import (
	"github.com/TopiaNetwork/blockproducer/ledger"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	transactionpool "github.com/TopiaNetwork/blockproducer/transaction_pool"
)

const MOD_NAME = "service"

// Service is the read and submit surface the node offers to its front ends.
type Service interface {
	StateQueryService() StateQueryService

	BlockService() BlockService

	TransactionService() TransactionService
}

type service struct {
	log    tplog.Logger
	ledger ledger.Ledger
	txPool transactionpool.TransactionPool
}

func NewService(level tplogcmm.LogLevel, log tplog.Logger, ledger ledger.Ledger, txPool transactionpool.TransactionPool) Service {
	return &service{
		log:    tplog.CreateModuleLogger(level, MOD_NAME, log),
		ledger: ledger,
		txPool: txPool,
	}
}

func (s *service) StateQueryService() StateQueryService {
	return &stateQueryService{s.ledger.StateStore()}
}

func (s *service) BlockService() BlockService {
	return &blockService{s.ledger.BlockStore()}
}

func (s *service) TransactionService() TransactionService {
	return &transactionService{
		BlockStore: s.ledger.BlockStore(),
		log:        s.log,
		txPool:     s.txPool,
	}
}
