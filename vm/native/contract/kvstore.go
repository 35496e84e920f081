package contract

import (
	"context"
	"errors"
	"fmt"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

var (
	ErrEmptyKey    = errors.New("empty key")
	ErrKeyNotExist = errors.New("key doesn't exist")
)

// ContractKVStore is a shared string map; calls on the same key conflict.
type ContractKVStore struct {
}

func NewContractKVStore() *ContractKVStore {
	return &ContractKVStore{}
}

func KVResource(contractAddr tpcrtypes.Address, key string) tptx.ResourceID {
	return tptx.NewResourceID(contractAddr, "kv/"+key)
}

func (kv *ContractKVStore) Resources(contractAddr tpcrtypes.Address, from tpcrtypes.Address, method string, args []string) ([]tptx.ResourceID, error) {
	switch method {
	case "Put":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: Put expects 2 args, got %d", ErrInvalidArgs, len(args))
		}
	case "Delete":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: Delete expects 1 arg, got %d", ErrInvalidArgs, len(args))
		}
	default:
		return nil, fmt.Errorf("unknown kvstore method %s", method)
	}

	return []tptx.ResourceID{KVResource(contractAddr, args[0])}, nil
}

func (kv *ContractKVStore) Put(ctx context.Context, key string, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	cCtx := tpvmcmm.NewContractContext(ctx)
	contractAddr, err := cCtx.GetContractAddr()
	if err != nil {
		return err
	}
	vmServant, err := cCtx.GetServant()
	if err != nil {
		return fmt.Errorf("Can't get vm servant: err %v", err)
	}

	return vmServant.SetState(KVResource(contractAddr, key), []byte(value))
}

func (kv *ContractKVStore) Delete(ctx context.Context, key string) error {
	cCtx := tpvmcmm.NewContractContext(ctx)
	contractAddr, err := cCtx.GetContractAddr()
	if err != nil {
		return err
	}
	vmServant, err := cCtx.GetServant()
	if err != nil {
		return fmt.Errorf("Can't get vm servant: err %v", err)
	}

	res := KVResource(contractAddr, key)
	_, ok, err := vmServant.GetState(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotExist, key)
	}

	return vmServant.DeleteState(res)
}
