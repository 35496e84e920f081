package common

import (
	"context"
	"fmt"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
)

type VMCtxKey int

const (
	VMCtxKey_Unknown VMCtxKey = iota
	VMCtxKey_VMServant
	VMCtxKey_FromAddr
	VMCtxKey_ContractAddr
)

func (vkey VMCtxKey) String() string {
	switch vkey {
	case VMCtxKey_VMServant:
		return "VMServant"
	case VMCtxKey_FromAddr:
		return "FromAddr"
	case VMCtxKey_ContractAddr:
		return "ContractAddr"
	default:
		return "unknown"
	}
}

// ContractContext is what a native contract method receives as its first parameter.
type ContractContext struct {
	context.Context
}

func NewContractContext(ctx context.Context) *ContractContext {
	return &ContractContext{
		Context: ctx,
	}
}

func WithCallValues(ctx context.Context, servant VMServant, fromAddr tpcrtypes.Address, contractAddr tpcrtypes.Address) context.Context {
	ctx = context.WithValue(ctx, VMCtxKey_VMServant, servant)
	ctx = context.WithValue(ctx, VMCtxKey_FromAddr, fromAddr)
	return context.WithValue(ctx, VMCtxKey_ContractAddr, contractAddr)
}

func (cc *ContractContext) GetServant() (VMServant, error) {
	servant, ok := cc.Value(VMCtxKey_VMServant).(VMServant)
	if !ok {
		return nil, fmt.Errorf("no %s in contract context", VMCtxKey_VMServant)
	}

	return servant, nil
}

func (cc *ContractContext) address(key VMCtxKey) (tpcrtypes.Address, error) {
	addr, ok := cc.Value(key).(tpcrtypes.Address)
	if !ok {
		return tpcrtypes.UndefAddress, fmt.Errorf("no %s in contract context", key)
	}

	return addr, nil
}

func (cc *ContractContext) GetFromAddr() (tpcrtypes.Address, error) {
	return cc.address(VMCtxKey_FromAddr)
}

func (cc *ContractContext) GetContractAddr() (tpcrtypes.Address, error) {
	return cc.address(VMCtxKey_ContractAddr)
}
