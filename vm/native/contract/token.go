package contract

import (
	"context"
	"errors"
	"fmt"

	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
)

const (
	NativeContractID_Token   uint64 = 1
	NativeContractID_KVStore uint64 = 2
)

const tokenSupplyKey = "supply"

var (
	ErrInvalidArgs   = errors.New("invalid contract args")
	ErrInvalidTarget = errors.New("invalid target address")
	ErrNotIssuer     = errors.New("only the issuer can mint")
)

// ContractToken is the native coin: balances live in the same resources fees are charged from.
type ContractToken struct {
	issuer tpcrtypes.Address
}

func NewContractToken(issuer tpcrtypes.Address) *ContractToken {
	return &ContractToken{
		issuer: issuer,
	}
}

func TokenSupplyResource(contractAddr tpcrtypes.Address) tptx.ResourceID {
	return tptx.NewResourceID(contractAddr, tokenSupplyKey)
}

func (ct *ContractToken) Resources(contractAddr tpcrtypes.Address, from tpcrtypes.Address, method string, args []string) ([]tptx.ResourceID, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: %s expects 2 args, got %d", ErrInvalidArgs, method, len(args))
	}
	to := tpcrtypes.Address(args[0])

	switch method {
	case "Transfer":
		return []tptx.ResourceID{tptx.BalanceResource(to)}, nil
	case "Mint":
		return []tptx.ResourceID{tptx.BalanceResource(to), TokenSupplyResource(contractAddr)}, nil
	default:
		return nil, fmt.Errorf("unknown token method %s", method)
	}
}

func (ct *ContractToken) Transfer(ctx context.Context, to string, amount uint64) error {
	cCtx := tpvmcmm.NewContractContext(ctx)

	fromAddr, err := cCtx.GetFromAddr()
	if err != nil {
		return err
	}
	toAddr := tpcrtypes.Address(to)
	if !toAddr.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, to)
	}

	vmServant, err := cCtx.GetServant()
	if err != nil {
		return fmt.Errorf("Can't get vm servant: err %v", err)
	}

	fromBal, err := vmServant.GetBalance(fromAddr)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: have %d, transfer %d", tpvmcmm.ErrInsufficientBalance, fromBal, amount)
	}
	if err = vmServant.UpdateBalance(fromAddr, fromBal-amount); err != nil {
		return err
	}

	toBal, err := vmServant.GetBalance(toAddr)
	if err != nil {
		return err
	}
	toBal, err = tpcmm.SafeAddUint64(toBal, amount)
	if err != nil {
		return err
	}
	if err = vmServant.UpdateBalance(toAddr, toBal); err != nil {
		return err
	}

	vmServant.EmitLog(fmt.Sprintf("transfer %s -> %s: %d", fromAddr, toAddr, amount))

	return nil
}

func (ct *ContractToken) Mint(ctx context.Context, to string, amount uint64) error {
	cCtx := tpvmcmm.NewContractContext(ctx)

	fromAddr, err := cCtx.GetFromAddr()
	if err != nil {
		return err
	}
	if fromAddr != ct.issuer {
		return fmt.Errorf("%w: caller %s", ErrNotIssuer, fromAddr)
	}
	toAddr := tpcrtypes.Address(to)
	if !toAddr.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, to)
	}
	contractAddr, err := cCtx.GetContractAddr()
	if err != nil {
		return err
	}

	vmServant, err := cCtx.GetServant()
	if err != nil {
		return fmt.Errorf("Can't get vm servant: err %v", err)
	}

	supplyRes := TokenSupplyResource(contractAddr)
	supply, err := tpvmcmm.ReadUint64Servant(vmServant, supplyRes)
	if err != nil {
		return err
	}
	supply, err = tpcmm.SafeAddUint64(supply, amount)
	if err != nil {
		return err
	}

	toBal, err := vmServant.GetBalance(toAddr)
	if err != nil {
		return err
	}
	toBal, err = tpcmm.SafeAddUint64(toBal, amount)
	if err != nil {
		return err
	}

	if err = vmServant.SetState(supplyRes, tpcmm.Uint64ToBytes(supply)); err != nil {
		return err
	}
	if err = vmServant.UpdateBalance(toAddr, toBal); err != nil {
		return err
	}

	vmServant.EmitLog(fmt.Sprintf("mint %s: %d", toAddr, amount))

	return nil
}
