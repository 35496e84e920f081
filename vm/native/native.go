package native

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/atomic"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
	"github.com/TopiaNetwork/blockproducer/ledger/state"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	tpvmcmm "github.com/TopiaNetwork/blockproducer/vm/common"
	tpvmtype "github.com/TopiaNetwork/blockproducer/vm/type"
)

var (
	errorType   = reflect.TypeOf(new(error)).Elem()
	contextType = reflect.TypeOf(new(context.Context)).Elem()
)

const (
	MOD_NAME = "NativeVM"
)

const (
	NativeVMVersion_V1 = 1
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrMethodNotFound   = errors.New("method not found")
	ErrContractPanic    = errors.New("contract panicked")
)

var (
	AllowContractMethodParamTypes = map[reflect.Kind]bool{
		reflect.Bool:   true,
		reflect.Int:    true,
		reflect.Int8:   true,
		reflect.Int16:  true,
		reflect.Int32:  true,
		reflect.Int64:  true,
		reflect.Uint:   true,
		reflect.Uint8:  true,
		reflect.Uint16: true,
		reflect.Uint32: true,
		reflect.Uint64: true,
		reflect.Map:    true,
		reflect.Ptr:    true,
		reflect.Slice:  true,
		reflect.String: true,
	}
)

// NativeContract is a built-in contract. Every exported method taking a context.Context first and
// returning only an error becomes callable.
type NativeContract interface {
	// Resources declares what calling method with args touches, besides the caller's balance and nonce.
	Resources(contractAddr tpcrtypes.Address, from tpcrtypes.Address, method string, args []string) ([]tptx.ResourceID, error)
}

type nativeContract struct {
	contract NativeContract
	methods  map[string]*nativeContractMethod
}

type NativeVM struct {
	log       tplog.Logger
	state     *atomic.Bool
	sync      sync.RWMutex
	contracts map[tpcrtypes.Address]*nativeContract
}

func NewNativeVM(log tplog.Logger) *NativeVM {
	return &NativeVM{
		log:       tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		state:     atomic.NewBool(true),
		contracts: make(map[tpcrtypes.Address]*nativeContract),
	}
}

func (nvm *NativeVM) RegisterContract(addr tpcrtypes.Address, contract NativeContract) error {
	nvm.sync.Lock()
	defer nvm.sync.Unlock()

	if _, ok := nvm.contracts[addr]; ok {
		return fmt.Errorf("Contract %s has been registered", addr)
	}

	nc := &nativeContract{
		contract: contract,
		methods:  make(map[string]*nativeContractMethod),
	}

	contractVal := reflect.ValueOf(contract)
	for i := 0; i < contractVal.NumMethod(); i++ {
		method := contractVal.Type().Method(i)
		funcType := method.Func.Type()

		if funcType.NumIn() < 2 || funcType.In(1) != contextType {
			continue
		}
		if funcType.NumOut() != 1 || funcType.Out(0) != errorType {
			return fmt.Errorf("Contract %s method %s should return exactly an error", addr, method.Name)
		}

		ncMethod := &nativeContractMethod{
			receiver: contractVal,
			method:   method.Func,
		}
		for pIn := 2; pIn < funcType.NumIn(); pIn++ {
			pInType := funcType.In(pIn)
			if _, ok := AllowContractMethodParamTypes[pInType.Kind()]; !ok {
				return fmt.Errorf("Contract %s method %s not support parameter type %s", addr, method.Name, pInType.Kind().String())
			}
			if pInType.Kind() == reflect.Ptr && pInType.Elem().Kind() != reflect.Struct {
				return fmt.Errorf("Contract %s method %s not support parameter ptr type %s", addr, method.Name, pInType.Elem().Kind().String())
			}
			ncMethod.paramTypes = append(ncMethod.paramTypes, pInType)
		}

		nc.methods[method.Name] = ncMethod
	}

	nvm.contracts[addr] = nc

	return nil
}

func (nvm *NativeVM) Version() int {
	return NativeVMVersion_V1
}

func (nvm *NativeVM) Category() tptx.TransactionCategory {
	return tptx.TransactionCategory_Native
}

func (nvm *NativeVM) Enable() bool {
	return nvm.state.Load()
}

func (nvm *NativeVM) UpdateState(state bool) {
	nvm.state.Swap(state)
}

func (nvm *NativeVM) SetLogger(level tplogcmm.LogLevel, log tplog.Logger) {
	nvm.log = tplog.CreateModuleLogger(level, MOD_NAME, log)
}

func (nvm *NativeVM) lookup(contractAddr tpcrtypes.Address, methodName string) (*nativeContract, *nativeContractMethod, error) {
	nvm.sync.RLock()
	defer nvm.sync.RUnlock()

	nc, ok := nvm.contracts[contractAddr]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrContractNotFound, contractAddr)
	}
	ncMethod, ok := nc.methods[methodName]
	if !ok {
		return nc, nil, fmt.Errorf("%w: contract %s method %s", ErrMethodNotFound, contractAddr, methodName)
	}

	return nc, ncMethod, nil
}

func (nvm *NativeVM) Resources(tx *tptx.Transaction) ([]tptx.ResourceID, error) {
	if tx.Head == nil || tx.Data == nil {
		return nil, tptx.ErrMalformedTransaction
	}

	nc, _, err := nvm.lookup(tx.Data.Contract, tx.Data.Method)
	if err != nil {
		return nil, err
	}

	return nc.contract.Resources(tx.Data.Contract, tx.Head.FromAddr, tx.Data.Method, tpvmcmm.SplitArgs(tx.Data.Params))
}

func (nvm *NativeVM) doExecute(ctx context.Context, contractAddr tpcrtypes.Address, methodName string, ncMethod *nativeContractMethod, paramIns []reflect.Value) (vmResult *tpvmtype.VMResult, err error) {
	defer func() {
		if rtn := recover(); rtn != nil {
			nvm.log.Errorf("NativeVM doExecute panic: contract %s method %s, exception %v", contractAddr, methodName, rtn)
			vmResult = nil
			err = fmt.Errorf("%w: contract %s method %s: %v", ErrContractPanic, contractAddr, methodName, rtn)
		}
	}()

	callRtns := ncMethod.method.Call(paramIns)
	if callErr, ok := callRtns[0].Interface().(error); ok && callErr != nil {
		return &tpvmtype.VMResult{
			Code:   tpvmtype.ReturnCode_ExecuteErr,
			ErrMsg: callErr.Error(),
		}, nil
	}

	return &tpvmtype.VMResult{Code: tpvmtype.ReturnCode_Ok}, nil
}

func (nvm *NativeVM) execute(ctx context.Context, tx *tptx.Transaction, servant tpvmcmm.VMServant) (*tpvmtype.VMResult, error) {
	if !nvm.Enable() {
		return &tpvmtype.VMResult{Code: tpvmtype.ReturnCode_NotEnable}, nil
	}

	_, ncMethod, err := nvm.lookup(tx.Data.Contract, tx.Data.Method)
	if errors.Is(err, ErrContractNotFound) {
		return &tpvmtype.VMResult{Code: tpvmtype.ReturnCode_ContractNotFound, ErrMsg: string(tx.Data.Contract)}, nil
	}
	if err != nil {
		return &tpvmtype.VMResult{Code: tpvmtype.ReturnCode_MethodNotFound, ErrMsg: tx.Data.Method}, nil
	}

	paramValues, err := tpvmcmm.ParseArgs(tpvmcmm.SplitArgs(tx.Data.Params), ncMethod.paramTypes)
	if err != nil {
		return &tpvmtype.VMResult{Code: tpvmtype.ReturnCode_InvalidParam, ErrMsg: err.Error()}, nil
	}

	exeCtx := tpvmcmm.WithCallValues(ctx, servant, tx.Head.FromAddr, tx.Data.Contract)

	paramIns := make([]reflect.Value, 0, len(paramValues)+2)
	paramIns = append(paramIns, ncMethod.receiver, reflect.ValueOf(exeCtx))
	paramIns = append(paramIns, paramValues...)

	return nvm.doExecute(exeCtx, tx.Data.Contract, tx.Data.Method, ncMethod, paramIns)
}

func (nvm *NativeVM) Run(ctx context.Context, tx *tptx.Transaction, view state.View) (*tptx.TransactionResult, error) {
	if tx.Head == nil || tx.Data == nil {
		return nil, tptx.ErrMalformedTransaction
	}
	txID, err := tx.TxID()
	if err != nil {
		return nil, err
	}

	servant := tpvmcmm.NewVMServant(view)
	vmResult, err := nvm.execute(ctx, tx, servant)
	if err != nil {
		return nil, err
	}

	if !vmResult.OK() {
		nvm.log.Debugf("Contract call failed: tx %s, %s", txID, vmResult.Reason())
		return &tptx.TransactionResult{
			TxID:   txID,
			Status: tptx.ResultStatus_Failed,
			Reason: vmResult.Reason(),
		}, nil
	}

	return &tptx.TransactionResult{
		TxID:      txID,
		Status:    tptx.ResultStatus_Success,
		Mutations: servant.Mutations(),
		Logs:      servant.Logs(),
	}, nil
}
