package vm

import (
	"fmt"
	"sync"

	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

// VMFactory keys the contract executors by transaction category.
type VMFactory struct {
	sync  sync.RWMutex
	vmMap map[tptx.TransactionCategory]ContractExecutor
}

func NewVMFactory() *VMFactory {
	return &VMFactory{
		vmMap: make(map[tptx.TransactionCategory]ContractExecutor),
	}
}

func (f *VMFactory) SetLogger(level tplogcmm.LogLevel, log tplog.Logger) {
	f.sync.RLock()
	defer f.sync.RUnlock()

	for _, vm := range f.vmMap {
		vm.SetLogger(level, log)
	}
}

func (f *VMFactory) RegisterVM(vm ContractExecutor) error {
	f.sync.Lock()
	defer f.sync.Unlock()

	category := vm.Category()
	if _, ok := f.vmMap[category]; ok {
		return fmt.Errorf("Have registered vm category %s", category)
	}

	f.vmMap[category] = vm

	return nil
}

// GetVM returns nil for an unregistered or disabled category.
func (f *VMFactory) GetVM(category tptx.TransactionCategory) ContractExecutor {
	f.sync.RLock()
	defer f.sync.RUnlock()

	vm, ok := f.vmMap[category]
	if ok && vm.Enable() {
		return vm
	}

	return nil
}
