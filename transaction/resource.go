package transaction

import (
	"fmt"

	tpcrtypes "github.com/TopiaNetwork/blockproducer/crypt/types"
)

// ResourceID names one piece of ledger state. Two transactions conflict iff their resource sets intersect.
type ResourceID string

const (
	ResourceKind_Balance = "balance"
	ResourceKind_Nonce   = "nonce"
)

// ResourceID_WholeChain stands for all of ledger state and conflicts with every other resource.
const ResourceID_WholeChain ResourceID = "*"

func NewResourceID(owner tpcrtypes.Address, key string) ResourceID {
	return ResourceID(fmt.Sprintf("%s/%s", owner, key))
}

func BalanceResource(addr tpcrtypes.Address) ResourceID {
	return NewResourceID(addr, ResourceKind_Balance)
}

func NonceResource(addr tpcrtypes.Address) ResourceID {
	return NewResourceID(addr, ResourceKind_Nonce)
}

func (r ResourceID) Bytes() []byte {
	return []byte(r)
}

// Mutation is one resource write; Deleted removes the resource.
type Mutation struct {
	Resource ResourceID
	Value    []byte
	Deleted  bool
}

func (m *Mutation) String() string {
	if m.Deleted {
		return fmt.Sprintf("%s=<deleted>", m.Resource)
	}
	return fmt.Sprintf("%s=%x", m.Resource, m.Value)
}
