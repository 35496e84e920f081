package execution

import (
	"sort"

	mapset "github.com/deckarep/golang-set"

	tplog "github.com/TopiaNetwork/blockproducer/log"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
	"github.com/TopiaNetwork/blockproducer/vm"
)

// ResourceSet is a set of tptx.ResourceID. A set holding tptx.ResourceID_WholeChain covers every resource.
type ResourceSet struct {
	set mapset.Set
}

func NewResourceSet(ids ...tptx.ResourceID) ResourceSet {
	rs := ResourceSet{set: mapset.NewThreadUnsafeSet()}
	for _, id := range ids {
		rs.set.Add(id)
	}

	return rs
}

func WholeChainResourceSet() ResourceSet {
	return NewResourceSet(tptx.ResourceID_WholeChain)
}

func (rs ResourceSet) Add(id tptx.ResourceID) {
	rs.set.Add(id)
}

func (rs ResourceSet) IsWholeChain() bool {
	return rs.set.Contains(tptx.ResourceID_WholeChain)
}

// Covers reports whether a write to id stays inside the set.
func (rs ResourceSet) Covers(id tptx.ResourceID) bool {
	return rs.IsWholeChain() || rs.set.Contains(id)
}

func (rs ResourceSet) Conflicts(other ResourceSet) bool {
	if rs.Cardinality() == 0 || other.Cardinality() == 0 {
		return false
	}
	if rs.IsWholeChain() || other.IsWholeChain() {
		return true
	}
	return rs.set.Intersect(other.set).Cardinality() > 0
}

func (rs ResourceSet) Cardinality() int {
	return rs.set.Cardinality()
}

// Sorted lists the members in ascending order.
func (rs ResourceSet) Sorted() []tptx.ResourceID {
	ids := make([]tptx.ResourceID, 0, rs.set.Cardinality())
	rs.set.Each(func(item interface{}) bool {
		ids = append(ids, item.(tptx.ResourceID))
		return false
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// ResourceDetector maps a transaction to the resources it may touch.
type ResourceDetector interface {
	// Detect is pure and deterministic. When the resources can't be determined it returns the whole-chain set.
	Detect(tx *tptx.Transaction) ResourceSet
}

type resourceDetector struct {
	log       tplog.Logger
	vmFactory *vm.VMFactory
}

func NewResourceDetector(log tplog.Logger, vmFactory *vm.VMFactory) ResourceDetector {
	return &resourceDetector{
		log:       log,
		vmFactory: vmFactory,
	}
}

func (rd *resourceDetector) Detect(tx *tptx.Transaction) ResourceSet {
	if tx == nil || tx.Head == nil || tx.Data == nil {
		return WholeChainResourceSet()
	}

	executor := rd.vmFactory.GetVM(tx.Head.Category)
	if executor == nil {
		rd.log.Warnf("No executor for category %s, tx %s runs alone", tx.Head.Category, tx.MustTxID())
		return WholeChainResourceSet()
	}

	declared, err := executor.Resources(tx)
	if err != nil {
		rd.log.Warnf("Can't detect resources of tx %s, it runs alone: %v", tx.MustTxID(), err)
		return WholeChainResourceSet()
	}

	rs := NewResourceSet(tptx.BalanceResource(tx.Head.FromAddr), tptx.NonceResource(tx.Head.FromAddr))
	for _, id := range declared {
		rs.Add(id)
	}

	return rs
}
