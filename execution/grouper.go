package execution

import (
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

// TransactionGroup is a run of transactions sharing no resource with any other group of the batch.
// Txs keep batch order; Positions are their indexes in the batch.
type TransactionGroup struct {
	Index     int
	Txs       []*tptx.Transaction
	Positions []int
	Resources []ResourceSet
}

func (g *TransactionGroup) Len() int {
	return len(g.Txs)
}

// Grouper partitions a batch into conflict-free groups.
type Grouper struct {
	detector ResourceDetector
}

func NewGrouper(detector ResourceDetector) *Grouper {
	return &Grouper{
		detector: detector,
	}
}

// unionFind is array-backed; the smaller index always becomes the root, so a group's root is its earliest member.
type unionFind struct {
	parent []int
}

func (uf *unionFind) add() int {
	idx := len(uf.parent)
	uf.parent = append(uf.parent, idx)
	return idx
}

func (uf *unionFind) find(i int) int {
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}

	return root
}

func (uf *unionFind) union(a, b int) int {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra

	return ra
}

// Group detects every transaction's resources and splits txs into groups ordered by their earliest member.
// Order inside a group is batch order, so same-sender and same-resource order is kept.
// A tx with the whole-chain set joins every other tx of the batch, so such a batch runs as one serial group.
func (g *Grouper) Group(txs []*tptx.Transaction) []*TransactionGroup {
	if len(txs) == 0 {
		return nil
	}

	uf := &unionFind{parent: make([]int, 0, len(txs))}
	claims := make(map[tptx.ResourceID]int)
	resources := make([]ResourceSet, len(txs))
	wholeChain := -1

	for i, tx := range txs {
		rs := g.detector.Detect(tx)
		resources[i] = rs

		idx := uf.add()
		root := idx
		if rs.IsWholeChain() {
			for prev := 0; prev < idx; prev++ {
				root = uf.union(root, prev)
			}
			wholeChain = root
		} else {
			if wholeChain >= 0 {
				root = uf.union(root, wholeChain)
			}
			for _, res := range rs.Sorted() {
				if claimer, ok := claims[res]; ok {
					root = uf.union(root, claimer)
				}
			}
		}

		for _, res := range rs.Sorted() {
			claims[res] = root
		}
		if wholeChain >= 0 {
			wholeChain = uf.find(wholeChain)
		}
	}

	var groups []*TransactionGroup
	groupOfRoot := make(map[int]*TransactionGroup)
	for i, tx := range txs {
		root := uf.find(i)
		group, ok := groupOfRoot[root]
		if !ok {
			group = &TransactionGroup{Index: len(groups)}
			groupOfRoot[root] = group
			groups = append(groups, group)
		}
		group.Txs = append(group.Txs, tx)
		group.Positions = append(group.Positions, i)
		group.Resources = append(group.Resources, resources[i])
	}

	return groups
}
