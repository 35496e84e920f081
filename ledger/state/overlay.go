package state

import (
	tpcmm "github.com/TopiaNetwork/blockproducer/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

// OverlayView layers private writes over a base view. Writes never reach the base; Mutations
// reports them in the order resources were first written, each with its latest value.
type OverlayView struct {
	base    View
	order   []tptx.ResourceID
	entries map[tptx.ResourceID]*tptx.Mutation
}

func NewOverlayView(base View) *OverlayView {
	return &OverlayView{
		base:    base,
		entries: make(map[tptx.ResourceID]*tptx.Mutation),
	}
}

func (ov *OverlayView) Read(res tptx.ResourceID) ([]byte, bool, error) {
	if m, ok := ov.entries[res]; ok {
		if m.Deleted {
			return nil, false, nil
		}
		return tpcmm.BytesCopy(m.Value), true, nil
	}
	return ov.base.Read(res)
}

func (ov *OverlayView) Apply(mutations []*tptx.Mutation) {
	for _, m := range mutations {
		if _, ok := ov.entries[m.Resource]; !ok {
			ov.order = append(ov.order, m.Resource)
		}
		ov.entries[m.Resource] = &tptx.Mutation{
			Resource: m.Resource,
			Value:    tpcmm.BytesCopy(m.Value),
			Deleted:  m.Deleted,
		}
	}
}

func (ov *OverlayView) Set(res tptx.ResourceID, value []byte) {
	ov.Apply([]*tptx.Mutation{{Resource: res, Value: value}})
}

func (ov *OverlayView) Delete(res tptx.ResourceID) {
	ov.Apply([]*tptx.Mutation{{Resource: res, Deleted: true}})
}

func (ov *OverlayView) Mutations() []*tptx.Mutation {
	mutations := make([]*tptx.Mutation, 0, len(ov.order))
	for _, res := range ov.order {
		m := ov.entries[res]
		mutations = append(mutations, &tptx.Mutation{
			Resource: m.Resource,
			Value:    tpcmm.BytesCopy(m.Value),
			Deleted:  m.Deleted,
		})
	}

	return mutations
}

func (ov *OverlayView) Len() int {
	return len(ov.order)
}
