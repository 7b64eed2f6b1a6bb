package ledger

import (
	"tannery/internal/core/id"
	"tannery/internal/core/types"
)

// Delta is a signed quantity change to apply to one (product, shelf) balance.
type Delta struct {
	ProductID id.ID
	ShelfID   id.ID
	Qty       types.Quantity
}

type deltaKey struct {
	productID id.ID
	shelfID   id.ID
}

// aggregateDeltas sums all signed values addressed to the same
// (product, shelf) pair, preserving first-appearance order.
//
// This is essential, not an optimization: when a movement edit submits
// the rollback of its old effect together with its new effect, any
// overlap between old and new shelf pairs nets out algebraically here,
// instead of being applied as two sequential writes that could
// transiently show a negative balance the final state never has.
func aggregateDeltas(deltas []Delta) []Delta {
	sums := make(map[deltaKey]int, len(deltas))
	out := make([]Delta, 0, len(deltas))

	for _, d := range deltas {
		key := deltaKey{productID: d.ProductID, shelfID: d.ShelfID}
		if idx, ok := sums[key]; ok {
			out[idx].Qty += d.Qty
			continue
		}
		sums[key] = len(out)
		out = append(out, d)
	}

	return out
}

// negateDeltas returns the algebraic inverse of a delta set,
// used to roll back a movement's effect.
func negateDeltas(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		out[i] = Delta{ProductID: d.ProductID, ShelfID: d.ShelfID, Qty: d.Qty.Neg()}
	}
	return out
}
