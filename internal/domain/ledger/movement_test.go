package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tannery/internal/core/id"
	"tannery/internal/core/types"
)

func ptrID(v id.ID) *id.ID { return &v }

func TestMovement_VoucherType(t *testing.T) {
	from := id.New()
	to := id.New()

	tests := []struct {
		name string
		m    Movement
		want VoucherType
	}{
		{"both shelves is a transfer", Movement{FromShelfID: ptrID(from), ToShelfID: ptrID(to)}, VoucherTransfer},
		{"destination only is incoming", Movement{ToShelfID: ptrID(to)}, VoucherIncoming},
		{"source only is outgoing", Movement{FromShelfID: ptrID(from)}, VoucherOutgoing},
		{"neither is malformed", Movement{}, VoucherType("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.VoucherType())
		})
	}
}

func TestMovement_IsSystem(t *testing.T) {
	inv := id.New()

	tests := []struct {
		name string
		m    Movement
		want bool
	}{
		{"sales invoice type", Movement{TransferType: TransferSalesInvoice}, true},
		{"production type", Movement{TransferType: TransferProduction}, true},
		{"waste without back-reference", Movement{TransferType: TransferWaste}, false},
		{"manual type with invoice back-reference", Movement{TransferType: TransferOpeningBalance, InvoiceID: &inv}, true},
		{"manual type with production back-reference", Movement{TransferType: TransferInventoryCount, ProductionOrderID: &inv}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.IsSystem())
		})
	}
}

func TestMovement_Validate(t *testing.T) {
	ctx := context.Background()
	product := id.New()
	shelf := id.New()

	valid := Movement{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: types.NewQuantityFromFloat64(10),
		ToShelfID:    ptrID(shelf),
	}
	require.NoError(t, valid.Validate(ctx))

	tests := []struct {
		name   string
		mutate func(*Movement)
	}{
		{"unknown transfer type", func(m *Movement) { m.TransferType = "teleport" }},
		{"missing product", func(m *Movement) { m.ProductID = id.Nil() }},
		{"negative quantity", func(m *Movement) { m.DeliveredQty = types.NewQuantityFromFloat64(-1) }},
		{"no shelves", func(m *Movement) { m.ToShelfID = nil }},
		{"waste with destination", func(m *Movement) { m.TransferType = TransferWaste }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			assert.Error(t, m.Validate(ctx))
		})
	}
}

func TestMovement_Deltas(t *testing.T) {
	product := id.New()
	from := id.New()
	to := id.New()
	qty := types.NewQuantityFromFloat64(25)

	t.Run("transfer yields plus and minus", func(t *testing.T) {
		m := Movement{ProductID: product, DeliveredQty: qty, FromShelfID: ptrID(from), ToShelfID: ptrID(to)}
		deltas := m.Deltas()
		require.Len(t, deltas, 2)
		assert.Equal(t, Delta{ProductID: product, ShelfID: to, Qty: qty}, deltas[0])
		assert.Equal(t, Delta{ProductID: product, ShelfID: from, Qty: qty.Neg()}, deltas[1])
	})

	t.Run("incoming yields single positive", func(t *testing.T) {
		m := Movement{ProductID: product, DeliveredQty: qty, ToShelfID: ptrID(to)}
		deltas := m.Deltas()
		require.Len(t, deltas, 1)
		assert.Equal(t, qty, deltas[0].Qty)
	})

	t.Run("outgoing yields single negative", func(t *testing.T) {
		m := Movement{ProductID: product, DeliveredQty: qty, FromShelfID: ptrID(from)}
		deltas := m.Deltas()
		require.Len(t, deltas, 1)
		assert.Equal(t, qty.Neg(), deltas[0].Qty)
	})
}

func TestAggregateDeltas(t *testing.T) {
	product := id.New()
	shelfA := id.New()
	shelfB := id.New()

	q := func(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

	t.Run("sums same key, preserves first appearance order", func(t *testing.T) {
		out := aggregateDeltas([]Delta{
			{ProductID: product, ShelfID: shelfA, Qty: q(10)},
			{ProductID: product, ShelfID: shelfB, Qty: q(5)},
			{ProductID: product, ShelfID: shelfA, Qty: q(-3)},
		})
		require.Len(t, out, 2)
		assert.Equal(t, shelfA, out[0].ShelfID)
		assert.Equal(t, q(7), out[0].Qty)
		assert.Equal(t, q(5), out[1].Qty)
	})

	t.Run("rollback and reapply of the same movement nets to zero", func(t *testing.T) {
		m := Movement{ProductID: product, DeliveredQty: q(30), FromShelfID: ptrID(shelfA)}
		out := aggregateDeltas(append(negateDeltas(m.Deltas()), m.Deltas()...))
		require.Len(t, out, 1)
		assert.True(t, out[0].Qty.IsZero())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, aggregateDeltas(nil))
	})
}
