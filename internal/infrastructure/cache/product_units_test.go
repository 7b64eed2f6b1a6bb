package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/units"
)

type fakeProductStore struct {
	units map[id.ID][2]units.Unit
	calls int
}

func (f *fakeProductStore) GetUnits(ctx context.Context, productID id.ID) (units.Unit, units.Unit, error) {
	f.calls++
	u := f.units[productID]
	return u[0], u[1], nil
}

func (f *fakeProductStore) UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error {
	return nil
}

func TestGetUnits_CachesLookups(t *testing.T) {
	ctx := context.Background()
	productID := id.New()
	store := &fakeProductStore{units: map[id.ID][2]units.Unit{
		productID: {units.SquareMeter, units.SquareFoot},
	}}
	c := NewProductUnitsCache(store, nil)

	for i := 0; i < 3; i++ {
		main, sub, err := c.GetUnits(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, units.SquareMeter, main)
		assert.Equal(t, units.SquareFoot, sub)
	}

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, c.GetStats().ProductsCached)
}

func TestInvalidate_SingleProduct(t *testing.T) {
	ctx := context.Background()
	first := id.New()
	second := id.New()
	store := &fakeProductStore{units: map[id.ID][2]units.Unit{
		first:  {units.SquareMeter, units.SquareFoot},
		second: {units.Meter, ""},
	}}
	c := NewProductUnitsCache(store, nil)

	_, _, err := c.GetUnits(ctx, first)
	require.NoError(t, err)
	_, _, err = c.GetUnits(ctx, second)
	require.NoError(t, err)

	// Catalog changed the first product's units.
	store.units[first] = [2]units.Unit{units.Meter, units.Centimeter}
	c.invalidate(first.String())

	main, sub, err := c.GetUnits(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, units.Meter, main)
	assert.Equal(t, units.Centimeter, sub)

	// Second product survived the invalidation.
	assert.Equal(t, 3, store.calls)
}

func TestInvalidate_UnparseablePayloadFlushesAll(t *testing.T) {
	ctx := context.Background()
	productID := id.New()
	store := &fakeProductStore{units: map[id.ID][2]units.Unit{
		productID: {units.SquareMeter, ""},
	}}
	c := NewProductUnitsCache(store, nil)

	_, _, err := c.GetUnits(ctx, productID)
	require.NoError(t, err)
	require.Equal(t, 1, c.GetStats().ProductsCached)

	c.invalidate("not-a-uuid")
	assert.Equal(t, 0, c.GetStats().ProductsCached)

	c.invalidate("")
	assert.Equal(t, 0, c.GetStats().ProductsCached)
}
