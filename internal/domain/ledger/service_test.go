package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain"
	"tannery/internal/domain/units"
)

// In-memory fakes. The aggregator's read-validate-write discipline is what
// keeps failed batches from mutating anything, so the fake deliberately
// does NOT roll back on error: if a test sees a partial write, the service
// ordering is broken.

type stockKey struct {
	productID id.ID
	shelfID   id.ID
}

type fakeRepo struct {
	movements map[id.ID]*Movement
	stocks    map[stockKey]ShelfStock
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		movements: make(map[id.ID]*Movement),
		stocks:    make(map[stockKey]ShelfStock),
	}
}

func (r *fakeRepo) CreateMovement(ctx context.Context, m *Movement) error {
	cp := *m
	r.movements[m.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateMovements(ctx context.Context, movements []*Movement) error {
	for _, m := range movements {
		if err := r.CreateMovement(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) GetMovement(ctx context.Context, movementID id.ID) (*Movement, error) {
	m, ok := r.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID.String())
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) UpdateMovement(ctx context.Context, m *Movement) error {
	if _, ok := r.movements[m.ID]; !ok {
		return apperror.NewNotFound("movement", m.ID.String())
	}
	cp := *m
	r.movements[m.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteMovement(ctx context.Context, movementID id.ID) error {
	delete(r.movements, movementID)
	return nil
}

func (r *fakeRepo) ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error) {
	var items []*Movement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.InvoiceID != nil && (m.InvoiceID == nil || *m.InvoiceID != *filter.InvoiceID) {
			continue
		}
		cp := *m
		items = append(items, &cp)
	}
	return domain.ListResult[*Movement]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeRepo) HasMovementsForInvoice(ctx context.Context, invoiceID id.ID) (bool, error) {
	for _, m := range r.movements {
		if m.InvoiceID != nil && *m.InvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) HasMovementsForProductionOrder(ctx context.Context, orderID id.ID) (bool, error) {
	for _, m := range r.movements {
		if m.ProductionOrderID != nil && *m.ProductionOrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) GetShelfStockForUpdate(ctx context.Context, productID, shelfID id.ID) (ShelfStock, error) {
	if s, ok := r.stocks[stockKey{productID, shelfID}]; ok {
		return s, nil
	}
	return ShelfStock{ProductID: productID, ShelfID: shelfID}, nil
}

func (r *fakeRepo) UpsertShelfStock(ctx context.Context, stock ShelfStock) error {
	r.stocks[stockKey{stock.ProductID, stock.ShelfID}] = stock
	return nil
}

func (r *fakeRepo) GetShelfStocksByProduct(ctx context.Context, productID id.ID) ([]ShelfStock, error) {
	var out []ShelfStock
	for _, s := range r.stocks {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetShelfStocksByShelf(ctx context.Context, shelfID id.ID) ([]ShelfStock, error) {
	var out []ShelfStock
	for _, s := range r.stocks {
		if s.ShelfID == shelfID && !s.Stock.IsZero() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) stockOf(productID, shelfID id.ID) types.Quantity {
	return r.stocks[stockKey{productID, shelfID}].Stock
}

type productUnits struct {
	main units.Unit
	sub  units.Unit
}

type productAggregates struct {
	stock    types.Quantity
	subStock types.Quantity
}

type fakeProducts struct {
	units      map[id.ID]productUnits
	aggregates map[id.ID]productAggregates
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{
		units:      make(map[id.ID]productUnits),
		aggregates: make(map[id.ID]productAggregates),
	}
}

func (p *fakeProducts) GetUnits(ctx context.Context, productID id.ID) (units.Unit, units.Unit, error) {
	u, ok := p.units[productID]
	if !ok {
		return "", "", apperror.NewNotFound("product", productID.String())
	}
	return u.main, u.sub, nil
}

func (p *fakeProducts) UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error {
	p.aggregates[productID] = productAggregates{stock: stock, subStock: subStock}
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type roTxManager struct {
	fakeTxManager
	readOnlyCalls int
}

func (m *roTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnlyCalls++
	return fn(ctx)
}

type fakeAudit struct {
	actions []string
	images  []*Movement
}

func (a *fakeAudit) RecordChange(ctx context.Context, action string, before *Movement) error {
	a.actions = append(a.actions, action)
	cp := *before
	a.images = append(a.images, &cp)
	return nil
}

type fixture struct {
	repo     *fakeRepo
	products *fakeProducts
	audit    *fakeAudit
	svc      *Service
}

func newFixture() *fixture {
	repo := newFakeRepo()
	products := newFakeProducts()
	audit := &fakeAudit{}
	return &fixture{
		repo:     repo,
		products: products,
		audit:    audit,
		svc:      NewService(repo, products, fakeTxManager{}, audit, nil),
	}
}

func (f *fixture) addProduct(main, sub units.Unit) id.ID {
	productID := id.New()
	f.products.units[productID] = productUnits{main: main, sub: sub}
	return productID
}

func q(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

var _ Repository = (*fakeRepo)(nil)
var _ ProductStore = (*fakeProducts)(nil)
var _ AuditRecorder = (*fakeAudit)(nil)

func TestCreateManual_OpeningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.SquareMeter, units.SquareFoot)
	shelf := id.New()

	m, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(10),
		ToShelfID:    ptrID(shelf),
	})
	require.NoError(t, err)

	assert.Equal(t, VoucherIncoming, m.VoucherType())
	assert.Equal(t, q(10), f.repo.stockOf(product, shelf))

	agg := f.products.aggregates[product]
	assert.Equal(t, q(10), agg.stock)
	assert.InDelta(t, 107.639, agg.subStock.Float64(), 0.001)

	stored, err := f.svc.GetMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, q(107.639), stored.RequiredQty)
}

func TestCreateManual_WasteThenOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(100),
		ToShelfID:    ptrID(shelf),
	})
	require.NoError(t, err)

	_, err = f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(30),
		FromShelfID:  ptrID(shelf),
	})
	require.NoError(t, err)
	assert.Equal(t, q(70), f.repo.stockOf(product, shelf))

	// Only 70 left, writing off 120 must fail and leave the balance alone.
	_, err = f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(120),
		FromShelfID:  ptrID(shelf),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, q(70), f.repo.stockOf(product, shelf))
	assert.Equal(t, q(70), f.products.aggregates[product].stock)
}

func TestCreateManual_TransferBetweenShelves(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelfA := id.New()
	shelfB := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(50),
		ToShelfID:    ptrID(shelfA),
	})
	require.NoError(t, err)

	m, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferInventoryCount,
		ProductID:    product,
		DeliveredQty: q(20),
		FromShelfID:  ptrID(shelfA),
		ToShelfID:    ptrID(shelfB),
	})
	require.NoError(t, err)
	assert.Equal(t, VoucherTransfer, m.VoucherType())
	assert.Equal(t, q(30), f.repo.stockOf(product, shelfA))
	assert.Equal(t, q(20), f.repo.stockOf(product, shelfB))

	// Total across shelves is unchanged by a transfer.
	assert.Equal(t, q(50), f.products.aggregates[product].stock)
}

func TestCreateManual_TransferFromEmptyShelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelfA := id.New()
	shelfB := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferInventoryCount,
		ProductID:    product,
		DeliveredQty: q(5),
		FromShelfID:  ptrID(shelfA),
		ToShelfID:    ptrID(shelfB),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The destination side of the failed batch must not leak through.
	assert.True(t, f.repo.stockOf(product, shelfB).IsZero())
	assert.Empty(t, f.repo.movements)
}

func TestUpdateManual_EditReplacesOldEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(100),
		ToShelfID:    ptrID(shelf),
	})
	require.NoError(t, err)

	waste, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(30),
		FromShelfID:  ptrID(shelf),
	})
	require.NoError(t, err)
	require.Equal(t, q(70), f.repo.stockOf(product, shelf))

	// Edit 30 -> 50: the net effect is -20, not -50 on top of -30.
	updated, err := f.svc.UpdateManual(ctx, waste.ID, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(50),
		FromShelfID:  ptrID(shelf),
	})
	require.NoError(t, err)
	assert.Equal(t, q(50), f.repo.stockOf(product, shelf))
	assert.Equal(t, waste.ID, updated.ID)
	assert.Equal(t, waste.Version+1, updated.Version)

	require.Len(t, f.audit.actions, 1)
	assert.Equal(t, "update", f.audit.actions[0])
	assert.Equal(t, q(30), f.audit.images[0].DeliveredQty)
}

func TestUpdateManual_RejectedEditLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(100),
		ToShelfID:    ptrID(shelf),
	})
	require.NoError(t, err)

	waste, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(30),
		FromShelfID:  ptrID(shelf),
	})
	require.NoError(t, err)

	// 100 on the shelf, editing the write-off to 120 would overdraw even
	// after the old -30 is rolled back.
	_, err = f.svc.UpdateManual(ctx, waste.ID, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(120),
		FromShelfID:  ptrID(shelf),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, q(70), f.repo.stockOf(product, shelf))
	stored, err := f.svc.GetMovement(ctx, waste.ID)
	require.NoError(t, err)
	assert.Equal(t, q(30), stored.DeliveredQty)
	assert.Equal(t, waste.Version, stored.Version)
}

func TestUpdateManual_SystemMovementIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()
	invoice := id.New()

	m := &Movement{
		ID:           id.New(),
		TransferType: TransferPurchaseInvoice,
		ProductID:    product,
		DeliveredQty: q(10),
		ToShelfID:    ptrID(shelf),
		InvoiceID:    &invoice,
		Version:      1,
	}
	require.NoError(t, f.svc.RecordSystem(ctx, []*Movement{m}))

	_, err := f.svc.UpdateManual(ctx, m.ID, ManualMovementInput{
		TransferType: TransferInventoryCount,
		ProductID:    product,
		DeliveredQty: q(5),
		ToShelfID:    ptrID(shelf),
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeMovementReadOnly, appErr.Code)

	require.ErrorAs(t, f.svc.DeleteManual(ctx, m.ID), &appErr)
	assert.Equal(t, apperror.CodeMovementReadOnly, appErr.Code)
}

func TestDeleteManual_RollsBackEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(100),
		ToShelfID:    ptrID(shelf),
	})
	require.NoError(t, err)

	waste, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(30),
		FromShelfID:  ptrID(shelf),
	})
	require.NoError(t, err)
	require.Equal(t, q(70), f.repo.stockOf(product, shelf))

	require.NoError(t, f.svc.DeleteManual(ctx, waste.ID))
	assert.Equal(t, q(100), f.repo.stockOf(product, shelf))
	assert.Equal(t, q(100), f.products.aggregates[product].stock)

	_, err = f.svc.GetMovement(ctx, waste.ID)
	assert.True(t, apperror.IsNotFound(err))

	require.Len(t, f.audit.actions, 1)
	assert.Equal(t, "delete", f.audit.actions[0])
}

func TestRecordSystem_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelfA := id.New()
	shelfB := id.New()
	invoice := id.New()

	_, err := f.svc.CreateManual(ctx, ManualMovementInput{
		TransferType: TransferOpeningBalance,
		ProductID:    product,
		DeliveredQty: q(10),
		ToShelfID:    ptrID(shelfA),
	})
	require.NoError(t, err)
	countBefore := len(f.repo.movements)

	// Second line overdraws shelf B, so the first line must not land either.
	batch := []*Movement{
		{
			ID: id.New(), TransferType: TransferSalesInvoice, ProductID: product,
			DeliveredQty: q(5), FromShelfID: ptrID(shelfA), InvoiceID: &invoice, Version: 1,
		},
		{
			ID: id.New(), TransferType: TransferSalesInvoice, ProductID: product,
			DeliveredQty: q(5), FromShelfID: ptrID(shelfB), InvoiceID: &invoice, Version: 1,
		},
	}
	err = f.svc.RecordSystem(ctx, batch)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, q(10), f.repo.stockOf(product, shelfA))
	assert.True(t, f.repo.stockOf(product, shelfB).IsZero())
	assert.Len(t, f.repo.movements, countBefore)
}

func TestReadSurface_UsesReadOnlyTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	products := newFakeProducts()
	roTx := &roTxManager{}
	svc := NewService(repo, products, roTx, nil, nil)

	_, err := svc.ListMovements(ctx, MovementFilter{})
	require.NoError(t, err)
	_, err = svc.GetShelfStocksByProduct(ctx, id.New())
	require.NoError(t, err)
	_, err = svc.GetShelfStocksByShelf(ctx, id.New())
	require.NoError(t, err)

	assert.Equal(t, 3, roTx.readOnlyCalls)
}

func TestRecordSystem_DerivesSecondaryQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.SquareMeter, units.SquareFoot)
	shelf := id.New()
	invoice := id.New()

	m := &Movement{
		ID:           id.New(),
		TransferType: TransferPurchaseInvoice,
		ProductID:    product,
		DeliveredQty: q(10),
		ToShelfID:    ptrID(shelf),
		InvoiceID:    &invoice,
		Version:      1,
	}
	require.NoError(t, f.svc.RecordSystem(ctx, []*Movement{m}))

	stored, err := f.svc.GetMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, q(107.639), stored.RequiredQty)

	// Count goods have no secondary unit, nothing to derive.
	pieces := f.addProduct(units.Piece, "")
	pm := &Movement{
		ID:           id.New(),
		TransferType: TransferPurchaseInvoice,
		ProductID:    pieces,
		DeliveredQty: q(3),
		ToShelfID:    ptrID(shelf),
		InvoiceID:    &invoice,
		Version:      1,
	}
	require.NoError(t, f.svc.RecordSystem(ctx, []*Movement{pm}))
	stored, err = f.svc.GetMovement(ctx, pm.ID)
	require.NoError(t, err)
	assert.True(t, stored.RequiredQty.IsZero())
}

func TestRecordSystem_RejectsUntaggedMovements(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	err := f.svc.RecordSystem(ctx, []*Movement{{
		ID:           id.New(),
		TransferType: TransferWaste,
		ProductID:    product,
		DeliveredQty: q(1),
		FromShelfID:  ptrID(shelf),
		Version:      1,
	}})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestResync_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.SquareMeter, units.SquareFoot)
	shelfA := id.New()
	shelfB := id.New()

	f.repo.stocks[stockKey{product, shelfA}] = ShelfStock{ProductID: product, ShelfID: shelfA, Stock: q(6)}
	f.repo.stocks[stockKey{product, shelfB}] = ShelfStock{ProductID: product, ShelfID: shelfB, Stock: q(4)}

	require.NoError(t, f.svc.Resync(ctx, product))
	first := f.products.aggregates[product]
	assert.Equal(t, q(10), first.stock)
	assert.InDelta(t, 107.639, first.subStock.Float64(), 0.001)

	require.NoError(t, f.svc.Resync(ctx, product))
	assert.Equal(t, first, f.products.aggregates[product])
}

func TestResync_NoSecondaryUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	f.repo.stocks[stockKey{product, shelf}] = ShelfStock{ProductID: product, ShelfID: shelf, Stock: q(12)}

	require.NoError(t, f.svc.Resync(ctx, product))
	agg := f.products.aggregates[product]
	assert.Equal(t, q(12), agg.stock)
	assert.True(t, agg.subStock.IsZero())
}

func TestResyncMany_DeduplicatesProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := f.addProduct(units.Piece, "")
	shelf := id.New()

	f.repo.stocks[stockKey{product, shelf}] = ShelfStock{ProductID: product, ShelfID: shelf, Stock: q(3)}

	require.NoError(t, f.svc.ResyncMany(ctx, []id.ID{product, product, product}))
	assert.Equal(t, q(3), f.products.aggregates[product].stock)
}
