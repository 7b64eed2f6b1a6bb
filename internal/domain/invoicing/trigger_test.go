package invoicing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain"
	"tannery/internal/domain/ledger"
	"tannery/internal/domain/units"
)

type stockKey struct {
	productID id.ID
	shelfID   id.ID
}

type memRepo struct {
	movements map[id.ID]*ledger.Movement
	stocks    map[stockKey]ledger.ShelfStock
}

func newMemRepo() *memRepo {
	return &memRepo{
		movements: make(map[id.ID]*ledger.Movement),
		stocks:    make(map[stockKey]ledger.ShelfStock),
	}
}

func (r *memRepo) CreateMovement(ctx context.Context, m *ledger.Movement) error {
	cp := *m
	r.movements[m.ID] = &cp
	return nil
}

func (r *memRepo) CreateMovements(ctx context.Context, movements []*ledger.Movement) error {
	for _, m := range movements {
		if err := r.CreateMovement(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) GetMovement(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	m, ok := r.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID.String())
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) UpdateMovement(ctx context.Context, m *ledger.Movement) error {
	cp := *m
	r.movements[m.ID] = &cp
	return nil
}

func (r *memRepo) DeleteMovement(ctx context.Context, movementID id.ID) error {
	delete(r.movements, movementID)
	return nil
}

func (r *memRepo) ListMovements(ctx context.Context, filter ledger.MovementFilter) (domain.ListResult[*ledger.Movement], error) {
	return domain.ListResult[*ledger.Movement]{}, nil
}

func (r *memRepo) HasMovementsForInvoice(ctx context.Context, invoiceID id.ID) (bool, error) {
	for _, m := range r.movements {
		if m.InvoiceID != nil && *m.InvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) HasMovementsForProductionOrder(ctx context.Context, orderID id.ID) (bool, error) {
	for _, m := range r.movements {
		if m.ProductionOrderID != nil && *m.ProductionOrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) GetShelfStockForUpdate(ctx context.Context, productID, shelfID id.ID) (ledger.ShelfStock, error) {
	if s, ok := r.stocks[stockKey{productID, shelfID}]; ok {
		return s, nil
	}
	return ledger.ShelfStock{ProductID: productID, ShelfID: shelfID}, nil
}

func (r *memRepo) UpsertShelfStock(ctx context.Context, stock ledger.ShelfStock) error {
	r.stocks[stockKey{stock.ProductID, stock.ShelfID}] = stock
	return nil
}

func (r *memRepo) GetShelfStocksByProduct(ctx context.Context, productID id.ID) ([]ledger.ShelfStock, error) {
	var out []ledger.ShelfStock
	for _, s := range r.stocks {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) GetShelfStocksByShelf(ctx context.Context, shelfID id.ID) ([]ledger.ShelfStock, error) {
	return nil, nil
}

type memProducts struct{}

func (memProducts) GetUnits(ctx context.Context, productID id.ID) (units.Unit, units.Unit, error) {
	return units.Piece, "", nil
}

func (memProducts) UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error {
	return nil
}

type memTx struct{}

func (memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ ledger.Repository = (*memRepo)(nil)
var _ ledger.ProductStore = memProducts{}

func q(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func ptrID(v id.ID) *id.ID { return &v }

func newTrigger() (*Trigger, *memRepo) {
	repo := newMemRepo()
	svc := ledger.NewService(repo, memProducts{}, memTx{}, nil, nil)
	return NewTrigger(svc, repo, memTx{}), repo
}

func (r *memRepo) stockOf(productID, shelfID id.ID) types.Quantity {
	return r.stocks[stockKey{productID, shelfID}].Stock
}

func seedStock(r *memRepo, productID, shelfID id.ID, qty types.Quantity) {
	r.stocks[stockKey{productID, shelfID}] = ledger.ShelfStock{ProductID: productID, ShelfID: shelfID, Stock: qty}
}

func TestOnInvoiceFinalized_Purchase(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	invoice := id.New()
	productA := id.New()
	productB := id.New()
	shelf := id.New()

	lines := []InvoiceLine{
		{LineNo: 1, ProductID: productA, ShelfID: ptrID(shelf), Qty: q(10)},
		{LineNo: 2, ProductID: productB, ShelfID: ptrID(shelf), Qty: q(4)},
	}
	require.NoError(t, trigger.OnInvoiceFinalized(ctx, invoice, DirectionPurchase, lines, "system"))

	assert.Equal(t, q(10), repo.stockOf(productA, shelf))
	assert.Equal(t, q(4), repo.stockOf(productB, shelf))
	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		assert.Equal(t, ledger.TransferPurchaseInvoice, m.TransferType)
		assert.Equal(t, invoice, *m.InvoiceID)
		assert.Equal(t, ledger.VoucherIncoming, m.VoucherType())
		assert.True(t, m.IsSystem())
	}
}

func TestOnInvoiceFinalized_SaleConsumesStock(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	invoice := id.New()
	product := id.New()
	shelf := id.New()
	seedStock(repo, product, shelf, q(20))

	lines := []InvoiceLine{{LineNo: 1, ProductID: product, ShelfID: ptrID(shelf), Qty: q(8)}}
	require.NoError(t, trigger.OnInvoiceFinalized(ctx, invoice, DirectionSale, lines, "system"))

	assert.Equal(t, q(12), repo.stockOf(product, shelf))
	require.Len(t, repo.movements, 1)
	for _, m := range repo.movements {
		assert.Equal(t, ledger.VoucherOutgoing, m.VoucherType())
	}
}

func TestOnInvoiceFinalized_Idempotent(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	invoice := id.New()
	product := id.New()
	shelf := id.New()

	lines := []InvoiceLine{{LineNo: 1, ProductID: product, ShelfID: ptrID(shelf), Qty: q(10)}}
	require.NoError(t, trigger.OnInvoiceFinalized(ctx, invoice, DirectionPurchase, lines, "system"))
	require.NoError(t, trigger.OnInvoiceFinalized(ctx, invoice, DirectionPurchase, lines, "system"))

	// Re-finalization must not double the stock or the movement count.
	assert.Equal(t, q(10), repo.stockOf(product, shelf))
	assert.Len(t, repo.movements, 1)
}

func TestOnInvoiceFinalized_MissingShelfAbortsWholeInvoice(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	invoice := id.New()
	productA := id.New()
	productB := id.New()
	shelf := id.New()

	lines := []InvoiceLine{
		{LineNo: 1, ProductID: productA, ShelfID: ptrID(shelf), Qty: q(10)},
		{LineNo: 2, ProductID: productB, Qty: q(4)},
	}
	err := trigger.OnInvoiceFinalized(ctx, invoice, DirectionPurchase, lines, "system")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeShelfRequired, appErr.Code)
	assert.Equal(t, 2, appErr.Details["line_no"])

	assert.Empty(t, repo.movements)
	assert.True(t, repo.stockOf(productA, shelf).IsZero())
}

func TestOnInvoiceFinalized_UnknownDirection(t *testing.T) {
	ctx := context.Background()
	trigger, _ := newTrigger()

	err := trigger.OnInvoiceFinalized(ctx, id.New(), Direction("barter"), nil, "system")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestOnInvoiceFinalized_SkipsZeroQuantityLines(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	invoice := id.New()
	product := id.New()
	shelf := id.New()

	lines := []InvoiceLine{
		{LineNo: 1, ProductID: product, ShelfID: ptrID(shelf), Qty: q(0)},
		{LineNo: 2, ProductID: product, ShelfID: ptrID(shelf), Qty: q(5)},
	}
	require.NoError(t, trigger.OnInvoiceFinalized(ctx, invoice, DirectionPurchase, lines, "system"))
	assert.Len(t, repo.movements, 1)
	assert.Equal(t, q(5), repo.stockOf(product, shelf))
}

func TestOnProductionOrderFinalized(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	order := id.New()
	leather := id.New()
	bag := id.New()
	rawShelf := id.New()
	finishedShelf := id.New()
	seedStock(repo, leather, rawShelf, q(50))

	lines := []ProductionLine{
		{LineNo: 1, ProductID: leather, ShelfID: ptrID(rawShelf), Qty: q(30)},
		{LineNo: 2, ProductID: bag, ShelfID: ptrID(finishedShelf), Qty: q(10), Output: true},
	}
	require.NoError(t, trigger.OnProductionOrderFinalized(ctx, order, lines, "system"))

	assert.Equal(t, q(20), repo.stockOf(leather, rawShelf))
	assert.Equal(t, q(10), repo.stockOf(bag, finishedShelf))
	for _, m := range repo.movements {
		assert.Equal(t, ledger.TransferProduction, m.TransferType)
		assert.Equal(t, order, *m.ProductionOrderID)
	}

	// Second finalization is a no-op.
	require.NoError(t, trigger.OnProductionOrderFinalized(ctx, order, lines, "system"))
	assert.Equal(t, q(20), repo.stockOf(leather, rawShelf))
	assert.Len(t, repo.movements, 2)
}

func TestOnProductionOrderFinalized_InsufficientMaterial(t *testing.T) {
	ctx := context.Background()
	trigger, repo := newTrigger()
	order := id.New()
	leather := id.New()
	bag := id.New()
	rawShelf := id.New()
	finishedShelf := id.New()
	seedStock(repo, leather, rawShelf, q(5))

	lines := []ProductionLine{
		{LineNo: 1, ProductID: leather, ShelfID: ptrID(rawShelf), Qty: q(30)},
		{LineNo: 2, ProductID: bag, ShelfID: ptrID(finishedShelf), Qty: q(10), Output: true},
	}
	err := trigger.OnProductionOrderFinalized(ctx, order, lines, "system")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, q(5), repo.stockOf(leather, rawShelf))
	assert.True(t, repo.stockOf(bag, finishedShelf).IsZero())
	assert.Empty(t, repo.movements)
}
