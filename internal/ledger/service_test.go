package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	account       Account
	products      []Product
	ops           []Operation
	nextProductID int64
	nextOpID      int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{}
}

func (r *memoryRepo) clone() *memoryRepo {
	dup := &memoryRepo{
		account:       r.account,
		products:      make([]Product, len(r.products)),
		ops:           make([]Operation, len(r.ops)),
		nextProductID: r.nextProductID,
		nextOpID:      r.nextOpID,
	}
	copy(dup.products, r.products)
	copy(dup.ops, r.ops)
	return dup
}

// WithTx snapshots state and restores it when fn fails, mirroring the
// all-or-nothing commit of the real repository.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) GetAccount(ctx context.Context) (Account, error) {
	return r.account, nil
}

func (r *memoryRepo) ListProducts(ctx context.Context) ([]Product, error) {
	result := make([]Product, len(r.products))
	copy(result, r.products)
	return result, nil
}

func (r *memoryRepo) ListOperations(ctx context.Context) ([]Operation, error) {
	result := make([]Operation, len(r.ops))
	copy(result, r.ops)
	return result, nil
}

func (tx *memoryTx) GetAccount(ctx context.Context) (Account, error) {
	return tx.repo.account, nil
}

func (tx *memoryTx) UpdateAccountBalance(ctx context.Context, balance float64) error {
	tx.repo.account.Balance = balance
	return nil
}

func (tx *memoryTx) GetProductByName(ctx context.Context, name string) (Product, error) {
	for _, p := range tx.repo.products {
		if p.Name == name {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (tx *memoryTx) InsertProduct(ctx context.Context, p Product) (int64, error) {
	for _, existing := range tx.repo.products {
		if existing.Name == p.Name {
			return 0, ErrDuplicateProduct
		}
	}
	tx.repo.nextProductID++
	p.ID = tx.repo.nextProductID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	tx.repo.products = append(tx.repo.products, p)
	return p.ID, nil
}

func (tx *memoryTx) UpdateProduct(ctx context.Context, p Product) error {
	for i, existing := range tx.repo.products {
		if existing.ID == p.ID {
			p.UpdatedAt = time.Now()
			tx.repo.products[i] = p
			return nil
		}
	}
	return ErrProductNotFound
}

func (tx *memoryTx) InsertOperation(ctx context.Context, op Operation) (int64, error) {
	tx.repo.nextOpID++
	op.ID = tx.repo.nextOpID
	op.RecordedAt = time.Now()
	tx.repo.ops = append(tx.repo.ops, op)
	return op.ID, nil
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 2.0, Quantity: 10})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.InDelta(t, 0.0, repo.account.Balance, 0.0001)
	require.Empty(t, repo.products)
	require.Empty(t, repo.ops)
}

func TestPurchaseCreatesProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: 100})
	require.NoError(t, err)
	require.InDelta(t, 100.0, repo.account.Balance, 0.0001)

	op, err := svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 2.0, Quantity: 10})
	require.NoError(t, err)
	require.InDelta(t, 80.0, repo.account.Balance, 0.0001)
	require.InDelta(t, 20.0, op.Amount, 0.0001)

	require.Len(t, repo.products, 1)
	require.Equal(t, "Widget", repo.products[0].Name)
	require.InDelta(t, 2.0, repo.products[0].Price, 0.0001)
	require.EqualValues(t, 10, repo.products[0].Quantity)
	require.Len(t, repo.ops, 2)
}

func TestPurchaseExistingProductOverwritesPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: 1000})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 2.0, Quantity: 10})
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 3.5, Quantity: 4})
	require.NoError(t, err)

	require.Len(t, repo.products, 1)
	require.InDelta(t, 3.5, repo.products[0].Price, 0.0001)
	require.EqualValues(t, 14, repo.products[0].Quantity)
	require.InDelta(t, 1000-20-14, repo.account.Balance, 0.0001)
}

func TestSaleKeepsStoredPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: 100})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 2.0, Quantity: 10})
	require.NoError(t, err)

	op, err := svc.Sell(ctx, SaleInput{Name: "Widget", UnitPrice: 3.0, Quantity: 4})
	require.NoError(t, err)
	require.InDelta(t, 12.0, op.Amount, 0.0001)
	require.InDelta(t, 92.0, repo.account.Balance, 0.0001)
	require.EqualValues(t, 6, repo.products[0].Quantity)
	// Sale price never touches the stored purchase price.
	require.InDelta(t, 2.0, repo.products[0].Price, 0.0001)
}

func TestSaleInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: 100})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: 2.0, Quantity: 10})
	require.NoError(t, err)
	balanceBefore := repo.account.Balance
	opsBefore := len(repo.ops)

	_, err = svc.Sell(ctx, SaleInput{Name: "Widget", UnitPrice: 1.0, Quantity: 100})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.InDelta(t, balanceBefore, repo.account.Balance, 0.0001)
	require.EqualValues(t, 10, repo.products[0].Quantity)
	require.Len(t, repo.ops, opsBefore)
}

func TestSaleUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Sell(context.Background(), SaleInput{Name: "Ghost", UnitPrice: 1.0, Quantity: 1})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Empty(t, repo.ops)
}

func TestBalanceAdjustmentUnbounded(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	op, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: "withdraw", Amount: 25.5})
	require.NoError(t, err)
	require.Equal(t, OperationBalanceDecrease, op.Kind)
	require.InDelta(t, -25.5, repo.account.Balance, 0.0001)

	op, err = svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: 5})
	require.NoError(t, err)
	require.Equal(t, OperationBalanceIncrease, op.Kind)
	require.InDelta(t, -20.5, repo.account.Balance, 0.0001)
}

func TestInputValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Purchase(ctx, PurchaseInput{Name: "  ", UnitPrice: 1, Quantity: 1})
	require.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.Purchase(ctx, PurchaseInput{Name: "Widget", UnitPrice: -1, Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = svc.Sell(ctx, SaleInput{Name: "Widget", UnitPrice: 1, Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: -1})
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Empty(t, repo.ops)
}

func TestOperationLogOrdering(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: float64(i + 1)})
		require.NoError(t, err)
	}

	ops, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 5)
	for i := 1; i < len(ops); i++ {
		require.Greater(t, ops[i].ID, ops[i-1].ID)
	}
}

func TestHistoryRangeClamping(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AdjustBalance(ctx, AdjustmentInput{Direction: DirectionAdd, Amount: float64(i + 1)})
		require.NoError(t, err)
	}

	ops, err := svc.HistoryRange(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.EqualValues(t, 2, ops[0].ID)
	require.EqualValues(t, 3, ops[1].ID)

	ops, err = svc.HistoryRange(ctx, -5, 99)
	require.NoError(t, err)
	require.Len(t, ops, 5)

	ops, err = svc.HistoryRange(ctx, 3, 3)
	require.NoError(t, err)
	require.Empty(t, ops)

	ops, err = svc.HistoryRange(ctx, 4, 2)
	require.NoError(t, err)
	require.Empty(t, ops)

	ops, err = svc.HistoryRange(ctx, 7, 9)
	require.NoError(t, err)
	require.Empty(t, ops)
}
