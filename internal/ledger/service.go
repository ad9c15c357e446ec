package ledger

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context) (Account, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListOperations(ctx context.Context) ([]Operation, error)
}

// Service coordinates ledger operations. Every mutation runs inside one
// repository transaction: the account update, the product upsert and the
// operation append commit together or not at all.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Overview is the current balance plus the full product list.
type Overview struct {
	Account  Account
	Products []Product
}

// GetOverview loads the data rendered on the main page.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	acct, err := s.repo.GetAccount(ctx)
	if err != nil {
		return Overview{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Account: acct, Products: products}, nil
}

// Purchase acquires inventory: it debits the account by price*quantity,
// upserts the product (quantity added, price overwritten with the latest
// purchase price) and appends a purchase entry to the log. Rejected with
// ErrInsufficientFunds when the balance cannot cover the total.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput) (Operation, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Operation{}, ErrNameRequired
	}
	if input.UnitPrice < 0 {
		return Operation{}, ErrInvalidPrice
	}
	if input.Quantity < 0 {
		return Operation{}, ErrInvalidQuantity
	}
	total := input.UnitPrice * float64(input.Quantity)

	var op Operation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acct, err := tx.GetAccount(ctx)
		if err != nil {
			return err
		}
		if acct.Balance < total {
			return ErrInsufficientFunds
		}
		newBalance := acct.Balance - total
		if err := tx.UpdateAccountBalance(ctx, newBalance); err != nil {
			return err
		}

		product, err := tx.GetProductByName(ctx, input.Name)
		switch {
		case err == nil:
			product.Quantity += input.Quantity
			product.Price = input.UnitPrice
			if err := tx.UpdateProduct(ctx, product); err != nil {
				return err
			}
		case errors.Is(err, ErrProductNotFound):
			if _, err := tx.InsertProduct(ctx, Product{Name: input.Name, Price: input.UnitPrice, Quantity: input.Quantity}); err != nil {
				return err
			}
		default:
			return err
		}

		op = Operation{
			Kind:        OperationPurchase,
			ProductName: input.Name,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Amount:      total,
			Balance:     newBalance,
		}
		id, err := tx.InsertOperation(ctx, op)
		if err != nil {
			return err
		}
		op.ID = id
		return nil
	})
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

// Sell disposes inventory: it credits the account by price*quantity,
// subtracts the quantity from stock and appends a sale entry. The stored
// product price is left untouched; only purchases update it. Rejected with
// ErrProductNotFound or ErrInsufficientStock when the stock cannot cover
// the request.
func (s *Service) Sell(ctx context.Context, input SaleInput) (Operation, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Operation{}, ErrNameRequired
	}
	if input.UnitPrice < 0 {
		return Operation{}, ErrInvalidPrice
	}
	if input.Quantity < 0 {
		return Operation{}, ErrInvalidQuantity
	}
	total := input.UnitPrice * float64(input.Quantity)

	var op Operation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductByName(ctx, input.Name)
		if err != nil {
			return err
		}
		if product.Quantity < input.Quantity {
			return ErrInsufficientStock
		}

		acct, err := tx.GetAccount(ctx)
		if err != nil {
			return err
		}
		newBalance := acct.Balance + total
		if err := tx.UpdateAccountBalance(ctx, newBalance); err != nil {
			return err
		}

		product.Quantity -= input.Quantity
		if err := tx.UpdateProduct(ctx, product); err != nil {
			return err
		}

		op = Operation{
			Kind:        OperationSale,
			ProductName: input.Name,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Amount:      total,
			Balance:     newBalance,
		}
		id, err := tx.InsertOperation(ctx, op)
		if err != nil {
			return err
		}
		op.ID = id
		return nil
	})
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

// AdjustBalance applies a direct cash correction. Direction "add" increases
// the balance; any other value decreases it. There is no lower bound: the
// balance may go negative.
func (s *Service) AdjustBalance(ctx context.Context, input AdjustmentInput) (Operation, error) {
	if input.Amount < 0 {
		return Operation{}, ErrInvalidAmount
	}

	var op Operation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acct, err := tx.GetAccount(ctx)
		if err != nil {
			return err
		}

		kind := OperationBalanceDecrease
		newBalance := acct.Balance - input.Amount
		if input.Direction == DirectionAdd {
			kind = OperationBalanceIncrease
			newBalance = acct.Balance + input.Amount
		}
		if err := tx.UpdateAccountBalance(ctx, newBalance); err != nil {
			return err
		}

		op = Operation{
			Kind:    kind,
			Amount:  input.Amount,
			Balance: newBalance,
		}
		id, err := tx.InsertOperation(ctx, op)
		if err != nil {
			return err
		}
		op.ID = id
		return nil
	})
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

// History returns the full operation log, oldest first.
func (s *Service) History(ctx context.Context) ([]Operation, error) {
	return s.repo.ListOperations(ctx)
}

// HistoryRange returns the half-open slice [from, to) of the log. Bounds
// are clamped to the log length; a degenerate or out-of-range window yields
// an empty slice, never an error.
func (s *Service) HistoryRange(ctx context.Context, from, to int) ([]Operation, error) {
	ops, err := s.repo.ListOperations(ctx)
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}
	if to > len(ops) {
		to = len(ops)
	}
	if from >= to {
		return []Operation{}, nil
	}
	return ops[from:to], nil
}
