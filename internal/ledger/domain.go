package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Account is the single cash-balance record. Exactly one row exists; the
// migration seeds it and the schema constrains it to id=1.
type Account struct {
	Balance float64
}

// Product is a named inventory line. Name acts as the natural key; Price
// holds the latest purchase price, not the latest sale price.
type Product struct {
	ID        int64
	Name      string
	Price     float64
	Quantity  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OperationKind enumerates the fixed set of log entry templates.
type OperationKind string

const (
	// OperationPurchase records an inventory acquisition.
	OperationPurchase OperationKind = "PURCHASE"
	// OperationSale records an inventory disposal.
	OperationSale OperationKind = "SALE"
	// OperationBalanceIncrease records a direct cash addition.
	OperationBalanceIncrease OperationKind = "BALANCE_INCREASE"
	// OperationBalanceDecrease records a direct cash deduction.
	OperationBalanceDecrease OperationKind = "BALANCE_DECREASE"
)

// Operation is an immutable log entry. Ordering is by ascending ID as
// assigned by storage. Fields are typed so the log stays machine-parseable;
// the human-readable form is rendered by Description.
type Operation struct {
	ID          int64
	Kind        OperationKind
	ProductName string
	Quantity    int64
	UnitPrice   float64
	// Amount is the transacted total for purchases and sales, or the
	// adjustment amount for balance operations.
	Amount float64
	// Balance is the account balance after the operation.
	Balance    float64
	RecordedAt time.Time
}

// Description renders the fixed template for the operation kind.
func (o Operation) Description() string {
	switch o.Kind {
	case OperationPurchase:
		return fmt.Sprintf("Purchased %d of %s at %v each. Total: %v", o.Quantity, o.ProductName, o.UnitPrice, o.Amount)
	case OperationSale:
		return fmt.Sprintf("Sold %d of %s at %v each. Total: %v", o.Quantity, o.ProductName, o.UnitPrice, o.Amount)
	case OperationBalanceIncrease:
		return fmt.Sprintf("Balance increased by %v. New balance: %v", o.Amount, o.Balance)
	case OperationBalanceDecrease:
		return fmt.Sprintf("Balance decreased by %v. New balance: %v", o.Amount, o.Balance)
	default:
		return string(o.Kind)
	}
}

// PurchaseInput describes an inventory acquisition request.
type PurchaseInput struct {
	Name      string
	UnitPrice float64
	Quantity  int64
}

// SaleInput describes an inventory disposal request.
type SaleInput struct {
	Name      string
	UnitPrice float64
	Quantity  int64
}

// DirectionAdd increases the balance; any other direction value decreases it.
const DirectionAdd = "add"

// AdjustmentInput describes a direct cash correction.
type AdjustmentInput struct {
	Direction string
	Amount    float64
}

// ErrInsufficientFunds triggered when a purchase exceeds the balance.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// ErrInsufficientStock triggered when a sale exceeds on-hand quantity.
var ErrInsufficientStock = errors.New("ledger: not enough stock")

// ErrProductNotFound indicates no product with the given name exists.
var ErrProductNotFound = errors.New("ledger: product not found")

// ErrNameRequired indicates a missing product name.
var ErrNameRequired = errors.New("ledger: product name required")

// ErrInvalidPrice indicates a negative unit price.
var ErrInvalidPrice = errors.New("ledger: price must be >= 0")

// ErrInvalidQuantity indicates a negative quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be >= 0")

// ErrInvalidAmount indicates a negative adjustment amount.
var ErrInvalidAmount = errors.New("ledger: amount must be >= 0")
