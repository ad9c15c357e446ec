package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockbook/stockbook/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. Reads
// are plain selects; concurrent submissions may race on the account and
// product rows with only the engine's default isolation between them.
type TxRepository interface {
	GetAccount(ctx context.Context) (Account, error)
	UpdateAccountBalance(ctx context.Context, balance float64) error
	GetProductByName(ctx context.Context, name string) (Product, error)
	InsertProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error
	InsertOperation(ctx context.Context, op Operation) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// ErrDuplicateProduct indicates a concurrent insert of the same name.
var ErrDuplicateProduct = errors.New("ledger: duplicate product name")

// WithTx executes the callback inside a single transaction. Any error rolls
// the whole transaction back; no partial mutation becomes visible.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetAccount loads the singleton account row.
func (r *Repository) GetAccount(ctx context.Context) (Account, error) {
	var acct Account
	err := r.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = 1`).Scan(&acct.Balance)
	return acct, err
}

// ListProducts returns all products ordered by id.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, quantity, created_at, updated_at FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// ListOperations returns the full operation log ordered by ascending id.
func (r *Repository) ListOperations(ctx context.Context) ([]Operation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, kind, product_name, quantity, unit_price, amount, balance, recorded_at
FROM operations
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ops := []Operation{}
	for rows.Next() {
		var op Operation
		var kind string
		if err := rows.Scan(&op.ID, &kind, &op.ProductName, &op.Quantity, &op.UnitPrice, &op.Amount, &op.Balance, &op.RecordedAt); err != nil {
			return nil, err
		}
		op.Kind = OperationKind(kind)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *txRepository) GetAccount(ctx context.Context) (Account, error) {
	var acct Account
	err := r.tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = 1`).Scan(&acct.Balance)
	return acct, err
}

func (r *txRepository) UpdateAccountBalance(ctx context.Context, balance float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = 1`, balance)
	return err
}

func (r *txRepository) GetProductByName(ctx context.Context, name string) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, name, price, quantity, created_at, updated_at FROM products WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO products (name, price, quantity, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`, p.Name, p.Price, p.Quantity).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrDuplicateProduct
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) UpdateProduct(ctx context.Context, p Product) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET price = $1, quantity = $2, updated_at = NOW() WHERE id = $3`, p.Price, p.Quantity, p.ID)
	return err
}

func (r *txRepository) InsertOperation(ctx context.Context, op Operation) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO operations (kind, product_name, quantity, unit_price, amount, balance, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		string(op.Kind), op.ProductName, op.Quantity, op.UnitPrice, op.Amount, op.Balance).Scan(&id)
	return id, err
}
