package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

var (
	_ ledger.Transactor = (*Transactor)(nil)
	_ ledger.Tx         = (*checkoutTx)(nil)
)

// Transactor runs checkouts in READ COMMITTED transactions. Product rows are
// locked with SELECT ... FOR UPDATE in ascending ID order, so concurrent
// checkouts over the same products serialize instead of deadlocking.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Transactor that uses the given pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx begins a transaction, runs fn and commits when fn succeeds.
// Serialization failures and deadlocks are reported as
// ledger.ErrPersistenceConflict.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, t.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &checkoutTx{tx: tx})
	})
	if err != nil && isConflict(err) {
		return errors.Wrap(ledger.ErrPersistenceConflict, err.Error())
	}
	return err
}

type checkoutTx struct {
	tx pgx.Tx
}

func (c *checkoutTx) LockProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	products, err := queryProducts(ctx, c.tx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return products, nil
}

func (c *checkoutTx) SetStock(ctx context.Context, productID int64, stock int) error {
	tag, err := c.tx.Exec(ctx,
		`UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, productID, stock)
	if err != nil {
		return fmt.Errorf("updating stock of product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (c *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := c.tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_address, items, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		o.CustomerName, o.CustomerAddress, o.Summary, int64(o.Total),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}
