package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

type orderRow struct {
	ID              int64     `db:"id"`
	CreatedAt       time.Time `db:"created_at"`
	CustomerName    string    `db:"customer_name"`
	CustomerAddress string    `db:"customer_address"`
	Items           string    `db:"items"`
	TotalCents      int64     `db:"total_cents"`
}

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, created_at, customer_name, customer_address, items, total_cents
		FROM orders
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderRow])
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]order.Order, len(collected))
	for i, row := range collected {
		orders[i] = order.Order{
			ID:              row.ID,
			CreatedAt:       row.CreatedAt,
			CustomerName:    row.CustomerName,
			CustomerAddress: row.CustomerAddress,
			Summary:         row.Items,
			Total:           money.Cents(row.TotalCents),
		}
	}
	return orders, nil
}

// Revenue returns the sum of all order totals in major units.
func (r *OrderRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_cents), 0)::numeric / 100 FROM orders`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing revenue: %w", err)
	}
	return total, nil
}
