package order

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/galleria-shop/internal/domain/money"
)

// Order is an immutable record of a completed checkout.
type Order struct {
	ID              int64
	CreatedAt       time.Time
	CustomerName    string
	CustomerAddress string
	// Lines is set on orders returned from checkout. Orders read back from
	// storage only carry Summary.
	Lines   []Line
	Summary string
	Total   money.Cents
}

// Line is a single purchased product at the price it was sold for.
type Line struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice money.Cents
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() money.Cents {
	return l.UnitPrice.Times(l.Quantity)
}

// Render formats the line as "<name> x<qty> @ <symbol><unit>".
func (l Line) Render(currency string) string {
	var b strings.Builder
	b.WriteString(l.Name)
	b.WriteString(" x")
	b.WriteString(strconv.Itoa(l.Quantity))
	b.WriteString(" @ ")
	b.WriteString(l.UnitPrice.Format(currency))
	return b.String()
}

// Summarize renders every line and joins them with "; ".
func Summarize(lines []Line, currency string) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Render(currency)
	}
	return strings.Join(parts, "; ")
}

// Repository defines persistence operations for orders. Orders are never
// updated or deleted.
type Repository interface {
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// Revenue returns the sum of all order totals in major units.
	Revenue(ctx context.Context) (decimal.Decimal, error)
}
