// Package ledger owns stock-checked cart pricing and checkout.
//
// Checkout is two-phase: every cart line is validated against freshly locked
// product rows before any stock is decremented, so a failing line never
// leaves a partially applied order behind.
package ledger

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/galleria-shop/internal/domain/cart"
	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

// Tx is the set of record operations available inside a checkout
// transaction.
type Tx interface {
	// LockProducts returns the products matching ids and holds them against
	// concurrent modification until the transaction ends. Unknown IDs are
	// omitted from the result.
	LockProducts(ctx context.Context, ids []int64) ([]product.Product, error)
	SetStock(ctx context.Context, productID int64, stock int) error
	// CreateOrder assigns o.ID and o.CreatedAt.
	CreateOrder(ctx context.Context, o *order.Order) error
}

// Transactor runs fn inside a single storage transaction. The transaction is
// committed when fn returns nil and rolled back otherwise; fn's error is
// returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Config holds presentation settings used when rendering order summaries.
type Config struct {
	// Currency is the symbol prefixed to prices, e.g. "₱".
	Currency string
}

// Customer identifies who placed an order and where it is delivered.
type Customer struct {
	Name    string
	Address string
}

// Line is a priced cart entry.
type Line struct {
	Product  product.Product
	Quantity int
	Subtotal money.Cents
}

// Priced is the result of pricing a cart.
type Priced struct {
	Lines []Line
	Total money.Cents
}

// Count returns the number of units across all priced lines.
func (p *Priced) Count() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// Ledger prices carts and commits checkouts. It keeps no state besides the
// stores it is given and is safe for concurrent use.
type Ledger struct {
	products product.Repository
	tx       Transactor
	currency string
}

// New creates a Ledger backed by the given product repository and
// transactor.
func New(products product.Repository, tx Transactor, cfg Config) *Ledger {
	return &Ledger{
		products: products,
		tx:       tx,
		currency: cfg.Currency,
	}
}

// Price looks up every product in the cart and computes line subtotals and
// the grand total. Entries whose product no longer exists are skipped.
func (l *Ledger) Price(ctx context.Context, c cart.Cart) (*Priced, error) {
	priced := &Priced{}
	if c.Empty() {
		return priced, nil
	}

	ids := c.IDs()
	fetched, err := l.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := indexProducts(fetched)

	priced.Lines = make([]Line, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		qty := c[id]
		subtotal, err := p.Price.Mul(qty)
		if err != nil {
			return nil, errors.Wrapf(err, "price product %d", id)
		}
		if priced.Total, err = priced.Total.Add(subtotal); err != nil {
			return nil, errors.Wrap(err, "cart total")
		}
		priced.Lines = append(priced.Lines, Line{
			Product:  p,
			Quantity: qty,
			Subtotal: subtotal,
		})
	}
	return priced, nil
}

// Add checks the requested quantity against current stock and merges it into
// the cart. Stock itself is only reserved at checkout.
func (l *Ledger) Add(ctx context.Context, c cart.Cart, productID int64, qty int) (*product.Product, error) {
	if qty <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: qty}
	}

	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductMissingError{ProductID: productID}
		}
		return nil, errors.Wrapf(err, "get product %d", productID)
	}
	if qty > p.Stock {
		return nil, &InsufficientStockError{
			ProductID: p.ID,
			Product:   p.Name,
			Available: p.Stock,
			Requested: qty,
		}
	}
	if _, err := p.Price.Mul(c[productID] + qty); err != nil {
		return nil, errors.Wrapf(err, "price product %d", productID)
	}

	c.Add(productID, qty)
	return p, nil
}

// Remove drops the product from the cart.
func (l *Ledger) Remove(c cart.Cart, productID int64) {
	c.Remove(productID)
}

// Checkout re-validates every cart line against locked product rows,
// decrements stock, records the order and clears the cart. On any error the
// cart and all stock levels are left untouched and no order is created.
func (l *Ledger) Checkout(ctx context.Context, c cart.Cart, cust Customer) (*order.Order, error) {
	if c.Empty() {
		return nil, ErrEmptyCart
	}
	cust.Name = strings.TrimSpace(cust.Name)
	cust.Address = strings.TrimSpace(cust.Address)
	if cust.Name == "" || cust.Address == "" {
		return nil, ErrCustomerRequired
	}

	ids := c.IDs()
	var created *order.Order
	err := l.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "lock products")
		}
		byID := indexProducts(locked)

		// Validate all lines first.
		var total money.Cents
		lines := make([]order.Line, 0, len(ids))
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return &ProductMissingError{ProductID: id}
			}
			qty := c[id]
			if p.Stock < qty {
				return &InsufficientStockError{
					ProductID: p.ID,
					Product:   p.Name,
					Available: p.Stock,
					Requested: qty,
				}
			}
			subtotal, err := p.Price.Mul(qty)
			if err != nil {
				return errors.Wrapf(err, "price product %d", id)
			}
			if total, err = total.Add(subtotal); err != nil {
				return errors.Wrap(err, "order total")
			}
			lines = append(lines, order.Line{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  qty,
				UnitPrice: p.Price,
			})
		}

		// Commit.
		for _, line := range lines {
			stock := max(byID[line.ProductID].Stock-line.Quantity, 0)
			if err := tx.SetStock(ctx, line.ProductID, stock); err != nil {
				return errors.Wrapf(err, "set stock for product %d", line.ProductID)
			}
		}

		o := &order.Order{
			CustomerName:    cust.Name,
			CustomerAddress: cust.Address,
			Lines:           lines,
			Summary:         order.Summarize(lines, l.currency),
			Total:           total,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Clear()
	return created, nil
}

func indexProducts(products []product.Product) map[int64]product.Product {
	m := make(map[int64]product.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
