// Package memory provides an in-process implementation of the catalog, order
// and checkout stores. Data is lost on restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

var (
	_ product.Repository = (*Store)(nil)
	_ order.Repository   = (*Orders)(nil)
	_ ledger.Transactor  = (*Store)(nil)
)

// Store keeps products and orders in maps guarded by a single RWMutex.
// Transactions hold the write lock for their whole duration.
type Store struct {
	mu          sync.RWMutex
	nextProduct int64
	nextOrder   int64
	products    map[int64]product.Product
	orders      map[int64]order.Order

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nextProduct: 1,
		nextOrder:   1,
		products:    make(map[int64]product.Product),
		orders:      make(map[int64]order.Order),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns all products ordered by ID.
func (s *Store) List(_ context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (s *Store) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(ids), nil
}

func (s *Store) Create(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugUsed(p.Slug, 0) {
		return product.ErrSlugTaken
	}
	p.ID = s.nextProduct
	s.nextProduct++
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = *p
	return nil
}

// Edit holds the write lock across the read and the write, the same lock
// WithinTx takes for checkouts.
func (s *Store) Edit(_ context.Context, id int64, fn func(p *product.Product) error) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	if s.slugUsed(p.Slug, id) {
		return nil, product.ErrSlugTaken
	}
	p.ID = id
	p.CreatedAt = s.products[id].CreatedAt
	p.UpdatedAt = s.now()
	s.products[id] = p
	return &p, nil
}

// Orders exposes the store's order records.
type Orders struct{ s *Store }

// Orders returns the order repository sharing this store's data.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

// List returns all orders, newest first.
func (r *Orders) List(_ context.Context) ([]order.Order, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b order.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (r *Orders) Revenue(_ context.Context) (decimal.Decimal, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, o := range s.orders {
		total = total.Add(o.Total.Decimal())
	}
	return total, nil
}

// WithinTx runs fn while holding the store's write lock. Writes made through
// the Tx are staged and only applied when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store: s,
		stock: make(map[int64]int),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, stock := range tx.stock {
		p := s.products[id]
		p.Stock = stock
		p.UpdatedAt = s.now()
		s.products[id] = p
	}
	for _, o := range tx.orders {
		rec := *o
		rec.Lines = nil
		s.orders[o.ID] = rec
	}
	s.nextOrder += int64(len(tx.orders))
	return nil
}

func (s *Store) collect(ids []int64) []product.Product {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) slugUsed(slug string, except int64) bool {
	for _, p := range s.products {
		if p.Slug == slug && p.ID != except {
			return true
		}
	}
	return false
}

// memTx is only used while the store's write lock is held.
type memTx struct {
	store  *Store
	stock  map[int64]int
	orders []*order.Order
}

func (tx *memTx) LockProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := tx.store.collect(ids)
	for i := range out {
		if stock, ok := tx.stock[out[i].ID]; ok {
			out[i].Stock = stock
		}
	}
	return out, nil
}

func (tx *memTx) SetStock(_ context.Context, productID int64, stock int) error {
	if _, ok := tx.store.products[productID]; !ok {
		return product.ErrNotFound
	}
	tx.stock[productID] = stock
	return nil
}

func (tx *memTx) CreateOrder(_ context.Context, o *order.Order) error {
	o.ID = tx.store.nextOrder + int64(len(tx.orders))
	o.CreatedAt = tx.store.now()
	tx.orders = append(tx.orders, o)
	return nil
}
