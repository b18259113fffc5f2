package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

const productColumns = `id, name, slug, description, price_cents, image, stock, created_at, updated_at`

type productRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	PriceCents  int64     `db:"price_cents"`
	Image       string    `db:"image"`
	Stock       int       `db:"stock"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r productRow) product() product.Product {
	return product.Product{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Price:       money.Cents(r.PriceCents),
		Image:       r.Image,
		Stock:       r.Stock,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func queryProducts(ctx context.Context, q DBTX, sql string, args ...any) ([]product.Product, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, err
	}
	products := make([]product.Product, len(collected))
	for i, row := range collected {
		products[i] = row.product()
	}
	return products, nil
}

func queryProduct(ctx context.Context, q DBTX, sql string, args ...any) (*product.Product, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	p := row.product()
	return &p, nil
}

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	products, err := queryProducts(ctx, r.db, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := queryProduct(ctx, r.db, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	p, err := queryProduct(ctx, r.db, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting product %q: %w", slug, err)
	}
	return p, nil
}

// GetByIDs returns the matching products ordered by ID. Unknown IDs are
// omitted.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	products, err := queryProducts(ctx, r.db,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, price_cents, image, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Slug, p.Description, int64(p.Price), p.Image, p.Stock,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "creating product %q", p.Slug)
	}
	return nil
}

// Edit locks the row with SELECT ... FOR UPDATE, the lock checkouts take,
// so the write cannot undo a concurrent stock decrement.
func (r *ProductRepository) Edit(ctx context.Context, id int64, fn func(p *product.Product) error) (*product.Product, error) {
	var edited *product.Product
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := queryProduct(ctx, tx,
			`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			UPDATE products
			SET name = $2, slug = $3, description = $4, price_cents = $5, image = $6, stock = $7,
			    updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			id, p.Name, p.Slug, p.Description, int64(p.Price), p.Image, p.Stock,
		).Scan(&p.UpdatedAt)
		if err != nil {
			return mapWriteError(err, "updating product %d", id)
		}
		p.ID = id
		edited = p
		return nil
	})
	if err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(ledger.ErrPersistenceConflict, err.Error())
		}
		return nil, err
	}
	return edited, nil
}

func mapWriteError(err error, format string, args ...any) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return product.ErrSlugTaken
	case codeCheckViolation:
		return fmt.Errorf(format+": constraint violated: %w", append(args, err)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
