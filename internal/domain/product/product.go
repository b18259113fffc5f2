package product

import (
	"context"
	"regexp"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/galleria-shop/internal/domain/money"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrSlugTaken is returned when another product already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase, hyphen-separated URL slug.
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Price       money.Cents
	// Image is the stored file name of the normalized picture, empty when
	// the product has none.
	Image     string
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InStock reports whether at least one unit can be added to a cart.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	// GetByIDs returns the products matching ids; unknown IDs are omitted.
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	// Create assigns p.ID, p.CreatedAt and p.UpdatedAt.
	Create(ctx context.Context, p *Product) error
	// Edit loads the product, applies fn and saves the result in one step.
	// The row stays locked against checkouts between the read and the write,
	// so stock sold meanwhile is never written back. An error from fn aborts
	// the edit and is returned as is.
	Edit(ctx context.Context, id int64, fn func(p *Product) error) (*Product, error)
}
