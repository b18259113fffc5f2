package catalog

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

type seedProduct struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

// ParseSeed decodes a JSON array of sample products.
func ParseSeed(data []byte) ([]product.Product, error) {
	var raw []seedProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	out := make([]product.Product, 0, len(raw))
	for _, r := range raw {
		price, err := money.Parse(r.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "product %q", r.Slug)
		}
		if !product.ValidSlug(r.Slug) || r.Stock < 0 {
			return nil, errors.Errorf("product %q: invalid slug or stock", r.Slug)
		}
		out = append(out, product.Product{
			Name:        r.Name,
			Slug:        r.Slug,
			Description: r.Description,
			Price:       price,
			Stock:       r.Stock,
		})
	}
	return out, nil
}

// Seed inserts products when the catalog is empty and returns how many were
// inserted. A non-empty catalog is left untouched.
func Seed(ctx context.Context, repo product.Repository, products []product.Product) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	if n > 0 {
		return 0, nil
	}

	for i := range products {
		p := products[i]
		if err := repo.Create(ctx, &p); err != nil {
			return i, errors.Wrapf(err, "create product %q", p.Slug)
		}
	}
	return len(products), nil
}
