// Package catalog implements the admin side of the product catalog: creating
// and editing products, replacing their pictures and seeding sample data.
package catalog

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/product"
)

// ImageNormalizer stores an upload as a normalized picture and returns its
// file name.
type ImageNormalizer interface {
	Normalize(ctx context.Context, filename string, r io.Reader) (string, error)
}

// FileRemover deletes stored pictures.
type FileRemover interface {
	Delete(ctx context.Context, name string) error
}

// Upload is an image file submitted with a product form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// CreateRequest holds the raw fields of the new product form. Price is in
// major units, e.g. "25000" or "1250.50".
type CreateRequest struct {
	Name        string
	Slug        string
	Description string
	Price       string
	Stock       string
	Image       *Upload
}

// UpdateRequest holds the raw fields of the edit form. Empty Price or Stock
// leave the current value unchanged; a nil Image keeps the current picture.
type UpdateRequest struct {
	Price string
	Stock string
	Image *Upload
}

// Result is the saved product. ImageErr is set when the upload was rejected
// and the product was saved without the new picture.
type Result struct {
	Product  *product.Product
	ImageErr error
}

// Service manages catalog products.
type Service struct {
	products product.Repository
	images   ImageNormalizer
	files    FileRemover
}

// NewService creates a catalog service.
func NewService(products product.Repository, images ImageNormalizer, files FileRemover) *Service {
	return &Service{
		products: products,
		images:   images,
		files:    files,
	}
}

// List returns all products ordered by ID.
func (s *Service) List(ctx context.Context) ([]product.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// BySlug returns the product with the given slug.
func (s *Service) BySlug(ctx context.Context, slug string) (*product.Product, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", slug)
	}
	return p, nil
}

// Create validates the form, stores the optional picture and inserts the
// product. A rejected picture does not prevent creation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !product.ValidSlug(slug) {
		return nil, &ValidationError{Field: "slug", Reason: "must be lowercase letters, digits and hyphens"}
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	stock, err := parseStock(req.Stock)
	if err != nil {
		return nil, err
	}

	p := &product.Product{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Stock:       stock,
	}
	res := &Result{Product: p}
	if req.Image != nil {
		p.Image, res.ImageErr = s.storeImage(ctx, req.Image)
	}

	if err := s.products.Create(ctx, p); err != nil {
		s.discard(ctx, p.Image)
		return nil, errors.Wrap(err, "create product")
	}
	return res, nil
}

// Update applies the edit form to an existing product. Only the supplied
// fields are changed, and the change is applied under the product's row lock
// so a concurrent checkout's stock decrement is preserved. The previous
// picture is removed once the replacement has been saved.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Result, error) {
	var (
		price    money.Cents
		stock    int
		err      error
		setPrice = strings.TrimSpace(req.Price) != ""
		setStock = strings.TrimSpace(req.Stock) != ""
	)
	if setPrice {
		if price, err = parsePrice(req.Price); err != nil {
			return nil, err
		}
	}
	if setStock {
		if stock, err = parseStock(req.Stock); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	var newImage string
	if req.Image != nil {
		newImage, res.ImageErr = s.storeImage(ctx, req.Image)
	}

	var oldImage string
	p, err := s.products.Edit(ctx, id, func(p *product.Product) error {
		if setPrice {
			p.Price = price
		}
		if setStock {
			p.Stock = stock
		}
		oldImage = p.Image
		if newImage != "" {
			p.Image = newImage
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, newImage)
		return nil, errors.Wrapf(err, "update product %d", id)
	}
	if newImage != "" {
		s.discard(ctx, oldImage)
	}
	res.Product = p
	return res, nil
}

func (s *Service) storeImage(ctx context.Context, u *Upload) (string, error) {
	name, err := s.images.Normalize(ctx, u.Filename, u.Body)
	if err != nil {
		zctx.From(ctx).Warn("Image rejected",
			zap.String("filename", u.Filename),
			zap.Error(err),
		)
		return "", err
	}
	return name, nil
}

// discard removes a stored picture. Failures are logged and otherwise
// ignored.
func (s *Service) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(ctx, name); err != nil {
		zctx.From(ctx).Warn("Remove image",
			zap.String("image", name),
			zap.Error(err),
		)
	}
}

func parsePrice(s string) (money.Cents, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	c, err := money.Parse(s)
	if err != nil {
		return 0, &ValidationError{Field: "price", Reason: "must be a non-negative amount"}
	}
	return c, nil
}

func parseStock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	// Stock is stored in a 32-bit INTEGER column.
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, &ValidationError{Field: "stock", Reason: "must be an integer between 0 and 2147483647"}
	}
	return n, nil
}

// Slugify derives a URL slug from a product name: lowercase ASCII letters
// and digits, with every other run of characters collapsed to one hyphen.
func Slugify(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
		default:
			hyphen = true
		}
	}
	return b.String()
}
