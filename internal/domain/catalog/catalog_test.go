package catalog

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/galleria-shop/db"
	"github.com/xenking/galleria-shop/internal/domain/cart"
	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/product"
	"github.com/xenking/galleria-shop/internal/storage/memory"
)

type mockNormalizer struct {
	names []string
	err   error
	calls int
}

func (m *mockNormalizer) Normalize(_ context.Context, _ string, r io.Reader) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	name := m.names[0]
	m.names = m.names[1:]
	return name, nil
}

type mockRemover struct {
	deleted []string
	err     error
}

func (m *mockRemover) Delete(_ context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return m.err
}

// failingRepo wraps a store and fails writes.
type failingRepo struct {
	product.Repository
	err error
}

func (f *failingRepo) Create(context.Context, *product.Product) error { return f.err }
func (f *failingRepo) Edit(context.Context, int64, func(*product.Product) error) (*product.Product, error) {
	return nil, f.err
}

// hookNormalizer calls before in the middle of an upload.
type hookNormalizer struct {
	before func()
	name   string
}

func (h *hookNormalizer) Normalize(context.Context, string, io.Reader) (string, error) {
	h.before()
	return h.name, nil
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Body: strings.NewReader("image bytes")}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("with image", func(t *testing.T) {
		store := memory.New()
		images := &mockNormalizer{names: []string{"new.jpg"}}
		svc := NewService(store, images, &mockRemover{})

		res, err := svc.Create(ctx, CreateRequest{
			Name:        " Lenovo IdeaPad ",
			Slug:        "lenovo-ideapad",
			Description: "Reliable everyday laptop.",
			Price:       "25000",
			Stock:       "5",
			Image:       upload("photo.png"),
		})
		require.NoError(t, err)
		assert.NoError(t, res.ImageErr)
		assert.Equal(t, "Lenovo IdeaPad", res.Product.Name)
		assert.Equal(t, money.Cents(25000_00), res.Product.Price)
		assert.Equal(t, "new.jpg", res.Product.Image)

		got, err := svc.BySlug(ctx, "lenovo-ideapad")
		require.NoError(t, err)
		assert.Equal(t, res.Product.ID, got.ID)
		assert.Equal(t, 5, got.Stock)
	})

	t.Run("slug derived from name", func(t *testing.T) {
		svc := NewService(memory.New(), &mockNormalizer{}, &mockRemover{})
		res, err := svc.Create(ctx, CreateRequest{Name: "Gaming PC (2024)", Price: "1.5"})
		require.NoError(t, err)
		assert.Equal(t, "gaming-pc-2024", res.Product.Slug)
		assert.Equal(t, money.Cents(1_50), res.Product.Price)
		assert.Equal(t, 0, res.Product.Stock)
	})

	t.Run("rejected image still creates product", func(t *testing.T) {
		store := memory.New()
		imgErr := errors.New("invalid image format")
		svc := NewService(store, &mockNormalizer{err: imgErr}, &mockRemover{})

		res, err := svc.Create(ctx, CreateRequest{Name: "Mouse", Slug: "mouse", Image: upload("x.gif")})
		require.NoError(t, err)
		assert.ErrorIs(t, res.ImageErr, imgErr)
		assert.Empty(t, res.Product.Image)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("duplicate slug removes stored image", func(t *testing.T) {
		store := memory.New()
		files := &mockRemover{}
		svc := NewService(store, &mockNormalizer{names: []string{"a.jpg", "b.jpg"}}, files)

		_, err := svc.Create(ctx, CreateRequest{Name: "A", Slug: "a", Image: upload("a.png")})
		require.NoError(t, err)
		_, err = svc.Create(ctx, CreateRequest{Name: "A again", Slug: "a", Image: upload("b.png")})
		assert.ErrorIs(t, err, product.ErrSlugTaken)
		assert.Equal(t, []string{"b.jpg"}, files.deleted)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			req   CreateRequest
			field string
		}{
			{name: "missing name", req: CreateRequest{Name: "  "}, field: "name"},
			{name: "bad slug", req: CreateRequest{Name: "A", Slug: "Not A Slug"}, field: "slug"},
			{name: "unsluggable name", req: CreateRequest{Name: "!!!"}, field: "slug"},
			{name: "bad price", req: CreateRequest{Name: "A", Price: "abc"}, field: "price"},
			{name: "negative price", req: CreateRequest{Name: "A", Price: "-1"}, field: "price"},
			{name: "negative stock", req: CreateRequest{Name: "A", Stock: "-3"}, field: "stock"},
			{name: "fractional stock", req: CreateRequest{Name: "A", Stock: "1.5"}, field: "stock"},
			{name: "stock above int32", req: CreateRequest{Name: "A", Stock: "2147483648"}, field: "stock"},
			{name: "price above int64 cents", req: CreateRequest{Name: "A", Price: "92233720368547758.08"}, field: "price"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				images := &mockNormalizer{}
				svc := NewService(memory.New(), images, &mockRemover{})
				tt.req.Image = upload("a.png")

				_, err := svc.Create(ctx, tt.req)
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.field, ve.Field)
				assert.Zero(t, images.calls)
			})
		}
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, names ...string) (*Service, *memory.Store, *mockRemover, *product.Product) {
		t.Helper()
		store := memory.New()
		p := &product.Product{Name: "A", Slug: "a", Price: 100_00, Stock: 5, Image: "old.jpg"}
		require.NoError(t, store.Create(ctx, p))
		files := &mockRemover{}
		return NewService(store, &mockNormalizer{names: names}, files), store, files, p
	}

	t.Run("price and stock", func(t *testing.T) {
		svc, store, files, p := setup(t)
		_, err := svc.Update(ctx, p.ID, UpdateRequest{Price: "150.25", Stock: "0"})
		require.NoError(t, err)

		got, err := store.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, money.Cents(150_25), got.Price)
		assert.Equal(t, 0, got.Stock)
		assert.Equal(t, "old.jpg", got.Image)
		assert.Empty(t, files.deleted)
	})

	t.Run("empty fields keep values", func(t *testing.T) {
		svc, store, _, p := setup(t)
		_, err := svc.Update(ctx, p.ID, UpdateRequest{})
		require.NoError(t, err)

		got, err := store.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, money.Cents(100_00), got.Price)
		assert.Equal(t, 5, got.Stock)
	})

	t.Run("image replaced and old removed", func(t *testing.T) {
		svc, store, files, p := setup(t, "new.jpg")
		_, err := svc.Update(ctx, p.ID, UpdateRequest{Image: upload("n.webp")})
		require.NoError(t, err)

		got, err := store.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "new.jpg", got.Image)
		assert.Equal(t, []string{"old.jpg"}, files.deleted)
	})

	t.Run("old image removal failure is ignored", func(t *testing.T) {
		svc, _, files, p := setup(t, "new.jpg")
		files.err = errors.New("permission denied")
		res, err := svc.Update(ctx, p.ID, UpdateRequest{Image: upload("n.webp")})
		require.NoError(t, err)
		assert.Equal(t, "new.jpg", res.Product.Image)
	})

	t.Run("rejected image keeps old", func(t *testing.T) {
		svc, store, files, p := setup(t)
		svc.images = &mockNormalizer{err: errors.New("bad image")}
		res, err := svc.Update(ctx, p.ID, UpdateRequest{Stock: "7", Image: upload("n.bmp")})
		require.NoError(t, err)
		assert.Error(t, res.ImageErr)

		got, err := store.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "old.jpg", got.Image)
		assert.Equal(t, 7, got.Stock)
		assert.Empty(t, files.deleted)
	})

	t.Run("save failure removes new image", func(t *testing.T) {
		svc, store, files, p := setup(t, "new.jpg")
		saveErr := errors.New("db down")
		svc.products = &failingRepo{Repository: store, err: saveErr}

		_, err := svc.Update(ctx, p.ID, UpdateRequest{Image: upload("n.png")})
		assert.ErrorIs(t, err, saveErr)
		assert.Equal(t, []string{"new.jpg"}, files.deleted)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		_, err := svc.Update(ctx, 999, UpdateRequest{Price: "1"})
		assert.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("invalid stock", func(t *testing.T) {
		svc, _, _, p := setup(t)
		_, err := svc.Update(ctx, p.ID, UpdateRequest{Stock: "-1"})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "stock", ve.Field)
	})
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Lenovo IdeaPad":       "lenovo-ideapad",
		"  Gaming -- Mouse!  ": "gaming-mouse",
		"Dell Latitude 7420":   "dell-latitude-7420",
		"Ñandú":                "and",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	products, err := ParseSeed(db.Products)
	require.NoError(t, err)
	require.Len(t, products, 5)
	assert.Equal(t, "lenovo-ideapad", products[0].Slug)
	assert.Equal(t, money.Cents(2500000), products[0].Price)
	assert.Equal(t, 5, products[0].Stock)

	store := memory.New()
	n, err := Seed(ctx, store, products)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Second run is a no-op.
	n, err = Seed(ctx, store, products)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := ParseSeed([]byte(`[{"name":"A","slug":"a","price":"x","stock":1}]`))
	assert.Error(t, err)
	_, err = ParseSeed([]byte(`[{"name":"A","slug":"Bad Slug","price":"1","stock":1}]`))
	assert.Error(t, err)
	_, err = ParseSeed([]byte(`{`))
	assert.Error(t, err)
}

func TestService_UpdateKeepsConcurrentSale(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := &product.Product{Name: "A", Slug: "a", Price: 100_00, Stock: 1, Image: "old.jpg"}
	require.NoError(t, store.Create(ctx, p))
	l := ledger.New(store, store, ledger.Config{Currency: "₱"})

	// The last unit sells while the admin's new picture is being processed.
	images := &hookNormalizer{name: "new.jpg", before: func() {
		_, err := l.Checkout(ctx, cart.Cart{p.ID: 1}, ledger.Customer{Name: "n", Address: "a"})
		require.NoError(t, err)
	}}
	svc := NewService(store, images, &mockRemover{})

	res, err := svc.Update(ctx, p.ID, UpdateRequest{Price: "2.00", Image: upload("n.png")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Product.Stock)
	assert.Equal(t, money.Cents(2_00), res.Product.Price)
	assert.Equal(t, "new.jpg", res.Product.Image)

	_, err = l.Checkout(ctx, cart.Cart{p.ID: 1}, ledger.Customer{Name: "m", Address: "b"})
	var se *ledger.InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Available)

	orders, err := store.Orders().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestService_ConcurrentEditsAndCheckouts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	const stock = 5
	p := &product.Product{Name: "A", Slug: "a", Price: 100_00, Stock: stock}
	require.NoError(t, store.Create(ctx, p))
	l := ledger.New(store, store, ledger.Config{Currency: "₱"})
	svc := NewService(store, &mockNormalizer{}, &mockRemover{})

	var succeeded atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := range 2 * stock {
		g.Go(func() error {
			_, err := l.Checkout(gctx, cart.Cart{p.ID: 1}, ledger.Customer{Name: "n", Address: "a"})
			var se *ledger.InsufficientStockError
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.As(err, &se):
			default:
				return err
			}
			return nil
		})
		g.Go(func() error {
			_, err := svc.Update(gctx, p.ID, UpdateRequest{Price: strconv.Itoa(100 + i)})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(stock), succeeded.Load())
	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	orders, err := store.Orders().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, stock)
}
